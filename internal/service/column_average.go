package service

import (
	"context"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type columnQuizIDReader interface {
	QuizIDsByColumn(ctx context.Context, columnID int64) ([]int64, error)
}

type quizResultReader interface {
	ListLatestByStudent(ctx context.Context, studentID int64, quizIDs []int64) ([]models.QuizResult, error)
}

// ColumnAverager computes a student's unweighted mean across a column's quizzes.
type ColumnAverager struct {
	assignments columnQuizIDReader
	results     quizResultReader
}

// NewColumnAverager constructs a ColumnAverager.
func NewColumnAverager(assignments columnQuizIDReader, results quizResultReader) *ColumnAverager {
	return &ColumnAverager{assignments: assignments, results: results}
}

// AverageForStudent returns the exact mean of the student's latest scores on
// the column's quizzes. Unattempted quizzes are skipped; nil means no assigned
// quiz has a result.
func (a *ColumnAverager) AverageForStudent(ctx context.Context, columnID, studentID int64) (*float64, error) {
	avg, _, err := a.average(ctx, columnID, studentID)
	return avg, err
}

func (a *ColumnAverager) average(ctx context.Context, columnID, studentID int64) (*float64, int, error) {
	quizIDs, err := a.assignments.QuizIDsByColumn(ctx, columnID)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to load column quizzes")
	}
	if len(quizIDs) == 0 {
		return nil, 0, nil
	}
	results, err := a.results.ListLatestByStudent(ctx, studentID, quizIDs)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to load quiz results")
	}

	assigned := make(map[int64]struct{}, len(quizIDs))
	for _, id := range quizIDs {
		assigned[id] = struct{}{}
	}
	seen := make(map[int64]struct{}, len(results))
	var sum float64
	for _, r := range results {
		if _, ok := assigned[r.QuizID]; !ok {
			continue
		}
		if _, dup := seen[r.QuizID]; dup {
			continue
		}
		seen[r.QuizID] = struct{}{}
		sum += r.Score
	}
	if len(seen) == 0 {
		return nil, 0, nil
	}
	avg := sum / float64(len(seen))
	return &avg, len(seen), nil
}
