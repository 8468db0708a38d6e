package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type quizResultsStub struct {
	results []models.QuizResult
	err     error
	gotIDs  []int64
}

func (s *quizResultsStub) ListLatestByStudent(ctx context.Context, studentID int64, quizIDs []int64) ([]models.QuizResult, error) {
	s.gotIDs = quizIDs
	return s.results, s.err
}

type quizIDsStub []int64

func (s quizIDsStub) QuizIDsByColumn(ctx context.Context, columnID int64) ([]int64, error) {
	return s, nil
}

func TestColumnAveragerMean(t *testing.T) {
	results := &quizResultsStub{results: []models.QuizResult{
		{QuizID: 1, Score: 7},
		{QuizID: 2, Score: 8},
		{QuizID: 3, Score: 8},
		{QuizID: 99, Score: 0},
	}}
	avg, err := NewColumnAverager(quizIDsStub{1, 2, 3}, results).AverageForStudent(context.Background(), 10, 7)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 23.0/3, *avg, 1e-12, "averages are not rounded")
	assert.Equal(t, []int64{1, 2, 3}, results.gotIDs)
}

func TestColumnAveragerNullWithoutResults(t *testing.T) {
	results := &quizResultsStub{}
	avg, err := NewColumnAverager(quizIDsStub{1, 2}, results).AverageForStudent(context.Background(), 10, 7)
	require.NoError(t, err)
	assert.Nil(t, avg)

	avg, err = NewColumnAverager(quizIDsStub{}, results).AverageForStudent(context.Background(), 10, 7)
	require.NoError(t, err)
	assert.Nil(t, avg)
}

func TestColumnAveragerWrapsFailures(t *testing.T) {
	results := &quizResultsStub{err: errors.New("timeout")}
	_, err := NewColumnAverager(quizIDsStub{1}, results).AverageForStudent(context.Background(), 10, 7)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
