package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/database"
)

// QuizResultRepository reads scores owned by the quiz-results collaborator.
type QuizResultRepository struct {
	db *sqlx.DB
}

// NewQuizResultRepository creates a repository instance.
func NewQuizResultRepository(db *sqlx.DB) *QuizResultRepository {
	return &QuizResultRepository{db: db}
}

// ListLatestByStudent returns the student's most recent result for each of the given quizzes.
func (r *QuizResultRepository) ListLatestByStudent(ctx context.Context, studentID int64, quizIDs []int64) ([]models.QuizResult, error) {
	if len(quizIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT ON (quiz_id) id, quiz_id, user_id, score, submitted_at
        FROM quiz_results
        WHERE user_id = $1 AND quiz_id = ANY($2)
        ORDER BY quiz_id, submitted_at DESC, id DESC`
	var results []models.QuizResult
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &results, query, studentID, pq.Array(quizIDs)); err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	return results, nil
}

// ListStudentIDsByCourse returns every student with a quiz result or a grade result in the course.
func (r *QuizResultRepository) ListStudentIDsByCourse(ctx context.Context, courseID int64) ([]int64, error) {
	const query = `SELECT qr.user_id FROM quiz_results qr
        JOIN quizzes q ON q.id = qr.quiz_id
        WHERE q.course_id = $1
        UNION
        SELECT gr.user_id FROM grade_results gr WHERE gr.course_id = $1
        ORDER BY 1`
	var ids []int64
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return ids, nil
}
