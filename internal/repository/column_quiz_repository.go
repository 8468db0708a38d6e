package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/database"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

// ColumnQuizRepository manages quiz-to-column assignments.
type ColumnQuizRepository struct {
	db *sqlx.DB
}

// NewColumnQuizRepository creates a repository instance.
func NewColumnQuizRepository(db *sqlx.DB) *ColumnQuizRepository {
	return &ColumnQuizRepository{db: db}
}

// FindByQuiz returns the assignment holding quizID, if any.
func (r *ColumnQuizRepository) FindByQuiz(ctx context.Context, quizID int64) (*models.ColumnQuiz, error) {
	const query = `SELECT cq.id, cq.grade_column_id, cq.quiz_id, cq.weight_override, cq.assigned_by, cq.assigned_at, q.title AS quiz_title
        FROM column_quizzes cq
        JOIN quizzes q ON q.id = cq.quiz_id
        WHERE cq.quiz_id = $1`
	var assignment models.ColumnQuiz
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &assignment, query, quizID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByColumn returns the column's assignments ordered by assignment time.
func (r *ColumnQuizRepository) ListByColumn(ctx context.Context, columnID int64) ([]models.ColumnQuiz, error) {
	const query = `SELECT cq.id, cq.grade_column_id, cq.quiz_id, cq.weight_override, cq.assigned_by, cq.assigned_at, q.title AS quiz_title
        FROM column_quizzes cq
        JOIN quizzes q ON q.id = cq.quiz_id
        WHERE cq.grade_column_id = $1
        ORDER BY cq.assigned_at, cq.id`
	var assignments []models.ColumnQuiz
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &assignments, query, columnID); err != nil {
		return nil, fmt.Errorf("list column quizzes: %w", err)
	}
	return assignments, nil
}

// QuizIDsByColumn returns only the quiz identifiers assigned to a column.
func (r *ColumnQuizRepository) QuizIDsByColumn(ctx context.Context, columnID int64) ([]int64, error) {
	const query = `SELECT quiz_id FROM column_quizzes WHERE grade_column_id = $1 ORDER BY assigned_at, id`
	var ids []int64
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &ids, query, columnID); err != nil {
		return nil, fmt.Errorf("list column quiz ids: %w", err)
	}
	return ids, nil
}

// Create inserts a new assignment. Duplicates rejected by the unique indexes
// come back as a CONFLICT error.
func (r *ColumnQuizRepository) Create(ctx context.Context, assignment *models.ColumnQuiz) error {
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO column_quizzes (grade_column_id, quiz_id, weight_override, assigned_by, assigned_at)
        VALUES (:grade_column_id, :quiz_id, :weight_override, :assigned_by, :assigned_at)
        RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, database.Conn(ctx, r.db), query, assignment)
	if err != nil {
		if IsUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "quiz already assigned to a grade column")
		}
		return fmt.Errorf("create column quiz: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&assignment.ID); err != nil {
			return fmt.Errorf("scan column quiz id: %w", err)
		}
	}
	return rows.Err()
}

// Delete removes the assignment of quizID from columnID.
func (r *ColumnQuizRepository) Delete(ctx context.Context, columnID, quizID int64) error {
	const query = `DELETE FROM column_quizzes WHERE grade_column_id = $1 AND quiz_id = $2`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, columnID, quizID)
	if err != nil {
		return fmt.Errorf("delete column quiz: %w", err)
	}
	return requireAffected(result, "delete column quiz")
}
