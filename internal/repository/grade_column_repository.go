package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/database"
)

const gradeColumnColumns = `id, course_id, name, description, weight_percentage, display_order, state, created_at, updated_at`

// GradeColumnRepository manages grade column persistence.
type GradeColumnRepository struct {
	db *sqlx.DB
}

// NewGradeColumnRepository creates a repository instance.
func NewGradeColumnRepository(db *sqlx.DB) *GradeColumnRepository {
	return &GradeColumnRepository{db: db}
}

// ListByCourse returns a course's columns ordered by display order.
func (r *GradeColumnRepository) ListByCourse(ctx context.Context, courseID int64, includeInactive bool) ([]models.GradeColumn, error) {
	query := `SELECT ` + gradeColumnColumns + ` FROM grade_columns WHERE course_id = $1`
	args := []interface{}{courseID}
	if !includeInactive {
		query += " AND state = $2"
		args = append(args, models.ColumnStateActive)
	}
	query += " ORDER BY display_order, id"
	var columns []models.GradeColumn
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &columns, query, args...); err != nil {
		return nil, fmt.Errorf("list grade columns: %w", err)
	}
	return columns, nil
}

// FindByID returns a column by ID.
func (r *GradeColumnRepository) FindByID(ctx context.Context, id int64) (*models.GradeColumn, error) {
	query := `SELECT ` + gradeColumnColumns + ` FROM grade_columns WHERE id = $1`
	var column models.GradeColumn
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &column, query, id); err != nil {
		return nil, err
	}
	return &column, nil
}

// SumActiveWeights totals weight_percentage over active columns, skipping excludeID when non-zero.
func (r *GradeColumnRepository) SumActiveWeights(ctx context.Context, courseID, excludeID int64) (float64, error) {
	query := "SELECT COALESCE(SUM(weight_percentage), 0) FROM grade_columns WHERE course_id = $1 AND state = $2"
	args := []interface{}{courseID, models.ColumnStateActive}
	if excludeID != 0 {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var total float64
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &total, query, args...); err != nil {
		return 0, fmt.Errorf("sum grade column weights: %w", err)
	}
	return total, nil
}

// OrderTaken checks whether an active column of the course already uses order.
func (r *GradeColumnRepository) OrderTaken(ctx context.Context, courseID int64, order int, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM grade_columns WHERE course_id = $1 AND display_order = $2 AND state = $3"
	args := []interface{}{courseID, order, models.ColumnStateActive}
	if excludeID != 0 {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	var exists int
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check grade column order: %w", err)
	}
	return true, nil
}

// Create inserts a new grade column.
func (r *GradeColumnRepository) Create(ctx context.Context, column *models.GradeColumn) error {
	now := time.Now().UTC()
	if column.CreatedAt.IsZero() {
		column.CreatedAt = now
	}
	column.UpdatedAt = now
	if column.State == "" {
		column.State = models.ColumnStateActive
	}
	const query = `INSERT INTO grade_columns (course_id, name, description, weight_percentage, display_order, state, created_at, updated_at)
        VALUES (:course_id, :name, :description, :weight_percentage, :display_order, :state, :created_at, :updated_at)
        RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, database.Conn(ctx, r.db), query, column)
	if err != nil {
		return fmt.Errorf("create grade column: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&column.ID); err != nil {
			return fmt.Errorf("scan grade column id: %w", err)
		}
	}
	return rows.Err()
}

// Update persists name, description, weight and order changes.
func (r *GradeColumnRepository) Update(ctx context.Context, column *models.GradeColumn) error {
	column.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_columns SET name = :name, description = :description, weight_percentage = :weight_percentage,
        display_order = :display_order, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, column)
	if err != nil {
		return fmt.Errorf("update grade column: %w", err)
	}
	return requireAffected(result, "update grade column")
}

// SetState moves a column between ACTIVE and DEACTIVATED.
func (r *GradeColumnRepository) SetState(ctx context.Context, id int64, state models.ColumnState) error {
	const query = `UPDATE grade_columns SET state = $2, updated_at = $3 WHERE id = $1`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, state, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set grade column state: %w", err)
	}
	return requireAffected(result, "set grade column state")
}
