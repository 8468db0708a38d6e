package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/database"
)

const courseColumns = `id, code, name, grade_process_weight, grade_final_exam_weight, created_at, updated_at`

// CourseRepository reads courses and maintains their grade configuration.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a repository instance.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// LockByID loads a course with a row lock held until the surrounding transaction ends.
func (r *CourseRepository) LockByID(ctx context.Context, id int64) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 FOR UPDATE`
	var course models.Course
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// UpdateGradeConfig stores the process/final exam blend for a course.
func (r *CourseRepository) UpdateGradeConfig(ctx context.Context, id int64, processWeight, finalExamWeight float64) error {
	const query = `UPDATE courses SET grade_process_weight = $2, grade_final_exam_weight = $3, updated_at = $4 WHERE id = $1`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, processWeight, finalExamWeight, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update course grade config: %w", err)
	}
	return requireAffected(result, "update course grade config")
}
