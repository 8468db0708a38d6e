package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/database"
)

const gradeResultColumns = `id, course_id, user_id, column_averages, process_average, final_exam_score, total_score, grade, status, last_updated, created_at`

// GradeResultRepository manages computed course results per student.
type GradeResultRepository struct {
	db *sqlx.DB
}

// NewGradeResultRepository creates a repository instance.
func NewGradeResultRepository(db *sqlx.DB) *GradeResultRepository {
	return &GradeResultRepository{db: db}
}

// Find returns the result for a course and student.
func (r *GradeResultRepository) Find(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error) {
	query := `SELECT ` + gradeResultColumns + ` FROM grade_results WHERE course_id = $1 AND user_id = $2`
	var result models.GradeResult
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &result, query, courseID, studentID); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindForUpdate loads the result and locks the row for the surrounding transaction.
func (r *GradeResultRepository) FindForUpdate(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error) {
	query := `SELECT ` + gradeResultColumns + ` FROM grade_results WHERE course_id = $1 AND user_id = $2 FOR UPDATE`
	var result models.GradeResult
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &result, query, courseID, studentID); err != nil {
		return nil, err
	}
	return &result, nil
}

// Upsert writes the computed fields for (course, student). An existing
// final_exam_score is never overwritten here.
func (r *GradeResultRepository) Upsert(ctx context.Context, result *models.GradeResult) error {
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	if result.LastUpdated.IsZero() {
		result.LastUpdated = now
	}
	if result.ColumnAverages == nil {
		result.ColumnAverages = models.ColumnAverages{}
	}
	const query = `INSERT INTO grade_results (course_id, user_id, column_averages, process_average, final_exam_score, total_score, grade, status, last_updated, created_at)
        VALUES (:course_id, :user_id, :column_averages, :process_average, :final_exam_score, :total_score, :grade, :status, :last_updated, :created_at)
        ON CONFLICT (course_id, user_id)
        DO UPDATE SET column_averages = EXCLUDED.column_averages, process_average = EXCLUDED.process_average,
            total_score = EXCLUDED.total_score, grade = EXCLUDED.grade, status = EXCLUDED.status, last_updated = EXCLUDED.last_updated,
            sweep_attempted_at = NULL
        RETURNING id, created_at`
	rows, err := sqlx.NamedQueryContext(ctx, database.Conn(ctx, r.db), query, result)
	if err != nil {
		return fmt.Errorf("upsert grade result: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&result.ID, &result.CreatedAt); err != nil {
			return fmt.Errorf("scan grade result: %w", err)
		}
	}
	return rows.Err()
}

// UpdateFinalExam stores the final exam score together with the derived total and grade.
func (r *GradeResultRepository) UpdateFinalExam(ctx context.Context, result *models.GradeResult) error {
	result.LastUpdated = time.Now().UTC()
	const query = `UPDATE grade_results SET final_exam_score = :final_exam_score, total_score = :total_score, grade = :grade, last_updated = :last_updated
        WHERE course_id = :course_id AND user_id = :user_id`
	res, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, result)
	if err != nil {
		return fmt.Errorf("update final exam score: %w", err)
	}
	return requireAffected(res, "update final exam score")
}

// MarkStale flags a student's result for recomputation. Missing rows are ignored.
func (r *GradeResultRepository) MarkStale(ctx context.Context, courseID, studentID int64) (int64, error) {
	const query = `UPDATE grade_results SET status = $3 WHERE course_id = $1 AND user_id = $2 AND status <> $3`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, courseID, studentID, models.ResultStatusStale)
	if err != nil {
		return 0, fmt.Errorf("mark grade result stale: %w", err)
	}
	return res.RowsAffected()
}

// MarkCourseStale flags every result of a course for recomputation.
func (r *GradeResultRepository) MarkCourseStale(ctx context.Context, courseID int64) (int64, error) {
	const query = `UPDATE grade_results SET status = $2 WHERE course_id = $1 AND status <> $2`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, courseID, models.ResultStatusStale)
	if err != nil {
		return 0, fmt.Errorf("mark course results stale: %w", err)
	}
	return res.RowsAffected()
}

// ListByCourse returns every student's result for the course ordered by student name.
func (r *GradeResultRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.GradeResultRow, error) {
	const query = `SELECT gr.id, gr.course_id, gr.user_id, gr.column_averages, gr.process_average, gr.final_exam_score,
            gr.total_score, gr.grade, gr.status, gr.last_updated, gr.created_at,
            u.full_name AS student_name, u.email AS student_email
        FROM grade_results gr
        JOIN users u ON u.id = gr.user_id
        WHERE gr.course_id = $1
        ORDER BY u.full_name, gr.user_id`
	var rows []models.GradeResultRow
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list course grade results: %w", err)
	}
	return rows, nil
}

// ListStale returns up to limit stale results. Rows never swept come first by
// age; rows a sweep already picked wait behind them by attempt time.
func (r *GradeResultRepository) ListStale(ctx context.Context, limit int) ([]models.ResultRef, error) {
	const query = `SELECT course_id, user_id FROM grade_results WHERE status = $1
        ORDER BY COALESCE(sweep_attempted_at, last_updated), id LIMIT $2`
	var refs []models.ResultRef
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &refs, query, models.ResultStatusStale, limit); err != nil {
		return nil, fmt.Errorf("list stale grade results: %w", err)
	}
	return refs, nil
}

// MarkSweepAttempted stamps the given stale results as picked by a sweep at
// the given time. A later successful upsert clears the stamp.
func (r *GradeResultRepository) MarkSweepAttempted(ctx context.Context, refs []models.ResultRef, at time.Time) error {
	if len(refs) == 0 {
		return nil
	}
	courses := make([]int64, len(refs))
	students := make([]int64, len(refs))
	for i, ref := range refs {
		courses[i], students[i] = ref.CourseID, ref.StudentID
	}
	const query = `UPDATE grade_results gr SET sweep_attempted_at = $1
        FROM UNNEST($2::bigint[], $3::bigint[]) AS ref(course_id, user_id)
        WHERE gr.course_id = ref.course_id AND gr.user_id = ref.user_id AND gr.status = $4`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, at, pq.Array(courses), pq.Array(students), models.ResultStatusStale); err != nil {
		return fmt.Errorf("mark sweep attempted: %w", err)
	}
	return nil
}
