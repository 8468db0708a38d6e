package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ResultStatus tracks whether a persisted grade result reflects current inputs.
type ResultStatus string

const (
	// ResultStatusUncomputed is reported when no row exists yet.
	ResultStatusUncomputed ResultStatus = "UNCOMPUTED"
	ResultStatusComputed   ResultStatus = "COMPUTED"
	ResultStatusStale      ResultStatus = "STALE"
)

// LetterGrade is the letter derived from a total score.
type LetterGrade string

const (
	GradeAPlus LetterGrade = "A+"
	GradeA     LetterGrade = "A"
	GradeBPlus LetterGrade = "B+"
	GradeB     LetterGrade = "B"
	GradeCPlus LetterGrade = "C+"
	GradeC     LetterGrade = "C"
	GradeDPlus LetterGrade = "D+"
	GradeD     LetterGrade = "D"
	GradeF     LetterGrade = "F"
)

// ColumnAverages maps grade column IDs to a student's average in that column.
// A nil average means the column has not been attempted.
type ColumnAverages map[int64]*float64

// Value marshals averages to JSON for persistence.
func (a ColumnAverages) Value() (driver.Value, error) {
	if a == nil {
		a = ColumnAverages{}
	}
	data, err := json.Marshal(map[int64]*float64(a))
	if err != nil {
		return nil, fmt.Errorf("marshal column averages: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB payloads into the averages map.
func (a *ColumnAverages) Scan(value interface{}) error {
	if value == nil {
		*a = ColumnAverages{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ColumnAverages", value)
	}
	if len(data) == 0 {
		*a = ColumnAverages{}
		return nil
	}
	decoded := map[int64]*float64{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("unmarshal column averages: %w", err)
	}
	*a = ColumnAverages(decoded)
	return nil
}

// GradeResult is the computed course outcome for one student.
type GradeResult struct {
	ID             int64          `db:"id" json:"id"`
	CourseID       int64          `db:"course_id" json:"course_id"`
	StudentID      int64          `db:"user_id" json:"student_id"`
	ColumnAverages ColumnAverages `db:"column_averages" json:"column_averages"`
	ProcessAverage *float64       `db:"process_average" json:"process_average"`
	FinalExamScore *float64       `db:"final_exam_score" json:"final_exam_score"`
	TotalScore     *float64       `db:"total_score" json:"total_score"`
	Grade          *LetterGrade   `db:"grade" json:"grade"`
	Status         ResultStatus   `db:"status" json:"status"`
	LastUpdated    time.Time      `db:"last_updated" json:"last_updated"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// StatusOf reports the lifecycle state including the implicit UNCOMPUTED state.
func StatusOf(result *GradeResult) ResultStatus {
	if result == nil || result.Status == "" {
		return ResultStatusUncomputed
	}
	return result.Status
}

// GradeResultRow is a course gradebook row joined with the student's name.
type GradeResultRow struct {
	GradeResult
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}

// ResultRef identifies one (course, student) result row.
type ResultRef struct {
	CourseID  int64 `db:"course_id" json:"course_id"`
	StudentID int64 `db:"user_id" json:"student_id"`
}
