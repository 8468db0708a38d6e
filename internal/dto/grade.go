package dto

import "github.com/noah-isme/lms-grading-api/internal/models"

// ColumnAverageResponse is a student's average within one grade column.
type ColumnAverageResponse struct {
	ColumnID    int64    `json:"column_id"`
	StudentID   int64    `json:"student_id"`
	Average     *float64 `json:"average"`
	QuizCount   int      `json:"quiz_count"`
	ResultCount int      `json:"result_count"`
}

// StudentGradeResponse wraps a student's result with its lifecycle status.
// Result is nil while the status is UNCOMPUTED.
type StudentGradeResponse struct {
	CourseID  int64               `json:"course_id"`
	StudentID int64               `json:"student_id"`
	Status    models.ResultStatus `json:"status"`
	Result    *models.GradeResult `json:"result,omitempty"`
}

// RecalculationFailure records a student whose result could not be computed.
type RecalculationFailure struct {
	StudentID int64  `json:"student_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// RecalculationSummary reports the outcome of a course-wide recalculation.
type RecalculationSummary struct {
	CourseID int64                  `json:"course_id"`
	Students int                    `json:"students"`
	Computed int                    `json:"computed"`
	Queued   int                    `json:"queued"`
	Failed   []RecalculationFailure `json:"failed"`
}

// QuizResultChangedRequest notifies that a student's quiz score changed.
type QuizResultChangedRequest struct {
	QuizID    int64 `json:"quiz_id" validate:"required,gt=0"`
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
}

// QuizResultChangeAck describes what a quiz result change triggered.
type QuizResultChangeAck struct {
	CourseID     int64  `json:"course_id"`
	StudentID    int64  `json:"student_id"`
	QuizID       int64  `json:"quiz_id"`
	Contributing bool   `json:"contributing"`
	ColumnID     *int64 `json:"column_id,omitempty"`
	MarkedStale  bool   `json:"marked_stale"`
	Queued       bool   `json:"queued"`
}

// FinalExamScoreRequest sets a student's final exam score on the 0-10 scale.
type FinalExamScoreRequest struct {
	Score *float64 `json:"score" validate:"required,gte=0,lte=10"`
}

// CourseGradeConfigRequest replaces a course's process/final exam blend.
type CourseGradeConfigRequest struct {
	ProcessWeight   *float64 `json:"process_weight" validate:"required,gte=0,lte=100"`
	FinalExamWeight *float64 `json:"final_exam_weight" validate:"required,gte=0,lte=100"`
}
