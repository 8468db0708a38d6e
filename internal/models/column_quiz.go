package models

import "time"

// ColumnQuiz assigns a quiz to the grade column it contributes to.
type ColumnQuiz struct {
	ID             int64     `db:"id" json:"id"`
	GradeColumnID  int64     `db:"grade_column_id" json:"grade_column_id"`
	QuizID         int64     `db:"quiz_id" json:"quiz_id"`
	WeightOverride *float64  `db:"weight_override" json:"weight_override,omitempty"`
	AssignedBy     *int64    `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedAt     time.Time `db:"assigned_at" json:"assigned_at"`
	QuizTitle      string    `db:"quiz_title" json:"quiz_title,omitempty"`
}
