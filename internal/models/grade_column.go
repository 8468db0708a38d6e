package models

import "time"

// ColumnState is the lifecycle state of a grade column.
type ColumnState string

const (
	ColumnStateActive      ColumnState = "ACTIVE"
	ColumnStateDeactivated ColumnState = "DEACTIVATED"
)

// MaxWeightTotal caps the sum of active column weights for a course.
const MaxWeightTotal = 100.0

// GradeColumn is a named, weighted component of a course's process grade.
type GradeColumn struct {
	ID               int64       `db:"id" json:"id"`
	CourseID         int64       `db:"course_id" json:"course_id"`
	Name             string      `db:"name" json:"name"`
	Description      *string     `db:"description" json:"description,omitempty"`
	WeightPercentage float64     `db:"weight_percentage" json:"weight_percentage"`
	Order            int         `db:"display_order" json:"order"`
	State            ColumnState `db:"state" json:"state"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// Active reports whether the column contributes to the process average.
func (c *GradeColumn) Active() bool {
	return c != nil && c.State == ColumnStateActive
}

// WeightCheck is the outcome of summing a course's active column weights.
type WeightCheck struct {
	IsValid      bool    `json:"is_valid"`
	CurrentTotal float64 `json:"current_total"`
}
