package models

import "time"

const (
	// DefaultProcessWeight applies when a course has no grade config.
	DefaultProcessWeight = 50.0
	// DefaultFinalExamWeight applies when a course has no grade config.
	DefaultFinalExamWeight = 50.0
)

// Course is the owner of grade columns and grade results.
type Course struct {
	ID              int64     `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	Name            string    `db:"name" json:"name"`
	ProcessWeight   *float64  `db:"grade_process_weight" json:"-"`
	FinalExamWeight *float64  `db:"grade_final_exam_weight" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CourseGradeConfig blends the process average with the final exam score.
type CourseGradeConfig struct {
	ProcessWeight   float64 `json:"process_weight"`
	FinalExamWeight float64 `json:"final_exam_weight"`
	IsDefault       bool    `json:"is_default"`
}

// GradeConfig returns the stored weights, or the 50/50 default when unset.
func (c *Course) GradeConfig() CourseGradeConfig {
	if c == nil || (c.ProcessWeight == nil && c.FinalExamWeight == nil) {
		return CourseGradeConfig{ProcessWeight: DefaultProcessWeight, FinalExamWeight: DefaultFinalExamWeight, IsDefault: true}
	}
	cfg := CourseGradeConfig{}
	if c.ProcessWeight != nil {
		cfg.ProcessWeight = *c.ProcessWeight
	}
	if c.FinalExamWeight != nil {
		cfg.FinalExamWeight = *c.FinalExamWeight
	}
	return cfg
}

// Quiz is owned by a course; scores come from the quiz-results collaborator.
type Quiz struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// QuizResult is a student's score for a quiz on the 0-10 scale.
type QuizResult struct {
	ID          int64     `db:"id" json:"id"`
	QuizID      int64     `db:"quiz_id" json:"quiz_id"`
	StudentID   int64     `db:"user_id" json:"student_id"`
	Score       float64   `db:"score" json:"score"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}
