package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type quizReader interface {
	FindByID(ctx context.Context, id int64) (*models.Quiz, error)
}

type gradeColumnReader interface {
	FindByID(ctx context.Context, id int64) (*models.GradeColumn, error)
}

type columnQuizStore interface {
	FindByQuiz(ctx context.Context, quizID int64) (*models.ColumnQuiz, error)
	ListByColumn(ctx context.Context, columnID int64) ([]models.ColumnQuiz, error)
	Create(ctx context.Context, assignment *models.ColumnQuiz) error
	Delete(ctx context.Context, columnID, quizID int64) error
}

// AssignQuizRequest is the payload for attaching a quiz to a grade column.
type AssignQuizRequest struct {
	QuizID         int64    `json:"quiz_id" validate:"required,gt=0"`
	WeightOverride *float64 `json:"weight_override" validate:"omitempty,gt=0,lte=100"`
}

// ColumnQuizService manages which quizzes feed each grade column.
type ColumnQuizService struct {
	tx          txRunner
	columns     gradeColumnReader
	quizzes     quizReader
	assignments columnQuizStore
	results     courseStaleMarker
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewColumnQuizService constructs the service.
func NewColumnQuizService(tx txRunner, columns gradeColumnReader, quizzes quizReader, assignments columnQuizStore, results courseStaleMarker, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ColumnQuizService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColumnQuizService{tx: tx, columns: columns, quizzes: quizzes, assignments: assignments, results: results, cache: cache, validator: validate, logger: logger}
}

// ListForColumn returns a column's assignments in assignment order.
func (s *ColumnQuizService) ListForColumn(ctx context.Context, columnID int64) ([]models.ColumnQuiz, error) {
	if _, err := s.columns.FindByID(ctx, columnID); err != nil {
		return nil, lookupError(err, "grade column not found", "failed to load grade column")
	}
	assignments, err := s.assignments.ListByColumn(ctx, columnID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list column quizzes")
	}
	if assignments == nil {
		assignments = []models.ColumnQuiz{}
	}
	return assignments, nil
}

// Assign attaches a quiz to a column. Re-assigning a quiz to the column that
// already holds it returns the existing assignment with created=false.
func (s *ColumnQuizService) Assign(ctx context.Context, columnID int64, req AssignQuizRequest, assignedBy int64) (*models.ColumnQuiz, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz assignment payload")
	}
	var (
		assignment *models.ColumnQuiz
		column     *models.GradeColumn
		created    bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		column, err = s.columns.FindByID(ctx, columnID)
		if err != nil {
			return lookupError(err, "grade column not found", "failed to load grade column")
		}
		quiz, err := s.quizzes.FindByID(ctx, req.QuizID)
		if err != nil {
			return lookupError(err, "quiz not found", "failed to load quiz")
		}
		if quiz.CourseID != column.CourseID {
			return appErrors.Clone(appErrors.ErrCrossCourse, fmt.Sprintf("quiz %d belongs to course %d, grade column %d belongs to course %d", quiz.ID, quiz.CourseID, column.ID, column.CourseID))
		}

		existing, err := s.assignments.FindByQuiz(ctx, quiz.ID)
		switch {
		case err == nil && existing.GradeColumnID == column.ID:
			assignment = existing
			return nil
		case err == nil:
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("quiz %d is already assigned to grade column %d", quiz.ID, existing.GradeColumnID))
		case !errors.Is(err, sql.ErrNoRows):
			return appErrors.Internal(err, "failed to load quiz assignment")
		}

		if !column.Active() {
			return appErrors.Clone(appErrors.ErrValidation, "cannot assign quizzes to a deactivated grade column")
		}

		assignment = &models.ColumnQuiz{
			GradeColumnID:  column.ID,
			QuizID:         quiz.ID,
			WeightOverride: req.WeightOverride,
			QuizTitle:      quiz.Title,
		}
		if assignedBy > 0 {
			assignment.AssignedBy = &assignedBy
		}
		if err := s.assignments.Create(ctx, assignment); err != nil {
			if errors.Is(err, appErrors.ErrConflict) {
				return err
			}
			return appErrors.Internal(err, "failed to assign quiz")
		}
		created = true
		return markCourseStale(ctx, s.results, s.logger, column.CourseID)
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.cache.InvalidateCourse(ctx, column.CourseID)
		s.logger.Info("quiz assigned to grade column",
			zap.Int64("course_id", column.CourseID),
			zap.Int64("column_id", column.ID),
			zap.Int64("quiz_id", assignment.QuizID),
		)
	}
	return assignment, created, nil
}

// Unassign detaches a quiz from a column.
func (s *ColumnQuizService) Unassign(ctx context.Context, columnID, quizID int64) error {
	var column *models.GradeColumn
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		column, err = s.columns.FindByID(ctx, columnID)
		if err != nil {
			return lookupError(err, "grade column not found", "failed to load grade column")
		}
		if err := s.assignments.Delete(ctx, columnID, quizID); err != nil {
			return lookupError(err, "quiz is not assigned to this grade column", "failed to unassign quiz")
		}
		return markCourseStale(ctx, s.results, s.logger, column.CourseID)
	})
	if err != nil {
		return err
	}
	s.cache.InvalidateCourse(ctx, column.CourseID)
	s.logger.Info("quiz unassigned from grade column",
		zap.Int64("course_id", column.CourseID),
		zap.Int64("column_id", columnID),
		zap.Int64("quiz_id", quizID),
	)
	return nil
}
