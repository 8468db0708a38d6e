package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type courseStore interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	LockByID(ctx context.Context, id int64) (*models.Course, error)
}

type gradeColumnStore interface {
	ListByCourse(ctx context.Context, courseID int64, includeInactive bool) ([]models.GradeColumn, error)
	FindByID(ctx context.Context, id int64) (*models.GradeColumn, error)
	OrderTaken(ctx context.Context, courseID int64, order int, excludeID int64) (bool, error)
	Create(ctx context.Context, column *models.GradeColumn) error
	Update(ctx context.Context, column *models.GradeColumn) error
	SetState(ctx context.Context, id int64, state models.ColumnState) error
}

// CreateGradeColumnRequest is the payload for a new grade column. Weights are
// rounded to two decimals before validation, matching what is stored.
type CreateGradeColumnRequest struct {
	Name             string  `json:"name" validate:"required,max=120"`
	Description      *string `json:"description" validate:"omitempty,max=500"`
	WeightPercentage float64 `json:"weight_percentage" validate:"gt=0,lte=100"`
	Order            int     `json:"order" validate:"gt=0"`
}

// UpdateGradeColumnRequest carries the fields to change; nil fields are kept.
type UpdateGradeColumnRequest struct {
	Name             *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Description      *string  `json:"description" validate:"omitempty,max=500"`
	WeightPercentage *float64 `json:"weight_percentage" validate:"omitempty,gt=0,lte=100"`
	Order            *int     `json:"order" validate:"omitempty,gt=0"`
}

// GradeColumnService manages the weighted columns of a course.
type GradeColumnService struct {
	tx        txRunner
	courses   courseStore
	columns   gradeColumnStore
	results   courseStaleMarker
	weights   *WeightValidator
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeColumnService constructs the service.
func NewGradeColumnService(tx txRunner, courses courseStore, columns gradeColumnStore, results courseStaleMarker, weights *WeightValidator, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradeColumnService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeColumnService{tx: tx, courses: courses, columns: columns, results: results, weights: weights, cache: cache, validator: validate, logger: logger}
}

// List returns the course's columns ordered by display order.
func (s *GradeColumnService) List(ctx context.Context, courseID int64, includeInactive bool) ([]models.GradeColumn, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	columns, err := s.columns.ListByCourse(ctx, courseID, includeInactive)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list grade columns")
	}
	if columns == nil {
		columns = []models.GradeColumn{}
	}
	return columns, nil
}

// Get returns a single column.
func (s *GradeColumnService) Get(ctx context.Context, columnID int64) (*models.GradeColumn, error) {
	column, err := s.columns.FindByID(ctx, columnID)
	if err != nil {
		return nil, lookupError(err, "grade column not found", "failed to load grade column")
	}
	return column, nil
}

// ValidateWeightTotal reports the active weight total of a course.
func (s *GradeColumnService) ValidateWeightTotal(ctx context.Context, courseID, excludeColumnID int64) (*models.WeightCheck, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	return s.weights.ValidateWeightTotal(ctx, courseID, excludeColumnID)
}

// Create adds an active column. The course row is locked for the duration of
// the weight check so concurrent creations cannot both pass it.
func (s *GradeColumnService) Create(ctx context.Context, courseID int64, req CreateGradeColumnRequest) (*models.GradeColumn, error) {
	req.WeightPercentage = roundScore(req.WeightPercentage)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade column payload")
	}
	column := &models.GradeColumn{
		CourseID:         courseID,
		Name:             req.Name,
		Description:      req.Description,
		WeightPercentage: req.WeightPercentage,
		Order:            req.Order,
		State:            models.ColumnStateActive,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.courses.LockByID(ctx, courseID); err != nil {
			return lookupError(err, "course not found", "failed to lock course")
		}
		if err := s.admit(ctx, column, 0); err != nil {
			return err
		}
		if err := s.columns.Create(ctx, column); err != nil {
			return appErrors.Internal(err, "failed to create grade column")
		}
		return markCourseStale(ctx, s.results, s.logger, courseID)
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateCourse(ctx, courseID)
	s.logger.Info("grade column created",
		zap.Int64("course_id", courseID),
		zap.Int64("column_id", column.ID),
		zap.Float64("weight", column.WeightPercentage),
	)
	return column, nil
}

// Update changes a column's attributes. Weight and order constraints are only
// enforced while the column is active.
func (s *GradeColumnService) Update(ctx context.Context, columnID int64, req UpdateGradeColumnRequest) (*models.GradeColumn, error) {
	req.WeightPercentage = roundPtr(req.WeightPercentage)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade column payload")
	}
	var column *models.GradeColumn
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.columns.FindByID(ctx, columnID)
		if err != nil {
			return lookupError(err, "grade column not found", "failed to load grade column")
		}
		if _, err := s.courses.LockByID(ctx, current.CourseID); err != nil {
			return lookupError(err, "course not found", "failed to lock course")
		}
		if req.Name != nil {
			current.Name = *req.Name
		}
		if req.Description != nil {
			current.Description = req.Description
		}
		if req.WeightPercentage != nil {
			current.WeightPercentage = *req.WeightPercentage
		}
		if req.Order != nil {
			current.Order = *req.Order
		}
		if current.Active() {
			if err := s.admit(ctx, current, current.ID); err != nil {
				return err
			}
		}
		if err := s.columns.Update(ctx, current); err != nil {
			return lookupError(err, "grade column not found", "failed to update grade column")
		}
		column = current
		return markCourseStale(ctx, s.results, s.logger, current.CourseID)
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateCourse(ctx, column.CourseID)
	s.logger.Info("grade column updated", zap.Int64("course_id", column.CourseID), zap.Int64("column_id", column.ID))
	return column, nil
}

// Deactivate soft-deletes a column. Assignments and history are kept and the
// column stops contributing to the process average.
func (s *GradeColumnService) Deactivate(ctx context.Context, columnID int64) (*models.GradeColumn, error) {
	return s.transition(ctx, columnID, models.ColumnStateDeactivated)
}

// Activate restores a deactivated column, re-checking weight and order.
func (s *GradeColumnService) Activate(ctx context.Context, columnID int64) (*models.GradeColumn, error) {
	return s.transition(ctx, columnID, models.ColumnStateActive)
}

func (s *GradeColumnService) transition(ctx context.Context, columnID int64, target models.ColumnState) (*models.GradeColumn, error) {
	var column *models.GradeColumn
	changed := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.columns.FindByID(ctx, columnID)
		if err != nil {
			return lookupError(err, "grade column not found", "failed to load grade column")
		}
		column = current
		if current.State == target {
			return nil
		}
		if _, err := s.courses.LockByID(ctx, current.CourseID); err != nil {
			return lookupError(err, "course not found", "failed to lock course")
		}
		if target == models.ColumnStateActive {
			if err := s.admit(ctx, current, current.ID); err != nil {
				return err
			}
		}
		if err := s.columns.SetState(ctx, current.ID, target); err != nil {
			return lookupError(err, "grade column not found", "failed to change grade column state")
		}
		current.State = target
		changed = true
		return markCourseStale(ctx, s.results, s.logger, current.CourseID)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.cache.InvalidateCourse(ctx, column.CourseID)
		s.logger.Info("grade column state changed",
			zap.Int64("course_id", column.CourseID),
			zap.Int64("column_id", column.ID),
			zap.String("state", string(target)),
		)
	}
	return column, nil
}

// admit checks that column can be active alongside the course's other active
// columns: its order must be free and the weight total must stay within 100%.
func (s *GradeColumnService) admit(ctx context.Context, column *models.GradeColumn, excludeID int64) error {
	taken, err := s.columns.OrderTaken(ctx, column.CourseID, column.Order, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check grade column order")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("order %d is already used by an active grade column", column.Order))
	}
	check, ok, err := s.weights.fits(ctx, column.CourseID, excludeID, column.WeightPercentage)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(
			"weight %.2f%% would bring active grade columns to %.2f%%, limit is %.0f%% (currently %.2f%%)",
			column.WeightPercentage, check.CurrentTotal+column.WeightPercentage, models.MaxWeightTotal, check.CurrentTotal,
		))
	}
	return nil
}
