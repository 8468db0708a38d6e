package service

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/dto"
	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type gradeConfigStore interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	LockByID(ctx context.Context, id int64) (*models.Course, error)
	UpdateGradeConfig(ctx context.Context, id int64, processWeight, finalExamWeight float64) error
}

// GradeConfigService manages a course's process/final exam blend.
type GradeConfigService struct {
	tx        txRunner
	courses   gradeConfigStore
	results   courseStaleMarker
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeConfigService constructs service.
func NewGradeConfigService(tx txRunner, courses gradeConfigStore, results courseStaleMarker, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradeConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeConfigService{tx: tx, courses: courses, results: results, cache: cache, validator: validate, logger: logger}
}

// Get returns the course's config, or the 50/50 default when none is stored.
func (s *GradeConfigService) Get(ctx context.Context, courseID int64) (*models.CourseGradeConfig, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	cfg := course.GradeConfig()
	return &cfg, nil
}

// Update replaces the blend and marks the course's results STALE.
func (s *GradeConfigService) Update(ctx context.Context, courseID int64, req dto.CourseGradeConfigRequest) (*models.CourseGradeConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade config payload")
	}
	process, final := *req.ProcessWeight, *req.FinalExamWeight
	if math.Abs(process+final-100) > weightEpsilon {
		return nil, appErrors.Clone(appErrors.ErrValidation, "process and final exam weights must sum to 100")
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.courses.LockByID(ctx, courseID); err != nil {
			return lookupError(err, "course not found", "failed to lock course")
		}
		if err := s.courses.UpdateGradeConfig(ctx, courseID, process, final); err != nil {
			return lookupError(err, "course not found", "failed to update grade config")
		}
		return markCourseStale(ctx, s.results, s.logger, courseID)
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateCourse(ctx, courseID)
	s.logger.Info("course grade config updated",
		zap.Int64("course_id", courseID),
		zap.Float64("process_weight", process),
		zap.Float64("final_exam_weight", final),
	)
	return &models.CourseGradeConfig{ProcessWeight: process, FinalExamWeight: final}, nil
}
