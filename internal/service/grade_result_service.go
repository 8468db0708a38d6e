package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/dto"
	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

const (
	outcomeComputed = "computed"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type activeColumnLister interface {
	ListByCourse(ctx context.Context, courseID int64, includeInactive bool) ([]models.GradeColumn, error)
	FindByID(ctx context.Context, id int64) (*models.GradeColumn, error)
}

type gradeResultStore interface {
	Find(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error)
	FindForUpdate(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error)
	Upsert(ctx context.Context, result *models.GradeResult) error
	UpdateFinalExam(ctx context.Context, result *models.GradeResult) error
	MarkStale(ctx context.Context, courseID, studentID int64) (int64, error)
	MarkCourseStale(ctx context.Context, courseID int64) (int64, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.GradeResultRow, error)
}

type courseStudentLister interface {
	ListStudentIDsByCourse(ctx context.Context, courseID int64) ([]int64, error)
}

type quizAssignmentFinder interface {
	FindByQuiz(ctx context.Context, quizID int64) (*models.ColumnQuiz, error)
	QuizIDsByColumn(ctx context.Context, columnID int64) ([]int64, error)
}

// RecomputeDispatcher schedules a background recalculation for one student.
type RecomputeDispatcher interface {
	Enqueue(courseID, studentID int64) (bool, error)
}

// GradeResultDeps groups the collaborators of GradeResultService.
type GradeResultDeps struct {
	Tx          txRunner
	Courses     courseReader
	Columns     activeColumnLister
	Results     gradeResultStore
	Students    courseStudentLister
	Quizzes     quizReader
	Assignments quizAssignmentFinder
	Averager    *ColumnAverager
	Cache       *CacheService
	Metrics     *MetricsService
	CacheTTL    time.Duration
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// GradeResultService aggregates column averages into persisted course grades.
type GradeResultService struct {
	tx          txRunner
	courses     courseReader
	columns     activeColumnLister
	results     gradeResultStore
	students    courseStudentLister
	quizzes     quizReader
	assignments quizAssignmentFinder
	averager    *ColumnAverager
	cache       *CacheService
	metrics     *MetricsService
	cacheTTL    time.Duration
	dispatcher  RecomputeDispatcher
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeResultService constructs the aggregator.
func NewGradeResultService(deps GradeResultDeps) *GradeResultService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &GradeResultService{
		tx:          deps.Tx,
		courses:     deps.Courses,
		columns:     deps.Columns,
		results:     deps.Results,
		students:    deps.Students,
		quizzes:     deps.Quizzes,
		assignments: deps.Assignments,
		averager:    deps.Averager,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		cacheTTL:    deps.CacheTTL,
		validator:   deps.Validator,
		logger:      deps.Logger,
	}
}

// SetDispatcher enables background recomputation. A nil dispatcher disables it.
func (s *GradeResultService) SetDispatcher(d RecomputeDispatcher) {
	s.dispatcher = d
}

// CalculateAndSaveResult recomputes a student's course result from the current
// column averages and persists it as COMPUTED. Running it twice on unchanged
// inputs yields the same stored values.
func (s *GradeResultService) CalculateAndSaveResult(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error) {
	start := time.Now()
	var result *models.GradeResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.calculate(ctx, courseID, studentID)
		return err
	})
	s.metrics.ObserveGradeCalculation(calculationOutcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateCourse(ctx, courseID)
	fields := []zap.Field{zap.Int64("course_id", courseID), zap.Int64("student_id", studentID)}
	if result.TotalScore != nil {
		fields = append(fields, zap.Float64("total_score", *result.TotalScore))
	}
	s.logger.Info("grade result calculated", fields...)
	return result, nil
}

func (s *GradeResultService) calculate(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	cfg, err := resolveGradeConfig(course)
	if err != nil {
		return nil, err
	}
	columns, err := s.columns.ListByCourse(ctx, courseID, false)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list grade columns")
	}
	if len(columns) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no grade columns defined for course")
	}

	averages, process, err := s.processAverage(ctx, columns, studentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.results.FindForUpdate(ctx, courseID, studentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load grade result")
	}

	result := &models.GradeResult{
		CourseID:       courseID,
		StudentID:      studentID,
		ColumnAverages: averages,
		ProcessAverage: process,
		Status:         models.ResultStatusComputed,
		LastUpdated:    time.Now().UTC(),
	}
	if existing != nil {
		result.ID = existing.ID
		result.CreatedAt = existing.CreatedAt
		result.FinalExamScore = existing.FinalExamScore
	}
	result.TotalScore, result.Grade = blend(result.ProcessAverage, result.FinalExamScore, cfg)
	roundForStorage(result)

	if err := s.results.Upsert(ctx, result); err != nil {
		return nil, appErrors.Internal(err, "failed to save grade result")
	}
	return result, nil
}

// processAverage returns each column's exact average and their weighted sum.
// The sum is nil when no column has a result.
func (s *GradeResultService) processAverage(ctx context.Context, columns []models.GradeColumn, studentID int64) (models.ColumnAverages, *float64, error) {
	averages := make(models.ColumnAverages, len(columns))
	var process *float64
	for _, column := range columns {
		avg, err := s.averager.AverageForStudent(ctx, column.ID, studentID)
		if err != nil {
			return nil, nil, err
		}
		averages[column.ID] = avg
		if avg == nil {
			continue
		}
		if process == nil {
			process = new(float64)
		}
		*process += *avg * column.WeightPercentage / 100
	}
	return averages, process, nil
}

// UpdateFinalExamScore stores the final exam score and re-blends the total.
// A COMPUTED result is blended from the exact process average when it still
// rounds to the stored one; otherwise the stored value is used. The status is
// left as is.
func (s *GradeResultService) UpdateFinalExamScore(ctx context.Context, courseID, studentID int64, req dto.FinalExamScoreRequest) (*models.GradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "final exam score must be between 0 and 10")
	}
	score := roundScore(*req.Score)
	var result *models.GradeResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		course, err := s.courses.FindByID(ctx, courseID)
		if err != nil {
			return lookupError(err, "course not found", "failed to load course")
		}
		cfg, err := resolveGradeConfig(course)
		if err != nil {
			return err
		}
		current, err := s.results.FindForUpdate(ctx, courseID, studentID)
		if err != nil {
			return lookupError(err, "grade result not found, calculate it first", "failed to load grade result")
		}
		process := current.ProcessAverage
		if current.Status == models.ResultStatusComputed && process != nil {
			columns, err := s.columns.ListByCourse(ctx, courseID, false)
			if err != nil {
				return appErrors.Internal(err, "failed to list grade columns")
			}
			_, exact, err := s.processAverage(ctx, columns, studentID)
			if err != nil {
				return err
			}
			if exact != nil && roundScore(*exact) == *process {
				process = exact
			}
		}
		current.FinalExamScore = &score
		current.TotalScore, current.Grade = blend(process, current.FinalExamScore, cfg)
		current.TotalScore = roundPtr(current.TotalScore)
		current.LastUpdated = time.Now().UTC()
		if err := s.results.UpdateFinalExam(ctx, current); err != nil {
			return lookupError(err, "grade result not found", "failed to save final exam score")
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateCourse(ctx, courseID)
	s.logger.Info("final exam score updated",
		zap.Int64("course_id", courseID),
		zap.Int64("student_id", studentID),
		zap.Float64("score", score),
	)
	return result, nil
}

// GetCourseResults lists every persisted result of a course ordered by student name.
func (s *GradeResultService) GetCourseResults(ctx context.Context, courseID int64) ([]models.GradeResultRow, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	key := CourseResultsKey(courseID)
	var cached []models.GradeResultRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	start := time.Now()
	rows, err := s.results.ListByCourse(ctx, courseID)
	s.metrics.ObserveDBQuery("grade_results_by_course", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list grade results")
	}
	if rows == nil {
		rows = []models.GradeResultRow{}
	}
	_ = s.cache.Set(ctx, key, rows, s.cacheTTL)
	return rows, nil
}

// GetStudentResult returns a student's result, reporting UNCOMPUTED when none exists.
func (s *GradeResultService) GetStudentResult(ctx context.Context, courseID, studentID int64) (*dto.StudentGradeResponse, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	resp := &dto.StudentGradeResponse{CourseID: courseID, StudentID: studentID}
	result, err := s.results.Find(ctx, courseID, studentID)
	switch {
	case err == nil:
		resp.Result = result
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to load grade result")
	}
	resp.Status = models.StatusOf(resp.Result)
	return resp, nil
}

// ColumnAverage exposes a student's average for one column.
func (s *GradeResultService) ColumnAverage(ctx context.Context, columnID, studentID int64) (*dto.ColumnAverageResponse, error) {
	if _, err := s.columns.FindByID(ctx, columnID); err != nil {
		return nil, lookupError(err, "grade column not found", "failed to load grade column")
	}
	quizIDs, err := s.assignments.QuizIDsByColumn(ctx, columnID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load column quizzes")
	}
	avg, count, err := s.averager.average(ctx, columnID, studentID)
	if err != nil {
		return nil, err
	}
	return &dto.ColumnAverageResponse{
		ColumnID:    columnID,
		StudentID:   studentID,
		Average:     roundPtr(avg),
		QuizCount:   len(quizIDs),
		ResultCount: count,
	}, nil
}

// RecalculateCourse recomputes every student with a result or quiz attempt in
// the course. With async set and a dispatcher configured, work is queued.
func (s *GradeResultService) RecalculateCourse(ctx context.Context, courseID int64, async bool) (*dto.RecalculationSummary, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	studentIDs, err := s.students.ListStudentIDsByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list course students")
	}
	summary := &dto.RecalculationSummary{CourseID: courseID, Students: len(studentIDs), Failed: []dto.RecalculationFailure{}}

	if async && s.dispatcher != nil {
		for _, studentID := range studentIDs {
			if _, err := s.dispatcher.Enqueue(courseID, studentID); err != nil {
				return nil, appErrors.Internal(err, "failed to queue recalculation")
			}
			summary.Queued++
		}
		s.logger.Info("course recalculation queued", zap.Int64("course_id", courseID), zap.Int("students", summary.Queued))
		return summary, nil
	}

	for _, studentID := range studentIDs {
		if _, err := s.CalculateAndSaveResult(ctx, courseID, studentID); err != nil {
			appErr := appErrors.FromError(err)
			if appErr.Code == appErrors.ErrInternal.Code {
				return nil, err
			}
			summary.Failed = append(summary.Failed, dto.RecalculationFailure{StudentID: studentID, Code: appErr.Code, Message: appErr.Message})
			continue
		}
		summary.Computed++
	}
	s.logger.Info("course recalculated",
		zap.Int64("course_id", courseID),
		zap.Int("computed", summary.Computed),
		zap.Int("failed", len(summary.Failed)),
	)
	return summary, nil
}

// NotifyQuizResultChanged marks the student's result STALE when the quiz
// feeds an active column of the course, and queues a recompute if enabled.
func (s *GradeResultService) NotifyQuizResultChanged(ctx context.Context, courseID int64, req dto.QuizResultChangedRequest) (*dto.QuizResultChangeAck, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz result notification")
	}
	quiz, err := s.quizzes.FindByID(ctx, req.QuizID)
	if err != nil {
		return nil, lookupError(err, "quiz not found", "failed to load quiz")
	}
	if quiz.CourseID != courseID {
		return nil, appErrors.Clone(appErrors.ErrCrossCourse, fmt.Sprintf("quiz %d belongs to course %d, not %d", quiz.ID, quiz.CourseID, courseID))
	}
	ack := &dto.QuizResultChangeAck{CourseID: courseID, StudentID: req.StudentID, QuizID: quiz.ID}

	assignment, err := s.assignments.FindByQuiz(ctx, quiz.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ack, nil
		}
		return nil, appErrors.Internal(err, "failed to load quiz assignment")
	}
	column, err := s.columns.FindByID(ctx, assignment.GradeColumnID)
	if err != nil {
		return nil, lookupError(err, "grade column not found", "failed to load grade column")
	}
	ack.ColumnID = &column.ID
	if !column.Active() {
		return ack, nil
	}
	ack.Contributing = true

	affected, err := s.results.MarkStale(ctx, courseID, req.StudentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to mark grade result stale")
	}
	ack.MarkedStale = affected > 0
	s.cache.InvalidateCourse(ctx, courseID)

	if s.dispatcher != nil {
		queued, err := s.dispatcher.Enqueue(courseID, req.StudentID)
		if err != nil {
			s.logger.Warn("failed to queue grade recompute",
				zap.Int64("course_id", courseID),
				zap.Int64("student_id", req.StudentID),
				zap.Error(err),
			)
		}
		ack.Queued = queued
	}
	return ack, nil
}

func resolveGradeConfig(course *models.Course) (models.CourseGradeConfig, error) {
	cfg := course.GradeConfig()
	if cfg.IsDefault {
		return cfg, nil
	}
	if cfg.ProcessWeight < 0 || cfg.FinalExamWeight < 0 || math.Abs(cfg.ProcessWeight+cfg.FinalExamWeight-100) > weightEpsilon {
		return cfg, appErrors.Clone(appErrors.ErrValidation, "course grade config weights must sum to 100")
	}
	return cfg, nil
}

// blend combines the process average and final exam score at full precision
// and grades the unrounded total. Both inputs must be set.
func blend(process, finalExam *float64, cfg models.CourseGradeConfig) (*float64, *models.LetterGrade) {
	if process == nil || finalExam == nil {
		return nil, nil
	}
	total := *process*cfg.ProcessWeight/100 + *finalExam*cfg.FinalExamWeight/100
	letter := LetterGradeFor(total)
	return &total, &letter
}

func calculationOutcome(err error) string {
	if err == nil {
		return outcomeComputed
	}
	if appErrors.FromError(err).Code == appErrors.ErrInternal.Code {
		return outcomeFailed
	}
	return outcomeRejected
}
