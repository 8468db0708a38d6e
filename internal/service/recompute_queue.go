package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
	"github.com/noah-isme/lms-grading-api/pkg/jobs"
)

const recomputeJobType = "grade_result.recompute"

type resultCalculator interface {
	CalculateAndSaveResult(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error)
}

type recomputePayload struct {
	CourseID  int64
	StudentID int64
}

// RecomputeQueueConfig sizes the background worker pool.
type RecomputeQueueConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// RecomputeQueue runs grade recalculations off the request path.
type RecomputeQueue struct {
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRecomputeQueue builds a queue that feeds calc. Start must be called before Enqueue.
func NewRecomputeQueue(calc resultCalculator, cfg RecomputeQueueConfig, metrics *MetricsService, logger *zap.Logger) *RecomputeQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	rq := &RecomputeQueue{metrics: metrics, logger: logger}
	rq.queue = jobs.NewQueue("grade-recompute", rq.handler(calc), jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return rq
}

func (q *RecomputeQueue) handler(calc resultCalculator) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		q.metrics.SetRecomputePending(q.queue.Pending())
		payload, ok := job.Payload.(recomputePayload)
		if !ok {
			return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
		}
		_, err := calc.CalculateAndSaveResult(ctx, payload.CourseID, payload.StudentID)
		if err == nil {
			return nil
		}
		// Only infrastructure failures are worth another attempt.
		if appErrors.FromError(err).Code != appErrors.ErrInternal.Code {
			return jobs.Permanent(err)
		}
		return err
	}
}

// Start launches the workers.
func (q *RecomputeQueue) Start(ctx context.Context) {
	q.queue.Start(ctx)
}

// Stop waits for in-flight recalculations to finish.
func (q *RecomputeQueue) Stop() {
	q.queue.Stop()
}

// Enqueue schedules a recalculation. Requests for a student already waiting
// in the queue are coalesced and report false.
func (q *RecomputeQueue) Enqueue(courseID, studentID int64) (bool, error) {
	queued, err := q.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    recomputeJobType,
		Key:     fmt.Sprintf("%d:%d", courseID, studentID),
		Payload: recomputePayload{CourseID: courseID, StudentID: studentID},
	})
	if err != nil {
		return false, err
	}
	q.metrics.SetRecomputePending(q.queue.Pending())
	if queued {
		q.logger.Debug("grade recompute queued", zap.Int64("course_id", courseID), zap.Int64("student_id", studentID))
	}
	return queued, nil
}
