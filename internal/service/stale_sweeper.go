package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

const defaultSweepBatch = 200

type staleResultLister interface {
	ListStale(ctx context.Context, limit int) ([]models.ResultRef, error)
	MarkSweepAttempted(ctx context.Context, refs []models.ResultRef, at time.Time) error
}

// StaleSweeperConfig controls how often stale results are re-queued.
type StaleSweeperConfig struct {
	Schedule  string
	BatchSize int
	Timeout   time.Duration
}

// StaleSweeper periodically hands STALE results to the recompute dispatcher,
// catching changes that were marked but never enqueued.
type StaleSweeper struct {
	results    staleResultLister
	dispatcher RecomputeDispatcher
	cfg        StaleSweeperConfig
	cron       *cron.Cron
	logger     *zap.Logger
}

// NewStaleSweeper constructs a sweeper. Start registers the schedule.
func NewStaleSweeper(results staleResultLister, dispatcher RecomputeDispatcher, cfg StaleSweeperConfig, logger *zap.Logger) *StaleSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultSweepBatch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	return &StaleSweeper{
		results:    results,
		dispatcher: dispatcher,
		cfg:        cfg,
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger:     logger,
	}
}

// Start schedules the sweep, e.g. "@every 5m".
func (s *StaleSweeper) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Warn("stale result sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule stale sweep %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info("stale result sweeper started", zap.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *StaleSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep enqueues one batch of stale results and reports how many were queued.
// The batch is stamped first so rows whose recompute keeps failing rotate to
// the back instead of filling every following batch.
func (s *StaleSweeper) Sweep(ctx context.Context) (int, error) {
	refs, err := s.results.ListStale(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if err := s.results.MarkSweepAttempted(ctx, refs, time.Now().UTC()); err != nil {
		return 0, err
	}
	queued := 0
	for _, ref := range refs {
		ok, err := s.dispatcher.Enqueue(ref.CourseID, ref.StudentID)
		if err != nil {
			return queued, fmt.Errorf("enqueue course %d student %d: %w", ref.CourseID, ref.StudentID, err)
		}
		if ok {
			queued++
		}
	}
	if queued > 0 {
		s.logger.Info("stale grade results queued", zap.Int("queued", queued), zap.Int("found", len(refs)))
	}
	return queued, nil
}
