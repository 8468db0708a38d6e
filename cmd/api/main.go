package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/handler"
	"github.com/noah-isme/lms-grading-api/internal/repository"
	"github.com/noah-isme/lms-grading-api/internal/service"
	"github.com/noah-isme/lms-grading-api/pkg/cache"
	"github.com/noah-isme/lms-grading-api/pkg/config"
	"github.com/noah-isme/lms-grading-api/pkg/database"
	"github.com/noah-isme/lms-grading-api/pkg/export"
	"github.com/noah-isme/lms-grading-api/pkg/logger"
)

// @title LMS Grading API
// @version 1.0.0
// @description Weighted grade columns, quiz assignment and course grade results.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	cacheRepo, redisClient := newCacheRepository(ctx, cfg, logr)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Grades.CacheTTL, logr.Named("cache"), cfg.Grades.CacheEnabled)

	app := wire(cfg, db, cacheSvc, metrics, logr)

	var queue *service.RecomputeQueue
	var sweeper *service.StaleSweeper
	if cfg.Grades.AsyncRecompute {
		queue = service.NewRecomputeQueue(app.results, service.RecomputeQueueConfig{
			Workers:    cfg.Grades.RecomputeWorkers,
			MaxRetries: cfg.Grades.RecomputeRetries,
			RetryDelay: cfg.Grades.RecomputeRetryWait,
		}, metrics, logr.Named("recompute"))
		queue.Start(ctx)
		app.results.SetDispatcher(queue)

		if cfg.Grades.StaleSweepSchedule != "" {
			sweeper = service.NewStaleSweeper(app.resultRepo, queue, service.StaleSweeperConfig{Schedule: cfg.Grades.StaleSweepSchedule}, logr.Named("sweeper"))
			if err := sweeper.Start(); err != nil {
				return err
			}
		}
	}

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = cache.Probe{Client: redisClient}
	}
	router := newRouter(cfg, logr, metrics, app, handler.NewMetricsHandler(metrics, checks))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server forced to shutdown", zap.Error(err))
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if queue != nil {
		queue.Stop()
	}
	logr.Info("server exited")
	return nil
}

// newCacheRepository picks the cache backend. Redis failures fall back to the
// in-process cache so the API stays available.
func newCacheRepository(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.CacheRepository, *redis.Client) {
	memory := func() service.CacheRepository {
		return repository.NewMemoryCacheRepository(cfg.Grades.CacheTTL, 2*cfg.Grades.CacheTTL)
	}
	if !cfg.Grades.CacheEnabled || cfg.Grades.CacheBackend == "memory" {
		return memory(), nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-memory grade cache", zap.Error(err))
		return memory(), nil
	}
	return repository.NewCacheRepository(client, "lms", logr.Named("redis")), client
}

type application struct {
	tokens     *service.TokenService
	columns    *service.GradeColumnService
	quizzes    *service.ColumnQuizService
	results    *service.GradeResultService
	resultRepo *repository.GradeResultRepository
	configs    *service.GradeConfigService
	exports    *service.ExportService
}

func wire(cfg *config.Config, db *sqlx.DB, cacheSvc *service.CacheService, metrics *service.MetricsService, logr *zap.Logger) *application {
	validate := validator.New()
	tx := database.NewTransactor(db)

	courseRepo := repository.NewCourseRepository(db)
	columnRepo := repository.NewGradeColumnRepository(db)
	assignmentRepo := repository.NewColumnQuizRepository(db)
	resultRepo := repository.NewGradeResultRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	quizResultRepo := repository.NewQuizResultRepository(db)

	weights := service.NewWeightValidator(columnRepo)
	averager := service.NewColumnAverager(assignmentRepo, quizResultRepo)

	results := service.NewGradeResultService(service.GradeResultDeps{
		Tx:          tx,
		Courses:     courseRepo,
		Columns:     columnRepo,
		Results:     resultRepo,
		Students:    quizResultRepo,
		Quizzes:     quizRepo,
		Assignments: assignmentRepo,
		Averager:    averager,
		Cache:       cacheSvc,
		Metrics:     metrics,
		CacheTTL:    cfg.Grades.CacheTTL,
		Validator:   validate,
		Logger:      logr.Named("grade_results"),
	})

	return &application{
		tokens: service.NewTokenService(service.TokenConfig{
			Secret: cfg.JWT.Secret,
			Expiry: cfg.JWT.Expiration,
			Issuer: cfg.JWT.Issuer,
		}),
		columns:    service.NewGradeColumnService(tx, courseRepo, columnRepo, resultRepo, weights, cacheSvc, validate, logr.Named("grade_columns")),
		quizzes:    service.NewColumnQuizService(tx, columnRepo, quizRepo, assignmentRepo, resultRepo, cacheSvc, validate, logr.Named("column_quizzes")),
		results:    results,
		resultRepo: resultRepo,
		configs:    service.NewGradeConfigService(tx, courseRepo, resultRepo, cacheSvc, validate, logr.Named("grade_config")),
		exports:    service.NewExportService(courseRepo, columnRepo, results, cfg.Exports.Enabled, logr.Named("export"), csvExporter(cfg.Exports), export.NewPDFExporter()),
	}
}

func csvExporter(cfg config.ExportsConfig) *export.CSVExporter {
	var opts []export.CSVOption
	if r := []rune(cfg.CSVDelimiter); len(r) == 1 {
		opts = append(opts, export.WithComma(r[0]))
	}
	if cfg.CSVBOM {
		opts = append(opts, export.WithBOM())
	}
	return export.NewCSVExporter(opts...)
}
