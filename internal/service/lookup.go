package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

// txRunner scopes a unit of work to one transaction.
type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type courseStaleMarker interface {
	MarkCourseStale(ctx context.Context, courseID int64) (int64, error)
}

// lookupError maps a missing row to NOT_FOUND and anything else to INTERNAL_ERROR.
func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}

func markCourseStale(ctx context.Context, results courseStaleMarker, logger *zap.Logger, courseID int64) error {
	affected, err := results.MarkCourseStale(ctx, courseID)
	if err != nil {
		return appErrors.Internal(err, "failed to mark grade results stale")
	}
	if affected > 0 {
		logger.Debug("grade results marked stale", zap.Int64("course_id", courseID), zap.Int64("results", affected))
	}
	return nil
}
