package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/toporia/async/job"
)

// Logging returns middleware that logs job start and completion.
// Timeout failures are logged as a distinct event so they can be told
// apart from handler logic errors.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		logger.Info("job started",
			slog.String("job_name", j.Name),
			slog.String("job_id", j.ID.String()),
			slog.String("queue", j.Queue),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			logger.Error("job timed out",
				slog.String("job_name", j.Name),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.Duration("timeout", j.Timeout),
			)
		case err != nil:
			logger.Error("job failed",
				slog.String("job_name", j.Name),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		default:
			logger.Info("job completed",
				slog.String("job_name", j.Name),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
