package middleware

import (
	"context"
	"log/slog"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/outbox"
)

// OutboxFlush nudges the publisher after a command committed. A flush
// failure is logged only: the records are durable and the next poll
// picks them up.
func OutboxFlush(flusher outbox.Flusher, logger *slog.Logger) CommandMiddleware {
	if flusher == nil {
		panic("middleware: outbox flusher required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := flusher.Flush(ctx); err != nil && logger != nil {
				logger.Warn("outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
