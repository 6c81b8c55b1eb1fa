package outbox

import (
	"context"
	"log/slog"
)

// LogProducer stands in for a broker in local runs: every message is logged
// and acknowledged.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if p.Logger != nil {
		p.Logger.InfoContext(ctx, "outbox event", "topic", topic, "key", key, "bytes", len(payload), "headers", len(headers))
	}
	return nil
}
