package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// backoff controls how long startup waits for a dependency to come up.
type backoff struct {
	attempts int
	initial  time.Duration
	max      time.Duration
	timeout  time.Duration // per ping
}

// startupBackoff covers a MariaDB or Redis container that is still booting
// when the app container starts.
var startupBackoff = backoff{
	attempts: 10,
	initial:  time.Second,
	max:      30 * time.Second,
	timeout:  5 * time.Second,
}

// waitFor pings until it succeeds, the attempts run out, or ctx is done.
func waitFor(ctx context.Context, name string, b backoff, ping func(context.Context) error) error {
	delay := b.initial
	var err error

	for attempt := 1; attempt <= b.attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, b.timeout)
		err = ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == b.attempts {
			break
		}

		slog.Warn(name+" not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", b.attempts),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, b.max)
	}

	return fmt.Errorf("pinging %s after %d attempts: %w", name, b.attempts, err)
}
