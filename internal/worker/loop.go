package worker

import (
	"context"
	"time"
)

// runEvery runs fn once immediately, then on every tick, until the context is
// cancelled. Both workers share this loop; fn owns its own error handling.
func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
