package sync

import (
	"context"
	"time"
)

// Pacer spaces consecutive external API calls. Injected into the engine
// so unit tests can run without real timers.
type Pacer interface {
	// Pause blocks for the pacing interval, or returns early with the
	// context's error when the context is cancelled.
	Pause(ctx context.Context) error
}

// FixedDelayPacer waits a constant interval between requests. The
// interval is a configuration constant chosen to stay under the
// external API's requests-per-second ceiling with margin.
type FixedDelayPacer struct {
	Delay time.Duration
}

func (p FixedDelayPacer) Pause(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
