package matchmaking

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultInterval = 2 * time.Second

// Start drains the queue every interval until ctx is cancelled. onMatch runs
// on the scheduler goroutine for each group formed.
func (q *Queue) Start(ctx context.Context, interval time.Duration, onMatch func(context.Context, Match)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.Drain(ctx, onMatch)
			}
		}
	}()
}

// Drain forms groups until none remain and returns how many it formed.
func (q *Queue) Drain(ctx context.Context, onMatch func(context.Context, Match)) int {
	formed := 0
	for ctx.Err() == nil {
		m, err := q.FindMatch(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("matchmaking pass failed")
			return formed
		}
		if m == nil {
			return formed
		}
		formed++
		if onMatch != nil {
			onMatch(ctx, *m)
		}
	}
	return formed
}
