package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTick is the drain cadence when none is configured, one 60Hz frame.
const DefaultTick = 16 * time.Millisecond

// Runner is the queue's single consumer. It drains on every tick and
// whenever Submit signals new work.
type Runner struct {
	queue *Queue
	tick  time.Duration
	log   zerolog.Logger
}

// NewRunner returns a consumer for q. A non-positive tick selects DefaultTick.
func NewRunner(q *Queue, tick time.Duration, logger zerolog.Logger) *Runner {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Runner{
		queue: q,
		tick:  tick,
		log:   logger.With().Str("component", "runner").Logger(),
	}
}

// Run drains the queue until ctx is done. On shutdown it closes the queue and
// drains once more so every accepted job reaches a terminal state.
// Run must be the only caller of Drain on its queue.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	r.log.Info().Dur("tick", r.tick).Msg("consumer started")
	for {
		select {
		case <-ctx.Done():
			r.queue.Close()
			n := r.queue.Drain()
			r.log.Info().Int("final_jobs", n).Msg("consumer stopped")
			return nil
		case <-ticker.C:
			r.queue.Drain()
		case <-r.queue.Wake():
			r.queue.Drain()
		}
	}
}
