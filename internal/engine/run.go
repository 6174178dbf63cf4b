package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/udisondev/geozone/internal/tracker"
)

// Sample is one observed entity position.
type Sample struct {
	EntityID string
	X, Y     float64

	// At is the observation time; zero means the tick time.
	At time.Time

	// Distance to the point of interest, used to scale check frequency.
	// Zero schedules the entity as near.
	Distance float64

	// Gone marks an entity that disappeared: it gets exits and is untracked.
	Gone bool
}

// Source supplies the samples observed up to now. Returning io.EOF ends Run.
type Source interface {
	Poll(ctx context.Context, now time.Time) ([]Sample, error)
}

// Handler receives the events of one tick.
type Handler func(events []tracker.Event)

// Run pulls samples from src every interval and checks those the scheduler
// says are due, passing the tick's events to handler. It returns nil when src
// is exhausted and ctx.Err() on cancellation.
func (e *Engine) Run(ctx context.Context, src Source, interval time.Duration, handler Handler) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("engine tick loop started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine tick loop stopping")
			return ctx.Err()

		case now := <-ticker.C:
			done, err := e.Tick(ctx, src, now, handler)
			if err != nil {
				return err
			}
			if done {
				e.logger.Info("source exhausted, engine tick loop finished")
				return nil
			}
		}
	}
}

// Tick performs one Run iteration at now and reports whether src is exhausted.
// When a poll returns several samples for one entity only the last one is
// used, so a due entity is always checked at its newest position.
func (e *Engine) Tick(ctx context.Context, src Source, now time.Time, handler Handler) (bool, error) {
	samples, err := src.Poll(ctx, now)
	done := errors.Is(err, io.EOF)
	if err != nil && !done {
		return false, fmt.Errorf("polling source: %w", err)
	}

	samples = latest(samples)

	var events []tracker.Event
	e.mu.Lock()
	for _, s := range samples {
		at := s.At
		if at.IsZero() {
			at = now
		}

		if s.Gone {
			e.scheduler.Forget(s.EntityID)
			events = append(events, e.tracker.Leave(s.EntityID, at)...)
			continue
		}
		if !e.scheduler.Due(s.EntityID, s.Distance, now) {
			continue
		}
		events = e.tracker.CheckInto(events, s.EntityID, s.X, s.Y, at)
	}
	e.mu.Unlock()

	if handler != nil && len(events) > 0 {
		handler(events)
	}

	return done, nil
}

// latest оставляет последний сэмпл каждой сущности на месте её первого
// появления. Источники отдают сэмплы в порядке времени.
func latest(samples []Sample) []Sample {
	if len(samples) < 2 {
		return samples
	}

	pos := make(map[string]int, len(samples))
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if i, ok := pos[s.EntityID]; ok {
			out[i] = s
			continue
		}
		pos[s.EntityID] = len(out)
		out = append(out, s)
	}
	return out
}
