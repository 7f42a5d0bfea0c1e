package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gamification-bot/internal/observability"
)

// DefaultTimeout bounds a single sink delivery.
const DefaultTimeout = 5 * time.Second

// LogSink writes events to the global logger.
type LogSink struct{}

// Name implements Sink.
func (LogSink) Name() string {
	return "log"
}

// Send implements Sink.
func (LogSink) Send(ctx context.Context, events []Event) error {
	for _, e := range events {
		ev := log.Info().
			Str("event", string(e.Type)).
			Int64("user_id", e.UserID)
		switch e.Type {
		case EventLevelUp:
			ev = ev.Int("old_level", e.OldLevel).Int("new_level", e.NewLevel)
		case EventRankUp:
			ev = ev.Str("old_rank", e.OldRank).Str("new_rank", e.NewRank)
		case EventBadgeUnlocked:
			if e.Badge != nil {
				ev = ev.Str("badge_id", e.Badge.BadgeID)
			}
		}
		ev.Msg("Progression event")
	}
	return nil
}

// Dispatcher fans events out to sinks without blocking the caller.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A non-positive timeout uses DefaultTimeout.
func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

// Sinks returns the configured sinks.
func (d *Dispatcher) Sinks() []Sink {
	return d.sinks
}

// Dispatch delivers events to every sink in the background.
// Failures are logged and counted; they never reach the caller.
func (d *Dispatcher) Dispatch(events []Event) {
	if d == nil || len(events) == 0 {
		return
	}

	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("sink", sink.Name()).Msg("Recovered from panic in notification sink")
					observability.RecordNotificationFailure(sink.Name())
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			if err := sink.Send(ctx, events); err != nil {
				log.Warn().
					Err(err).
					Str("sink", sink.Name()).
					Int("events", len(events)).
					Msg("Failed to deliver notifications")
				observability.RecordNotificationFailure(sink.Name())
			}
		}()
	}
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
