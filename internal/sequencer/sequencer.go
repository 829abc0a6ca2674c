// Package sequencer turns periodic ticks into "duration elapsed" signals.
//
// A Sequencer runs at most one interval at a time. The owning controller
// arms it and then blocks in Wait, which counts ticks from the TickSource
// until the armed count is reached. There is no background goroutine
// touching controller state: the completion callback runs on the caller's
// flow of control, inside Wait.
package sequencer

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrBusy            = errors.New("sequencer already armed")
	ErrNotArmed        = errors.New("sequencer not armed")
	ErrInvalidDuration = errors.New("duration must be at least one tick")
)

// restarter is implemented by tick sources that can hold a tick nobody
// waited for.
type restarter interface {
	Restart()
}

type Sequencer struct {
	source TickSource

	armed     bool
	elapsed   bool
	target    int
	count     int
	onElapsed func()
	consumed  uint64
}

func New(source TickSource) *Sequencer {
	return &Sequencer{source: source}
}

// Arm starts a new interval of the given number of ticks. onElapsed, when
// non-nil, runs exactly once when the interval completes.
func (s *Sequencer) Arm(ticks int, onElapsed func()) error {
	if ticks <= 0 {
		return fmt.Errorf("arm %d: %w", ticks, ErrInvalidDuration)
	}
	if s.armed {
		return ErrBusy
	}
	if r, ok := s.source.(restarter); ok {
		r.Restart()
	}
	s.armed = true
	s.elapsed = false
	s.target = ticks
	s.count = 0
	s.onElapsed = onElapsed
	return nil
}

// Disarm cancels the active interval. The callback will not run.
func (s *Sequencer) Disarm() {
	s.armed = false
	s.onElapsed = nil
	s.count = 0
}

// Armed reports whether an interval is in progress.
func (s *Sequencer) Armed() bool { return s.armed }

// Elapsed reports whether the most recently armed interval has completed.
func (s *Sequencer) Elapsed() bool { return s.elapsed }

// Consumed is the total number of ticks counted across all intervals.
func (s *Sequencer) Consumed() uint64 { return s.consumed }

// Wait blocks until the armed interval elapses. On cancellation the
// interval is disarmed and ctx.Err() is returned.
func (s *Sequencer) Wait(ctx context.Context) error {
	if !s.armed {
		return ErrNotArmed
	}
	ticks := s.source.Ticks()
	for {
		if err := ctx.Err(); err != nil {
			s.Disarm()
			return err
		}
		select {
		case <-ctx.Done():
			s.Disarm()
			return ctx.Err()
		case <-ticks:
			if s.tick() {
				return nil
			}
		}
	}
}

// Delay arms the sequencer and waits for ticks to elapse.
func (s *Sequencer) Delay(ctx context.Context, ticks int) error {
	if err := s.Arm(ticks, nil); err != nil {
		return err
	}
	return s.Wait(ctx)
}

// tick counts one tick and reports whether the interval just elapsed.
func (s *Sequencer) tick() bool {
	s.consumed++
	s.count++
	if s.count < s.target {
		return false
	}
	cb := s.onElapsed
	s.armed = false
	s.elapsed = true
	s.onElapsed = nil
	s.count = 0
	if cb != nil {
		cb()
	}
	return true
}
