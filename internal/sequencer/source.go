package sequencer

import (
	"sync/atomic"
	"time"
)

// DefaultTickPeriod is the hardware-timer granularity the canonical tick
// counts were derived from.
const DefaultTickPeriod = 64500 * time.Microsecond

// TickSource delivers periodic tick events. The source only signals; all
// counting happens in the Sequencer that consumes it.
type TickSource interface {
	Ticks() <-chan struct{}
}

// ClockSource produces ticks from a time.Ticker.
type ClockSource struct {
	period time.Duration
	ticker *time.Ticker
	ch     chan struct{}
	done   chan struct{}
}

// NewClockSource starts a wall-clock tick source with the given period.
// Like a hardware timer overflow flag, at most one tick is pending: ticks
// nobody waits for are dropped.
func NewClockSource(period time.Duration) *ClockSource {
	s := &ClockSource{
		period: period,
		ticker: time.NewTicker(period),
		ch:     make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *ClockSource) run() {
	for {
		select {
		case <-s.ticker.C:
			select {
			case s.ch <- struct{}{}:
			default:
			}
		case <-s.done:
			return
		}
	}
}

func (s *ClockSource) Ticks() <-chan struct{} { return s.ch }

// Restart drops a pending tick and restarts the period, so the first tick
// of a new interval is a full period away.
func (s *ClockSource) Restart() {
	s.ticker.Reset(s.period)
	select {
	case <-s.ch:
	default:
	}
}

// Stop halts the ticker and its goroutine.
func (s *ClockSource) Stop() {
	s.ticker.Stop()
	close(s.done)
}

// ManualSource is a tick source for tests and simulations: every receive
// yields a tick immediately, so intervals elapse as fast as the consumer
// counts them. Delivered counts every tick handed out.
type ManualSource struct {
	ch        chan struct{}
	done      chan struct{}
	delivered atomic.Uint64
}

func NewManualSource() *ManualSource {
	s := &ManualSource{
		ch:   make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *ManualSource) run() {
	for {
		select {
		case s.ch <- struct{}{}:
			s.delivered.Add(1)
		case <-s.done:
			return
		}
	}
}

func (s *ManualSource) Ticks() <-chan struct{} { return s.ch }

// Delivered reports how many ticks have been handed out so far.
func (s *ManualSource) Delivered() uint64 { return s.delivered.Load() }

func (s *ManualSource) Stop() { close(s.done) }
