// Package lockout implements the consecutive-failure counter and cooldown
// state shared, by duplication, between the two controllers.
//
// Each controller owns one Machine and feeds it the outcome of every
// verification exchange. Because both sides classify the same response
// byte with protocol.OutcomeOf, their counters reach the threshold on the
// same exchange without ever being compared directly.
package lockout

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/protocol"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
)

var ErrNotInCooldown = errors.New("machine is not in cooldown")

// State is the lockout mode of a controller.
type State int

const (
	Normal State = iota
	Cooldown
)

func (s State) String() string {
	if s == Cooldown {
		return "cooldown"
	}
	return "normal"
}

type Machine struct {
	threshold int
	count     int
	state     State
}

// New returns a machine that enters Cooldown after threshold consecutive
// rejections. A non-positive threshold falls back to the default of 3.
func New(threshold int) *Machine {
	if threshold <= 0 {
		threshold = common.DefaultFailureThreshold
	}
	return &Machine{threshold: threshold}
}

func (m *Machine) Threshold() int { return m.threshold }
func (m *Machine) Count() int     { return m.count }
func (m *Machine) State() State   { return m.state }

func (m *Machine) InCooldown() bool { return m.state == Cooldown }

// CheckAttempt returns ErrCooldown while attempts are suspended.
func (m *Machine) CheckAttempt() error {
	if m.state == Cooldown {
		return common.ErrCooldown
	}
	return nil
}

// Accept resets the counter. It never enters or leaves Cooldown.
func (m *Machine) Accept() {
	m.count = 0
}

// Reject counts one failure and reports whether this failure reached the
// threshold, switching the machine to Cooldown.
func (m *Machine) Reject() bool {
	if m.state == Cooldown {
		return false
	}
	m.count++
	if m.count >= m.threshold {
		m.state = Cooldown
		return true
	}
	return false
}

// Observe applies an exchange outcome and reports whether a lockout began.
func (m *Machine) Observe(o protocol.Outcome) bool {
	if o == protocol.Accepted {
		m.Accept()
		return false
	}
	return m.Reject()
}

// EndCooldown returns to Normal with a zero counter.
func (m *Machine) EndCooldown() {
	m.state = Normal
	m.count = 0
}

// Hooks are called around a cooldown interval: the back-end switches its
// buzzer, the front-end its display.
type Hooks struct {
	OnEnter func()
	OnExit  func()
}

// RunCooldown blocks for the lockout interval on seq, then ends the
// cooldown. OnExit runs even when the wait is cancelled so an alert is never
// left on; the machine stays in Cooldown in that case and the owner must
// run the cooldown again before taking new attempts.
func (m *Machine) RunCooldown(ctx context.Context, seq *sequencer.Sequencer, ticks int, h Hooks) error {
	if m.state != Cooldown {
		return ErrNotInCooldown
	}
	if h.OnEnter != nil {
		h.OnEnter()
	}
	err := seq.Delay(ctx, ticks)
	if h.OnExit != nil {
		h.OnExit()
	}
	if err != nil {
		return fmt.Errorf("cooldown: %w", err)
	}
	m.EndCooldown()
	return nil
}
