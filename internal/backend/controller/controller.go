// Package controller is the back-end verification and actuation loop.
//
// The controller owns the authoritative credential. It blocks for one
// request at a time, answers it, and for accepted open requests runs the
// motor through open, hold and close before reading the next opcode.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/credential"
	"github.com/dmitrijs2005/doorlock/internal/lockout"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/dmitrijs2005/doorlock/internal/protocol"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
	"github.com/google/uuid"
)

// CredentialStore persists the credential. Save returns the value read
// back from storage.
type CredentialStore interface {
	Save(ctx context.Context, c credential.Credential) (credential.Credential, error)
	Load(ctx context.Context) (credential.Credential, error)
}

// Timing holds the interval lengths in ticks.
type Timing struct {
	OpenTicks    int
	HoldTicks    int
	CloseTicks   int
	LockoutTicks int
}

func DefaultTiming() Timing {
	return Timing{
		OpenTicks:    common.DoorOpenCloseTicks,
		HoldTicks:    common.DoorHoldTicks,
		CloseTicks:   common.DoorOpenCloseTicks,
		LockoutTicks: common.LockoutTicks,
	}
}

type Controller struct {
	codec  *protocol.Codec
	store  CredentialStore
	motor  Motor
	buzzer Buzzer
	seq    *sequencer.Sequencer
	lock   *lockout.Machine
	timing Timing
	logger logging.Logger

	working     credential.Credential
	provisioned bool
	door        DoorState
}

func New(codec *protocol.Codec, store CredentialStore, motor Motor, buzzer Buzzer, seq *sequencer.Sequencer, lock *lockout.Machine, timing Timing, l logging.Logger) *Controller {
	return &Controller{
		codec:  codec,
		store:  store,
		motor:  motor,
		buzzer: buzzer,
		seq:    seq,
		lock:   lock,
		timing: timing,
		logger: l.With("module", "backend"),
	}
}

// DoorState reports the current actuation phase.
func (c *Controller) DoorState() DoorState { return c.door }

// Failures reports the local failure counter.
func (c *Controller) Failures() int { return c.lock.Count() }

// Lockout exposes the local lockout machine state.
func (c *Controller) Lockout() lockout.State { return c.lock.State() }

// Provisioned reports whether a working credential is loaded.
func (c *Controller) Provisioned() bool { return c.provisioned }

// Provision loads a credential persisted by an earlier run. A fresh store
// is not an error: the front-end always sets a credential after boot.
func (c *Controller) Provision(ctx context.Context) error {
	cred, err := c.store.Load(ctx)
	if errors.Is(err, common.ErrNotProvisioned) {
		c.logger.Info(ctx, "no stored credential")
		return nil
	}
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}
	c.working = cred
	c.provisioned = true
	c.logger.Info(ctx, "stored credential loaded")
	return nil
}

// Serve handles requests until ctx is cancelled or an exchange fails. Any
// returned error other than ctx.Err() leaves the link in an unknown state.
func (c *Controller) Serve(ctx context.Context) error {
	c.logger.Info(ctx, "serving link")
	if err := c.resumeLockout(ctx); err != nil {
		return err
	}
	for {
		op, err := c.codec.ReceiveRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, common.ErrLinkClosed) {
				c.logger.Info(ctx, "link closed by peer")
				return err
			}
			c.logger.Error(ctx, "link failure, controller reset required", "error", err)
			return err
		}
		if err := c.Handle(ctx, op); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error(ctx, "exchange failed, controller reset required", "opcode", op, "error", err)
			return err
		}
	}
}

// Handle runs one exchange whose request opcode has already been read.
func (c *Controller) Handle(ctx context.Context, op protocol.Opcode) error {
	log := c.logger.With("exchange", uuid.NewString(), "opcode", op)

	switch op {
	case protocol.SetFirstCredential:
		return c.receiveAndStore(ctx, log)
	case protocol.OpenRequest:
		return c.handleOpen(ctx, log)
	case protocol.ChangeRequest:
		return c.handleChange(ctx, log)
	}
	return fmt.Errorf("handle %s: %w", op, common.ErrDesync)
}

func (c *Controller) receiveAndStore(ctx context.Context, log logging.Logger) error {
	cred, err := c.codec.ReceiveCredential(ctx)
	if err != nil {
		return err
	}
	stored, err := c.store.Save(ctx, cred)
	if err != nil {
		return err
	}
	c.working = stored
	c.provisioned = true
	log.Info(ctx, "credential set")
	return nil
}

func (c *Controller) handleOpen(ctx context.Context, log logging.Logger) error {
	outcome, lockedOut, err := c.verify(ctx, protocol.OpenRequest, log)
	if err != nil {
		return err
	}
	if outcome == protocol.Accepted {
		return c.runDoorCycle(ctx, log)
	}
	if lockedOut {
		return c.runLockout(ctx, log)
	}
	return nil
}

func (c *Controller) handleChange(ctx context.Context, log logging.Logger) error {
	outcome, lockedOut, err := c.verify(ctx, protocol.ChangeRequest, log)
	if err != nil {
		return err
	}
	if outcome == protocol.Accepted {
		return c.receiveAndStore(ctx, log)
	}
	if lockedOut {
		return c.runLockout(ctx, log)
	}
	return nil
}

// verify reads the candidate, answers the request and feeds the answer to
// the lockout machine. The classification goes through protocol.OutcomeOf
// on the response byte actually sent, the same call the front-end makes on
// the byte it receives.
func (c *Controller) verify(ctx context.Context, req protocol.Opcode, log logging.Logger) (protocol.Outcome, bool, error) {
	candidate, err := c.codec.ReceiveCredential(ctx)
	if err != nil {
		return 0, false, err
	}

	outcome := protocol.Rejected
	if c.provisioned && c.working.Matches(candidate) {
		outcome = protocol.Accepted
	}

	resp, err := protocol.ResponseFor(req, outcome)
	if err != nil {
		return 0, false, err
	}
	if err := c.codec.SendResponse(ctx, resp); err != nil {
		return 0, false, err
	}

	observed, err := protocol.OutcomeOf(resp)
	if err != nil {
		return 0, false, err
	}
	lockedOut := c.lock.Observe(observed)

	if observed == protocol.Accepted {
		log.Info(ctx, "credential accepted")
	} else {
		log.Warn(ctx, "credential rejected", "failures", c.lock.Count(), "threshold", c.lock.Threshold())
	}
	return observed, lockedOut, nil
}

func (c *Controller) runDoorCycle(ctx context.Context, log logging.Logger) error {
	phases := []struct {
		state DoorState
		dir   Direction
		ticks int
	}{
		{Opening, Forward, c.timing.OpenTicks},
		{Holding, Stop, c.timing.HoldTicks},
		{Closing, Reverse, c.timing.CloseTicks},
	}

	for _, p := range phases {
		c.door = p.state
		c.motor.SetMotor(p.dir)
		log.Info(ctx, "door phase", "state", p.state, "ticks", p.ticks)
		if err := c.seq.Delay(ctx, p.ticks); err != nil {
			c.motor.SetMotor(Stop)
			c.door = Idle
			return fmt.Errorf("door %s: %w", p.state, err)
		}
	}

	c.motor.SetMotor(Stop)
	c.door = Idle
	log.Info(ctx, "door cycle complete")
	return nil
}

// resumeLockout finishes a lockout whose session ended before the
// interval elapsed. The machine is shared by sessions, so without it the
// next session would start with attempts still suspended.
func (c *Controller) resumeLockout(ctx context.Context) error {
	if !c.lock.InCooldown() {
		return nil
	}
	log := c.logger.With("exchange", uuid.NewString())
	log.Warn(ctx, "resuming interrupted lockout")
	if err := c.runLockout(ctx, log); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (c *Controller) runLockout(ctx context.Context, log logging.Logger) error {
	log.Warn(ctx, "lockout started", "ticks", c.timing.LockoutTicks)
	err := c.lock.RunCooldown(ctx, c.seq, c.timing.LockoutTicks, lockout.Hooks{
		OnEnter: func() { c.buzzer.SetBuzzer(true) },
		OnExit:  func() { c.buzzer.SetBuzzer(false) },
	})
	if err != nil {
		return err
	}
	log.Info(ctx, "lockout ended")
	return nil
}
