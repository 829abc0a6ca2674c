// Package session runs the front-end: credential capture on the keypad,
// prompts on the display and the request side of the link protocol.
//
// The front-end never sees the stored credential. It mirrors the back-end's
// failure counter by classifying every response it receives with the same
// protocol.OutcomeOf call, so the two lockout machines stay in step.
package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/credential"
	"github.com/dmitrijs2005/doorlock/internal/lockout"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/dmitrijs2005/doorlock/internal/protocol"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
)

const (
	MsgSavePassword   = "Save Password:"
	MsgRepeatPassword = "Repeat Password:"
	MsgEnterPassword  = "Enter Password:"
	MsgRepeated       = "Repeated Password"
	MsgIsWrong        = "is Wrong"
	MsgRepeatThe      = "Repeat the"
	MsgProcess        = "Process"
	MsgWrongPassword  = "Wrong Password"
	MsgError          = "ERROR!!"
	MsgOpening        = "Opening the door"
	MsgHolding        = "Holding the door"
	MsgClosing        = "Closing the door"
	MsgMenuOpen       = "+: Open Door"
	MsgMenuChange     = "-: Change Pass"

	entryMask = "*"
)

// Timing holds the display interval lengths in ticks. The door intervals
// must equal the back-end's so both sides finish the cycle together.
type Timing struct {
	OpenTicks       int
	HoldTicks       int
	CloseTicks      int
	LockoutTicks    int
	NoticeTicks     int
	LongNoticeTicks int
}

func DefaultTiming() Timing {
	return Timing{
		OpenTicks:       common.DoorOpenCloseTicks,
		HoldTicks:       common.DoorHoldTicks,
		CloseTicks:      common.DoorOpenCloseTicks,
		LockoutTicks:    common.LockoutTicks,
		NoticeTicks:     common.NoticeTicks,
		LongNoticeTicks: common.LongNoticeTicks,
	}
}

type Controller struct {
	keypad  Keypad
	display Display
	codec   *protocol.Codec
	seq     *sequencer.Sequencer
	lock    *lockout.Machine
	timing  Timing
	logger  logging.Logger
}

func New(keypad Keypad, display Display, codec *protocol.Codec, seq *sequencer.Sequencer, lock *lockout.Machine, timing Timing, l logging.Logger) *Controller {
	return &Controller{
		keypad:  keypad,
		display: display,
		codec:   codec,
		seq:     seq,
		lock:    lock,
		timing:  timing,
		logger:  l.With("module", "frontend"),
	}
}

// Failures reports the mirrored failure counter.
func (c *Controller) Failures() int { return c.lock.Count() }

// Lockout exposes the local lockout machine state.
func (c *Controller) Lockout() lockout.State { return c.lock.State() }

// Run performs first-time setup and then serves the main menu until ctx is
// cancelled or an exchange fails.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Setup(ctx); err != nil {
		return c.fatal(ctx, "setup", err)
	}
	for {
		c.showMenu()
		key, err := c.keypad.NextKey(ctx)
		if err != nil {
			return c.fatal(ctx, "menu", err)
		}

		switch key {
		case KeyOpen:
			_, err = c.OpenDoor(ctx)
		case KeyChange:
			_, err = c.ChangeCredential(ctx)
		default:
			continue
		}
		if err != nil {
			return c.fatal(ctx, key.String(), err)
		}
	}
}

func (c *Controller) fatal(ctx context.Context, stage string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.logger.Error(ctx, "session aborted, controller reset required", "stage", stage, "error", err)
	return fmt.Errorf("%s: %w", stage, err)
}

// Setup asks for a new credential twice until both entries agree and sends
// it to the back-end.
func (c *Controller) Setup(ctx context.Context) error {
	cred, err := c.confirmNew(ctx)
	if err != nil {
		return err
	}
	if err := c.codec.SendRequest(ctx, protocol.SetFirstCredential, cred); err != nil {
		return err
	}
	c.logger.Info(ctx, "first credential sent")
	return nil
}

// OpenDoor captures a candidate and asks the back-end to verify it. On
// success the door cycle is shown; on failure a notice or the lockout.
func (c *Controller) OpenDoor(ctx context.Context) (protocol.Outcome, error) {
	outcome, lockedOut, err := c.request(ctx, protocol.OpenRequest, protocol.VerifySuccess, protocol.VerifyFailure)
	if err != nil {
		return 0, err
	}
	if outcome == protocol.Accepted {
		return outcome, c.showDoorCycle(ctx)
	}
	return outcome, c.rejected(ctx, lockedOut)
}

// ChangeCredential verifies the current credential and, once accepted,
// captures and sends its replacement.
func (c *Controller) ChangeCredential(ctx context.Context) (protocol.Outcome, error) {
	outcome, lockedOut, err := c.request(ctx, protocol.ChangeRequest, protocol.ChangeAccepted, protocol.ChangeRejected)
	if err != nil {
		return 0, err
	}
	if outcome == protocol.Rejected {
		return outcome, c.rejected(ctx, lockedOut)
	}

	cred, err := c.confirmNew(ctx)
	if err != nil {
		return outcome, err
	}
	if err := c.codec.SendCredential(ctx, cred); err != nil {
		return outcome, err
	}
	c.logger.Info(ctx, "replacement credential sent")
	return outcome, nil
}

func (c *Controller) request(ctx context.Context, op protocol.Opcode, expect ...protocol.Opcode) (protocol.Outcome, bool, error) {
	if err := c.lock.CheckAttempt(); err != nil {
		return 0, false, err
	}
	candidate, err := c.capture(ctx, MsgEnterPassword)
	if err != nil {
		return 0, false, err
	}
	if err := c.codec.SendRequest(ctx, op, candidate); err != nil {
		return 0, false, err
	}
	resp, err := c.codec.AwaitResponse(ctx, expect...)
	if err != nil {
		return 0, false, err
	}
	outcome, err := protocol.OutcomeOf(resp)
	if err != nil {
		return 0, false, err
	}
	lockedOut := c.lock.Observe(outcome)
	c.logger.Info(ctx, "exchange complete", "request", op, "response", resp, "failures", c.lock.Count())
	return outcome, lockedOut, nil
}

func (c *Controller) rejected(ctx context.Context, lockedOut bool) error {
	if !lockedOut {
		return c.notice(ctx, c.timing.NoticeTicks, line{MsgWrongPassword, 0, 0})
	}
	c.logger.Warn(ctx, "lockout started", "ticks", c.timing.LockoutTicks)
	return c.lock.RunCooldown(ctx, c.seq, c.timing.LockoutTicks, lockout.Hooks{
		OnEnter: func() {
			c.display.Clear()
			c.display.ShowMessage(MsgError, 0, 5)
		},
		OnExit: func() {
			c.display.Clear()
			c.discardKeys()
		},
	})
}

// confirmNew loops until two consecutive entries match.
func (c *Controller) confirmNew(ctx context.Context) (credential.Credential, error) {
	for {
		first, err := c.capture(ctx, MsgSavePassword)
		if err != nil {
			return credential.Credential{}, err
		}
		second, err := c.capture(ctx, MsgRepeatPassword)
		if err != nil {
			return credential.Credential{}, err
		}
		if first.Matches(second) {
			return first, nil
		}

		c.logger.Info(ctx, "confirmation mismatch")
		if err := c.notice(ctx, c.timing.LongNoticeTicks, line{MsgRepeated, 0, 0}, line{MsgIsWrong, 1, 4}); err != nil {
			return credential.Credential{}, err
		}
		if err := c.notice(ctx, c.timing.LongNoticeTicks, line{MsgRepeatThe, 0, 3}, line{MsgProcess, 1, 4}); err != nil {
			return credential.Credential{}, err
		}
	}
}

// capture prompts and reads 4 digits followed by ENTER. Other keys are
// dropped without moving the cursor.
func (c *Controller) capture(ctx context.Context, prompt string) (credential.Credential, error) {
	c.display.Clear()
	c.display.ShowMessage(prompt, 0, 0)

	digits := make([]byte, 0, credential.Length)
	for {
		key, err := c.keypad.NextKey(ctx)
		if err != nil {
			return credential.Credential{}, err
		}
		if len(digits) < credential.Length {
			if key.IsDigit() {
				c.display.ShowMessage(entryMask, 1, len(digits))
				digits = append(digits, byte(key))
			}
			continue
		}
		if key == KeyEnter {
			return credential.FromDigits(digits...)
		}
	}
}

func (c *Controller) showDoorCycle(ctx context.Context) error {
	phases := []struct {
		msg   string
		ticks int
	}{
		{MsgOpening, c.timing.OpenTicks},
		{MsgHolding, c.timing.HoldTicks},
		{MsgClosing, c.timing.CloseTicks},
	}
	for _, p := range phases {
		if err := c.notice(ctx, p.ticks, line{p.msg, 0, 0}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) showMenu() {
	c.display.Clear()
	c.display.ShowMessage(MsgMenuOpen, 0, 0)
	c.display.ShowMessage(MsgMenuChange, 1, 0)
}

type line struct {
	text     string
	row, col int
}

// notice shows lines on a clear display for ticks, then clears it.
func (c *Controller) notice(ctx context.Context, ticks int, lines ...line) error {
	c.display.Clear()
	for _, l := range lines {
		c.display.ShowMessage(l.text, l.row, l.col)
	}
	if err := c.seq.Delay(ctx, ticks); err != nil {
		return err
	}
	c.display.Clear()
	c.discardKeys()
	return nil
}

// discardKeys drops presses made while a notice, door cycle or lockout was
// on screen.
func (c *Controller) discardKeys() {
	if d, ok := c.keypad.(Discarder); ok {
		d.Discard()
	}
}
