package session

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/doorlock/internal/backend/controller"
	"github.com/dmitrijs2005/doorlock/internal/backend/credstore"
	"github.com/dmitrijs2005/doorlock/internal/credential"
	"github.com/dmitrijs2005/doorlock/internal/link"
	"github.com/dmitrijs2005/doorlock/internal/lockout"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/dmitrijs2005/doorlock/internal/protocol"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
	"github.com/dmitrijs2005/doorlock/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type motorLog struct{ opens int }

func (m *motorLog) SetMotor(d controller.Direction) {
	if d == controller.Forward {
		m.opens++
	}
}

type buzzerLog struct{ alerts int }

func (b *buzzerLog) SetBuzzer(on bool) {
	if on {
		b.alerts++
	}
}

// pair wires a front-end session and a back-end controller over an
// in-memory pipe. Each exchange runs the back-end for exactly one request so
// both counters can be read once both sides are idle.
type pair struct {
	front     *Controller
	keys      *scriptKeypad
	back      *controller.Controller
	backCodec *protocol.Codec
	store     *credstore.Store
	motor     *motorLog
	buzzer    *buzzerLog
}

func newPair(t *testing.T) *pair {
	t.Helper()
	frontLink, backLink := link.Pipe()
	t.Cleanup(func() {
		_ = frontLink.Close()
		_ = backLink.Close()
	})

	frontTicks := sequencer.NewManualSource()
	backTicks := sequencer.NewManualSource()
	t.Cleanup(frontTicks.Stop)
	t.Cleanup(backTicks.Stop)

	nop := logging.NewDiscard()
	opts := credstore.DefaultOptions()
	opts.SettleDelay = 0

	p := &pair{
		keys:      &scriptKeypad{},
		backCodec: protocol.NewCodec(backLink, nop),
		store:     credstore.New(storage.NewMemory(0), opts, nop),
		motor:     &motorLog{},
		buzzer:    &buzzerLog{},
	}
	p.front = New(p.keys, &recordingDisplay{}, protocol.NewCodec(frontLink, nop),
		sequencer.New(frontTicks), lockout.New(3), DefaultTiming(), nop)
	p.back = controller.New(p.backCodec, p.store, p.motor, p.buzzer,
		sequencer.New(backTicks), lockout.New(3), controller.DefaultTiming(), nop)
	return p
}

func (p *pair) exchange(t *testing.T, keys string, front func(ctx context.Context) error) {
	t.Helper()
	ctx := context.Background()
	p.keys.press(keys)

	done := make(chan error, 1)
	go func() {
		op, err := p.backCodec.ReceiveRequest(ctx)
		if err != nil {
			done <- err
			return
		}
		done <- p.back.Handle(ctx, op)
	}()

	require.NoError(t, front(ctx))
	require.NoError(t, <-done)
	require.Equal(t, p.back.Failures(), p.front.Failures(), "failure counters diverged")
	require.Equal(t, p.back.Lockout(), p.front.Lockout())
}

func (p *pair) open(ctx context.Context) error {
	_, err := p.front.OpenDoor(ctx)
	return err
}

func (p *pair) change(ctx context.Context) error {
	_, err := p.front.ChangeCredential(ctx)
	return err
}

func TestLockstep_CountersStayEqual(t *testing.T) {
	p := newPair(t)

	p.exchange(t, "1234\n1234\n", p.front.Setup)
	assert.True(t, p.back.Provisioned())

	steps := []struct {
		name     string
		keys     string
		run      func(context.Context) error
		failures int
	}{
		{"wrong open", "1111\n", p.open, 1},
		{"right open", "1234\n", p.open, 0},
		{"wrong change", "0000\n", p.change, 1},
		{"wrong open again", "2222\n", p.open, 2},
		{"lockout", "3333\n", p.open, 0},
		{"change", "1234\n5678\n5678\n", p.change, 0},
		{"old credential", "1234\n", p.open, 1},
		{"new credential", "5678\n", p.open, 0},
	}
	for _, s := range steps {
		p.exchange(t, s.keys, s.run)
		assert.Equal(t, s.failures, p.front.Failures(), s.name)
	}

	assert.Equal(t, 2, p.motor.opens, "two door cycles")
	assert.Equal(t, 1, p.buzzer.alerts)

	stored, err := p.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.Matches(credential.MustParse("5678")))
}
