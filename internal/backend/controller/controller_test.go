package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/doorlock/internal/backend/credstore"
	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/credential"
	"github.com/dmitrijs2005/doorlock/internal/lockout"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/dmitrijs2005/doorlock/internal/protocol"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
	"github.com/dmitrijs2005/doorlock/internal/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptChannel replays the bytes a front-end would send and records the
// responses.
type scriptChannel struct {
	in  []byte
	out []byte
}

func (s *scriptChannel) SendByte(_ context.Context, b byte) error {
	s.out = append(s.out, b)
	return nil
}

func (s *scriptChannel) ReceiveByte(_ context.Context) (byte, error) {
	if len(s.in) == 0 {
		return 0, common.ErrLinkClosed
	}
	b := s.in[0]
	s.in = s.in[1:]
	return b, nil
}

func (s *scriptChannel) request(op protocol.Opcode, pin string) {
	s.in = append(s.in, byte(op))
	s.in = append(s.in, credential.MustParse(pin).Digits()...)
}

func (s *scriptChannel) bare(pin string) {
	s.in = append(s.in, credential.MustParse(pin).Digits()...)
}

type event struct {
	What string
	At   uint64
	Door DoorState
}

type recorder struct {
	seq    *sequencer.Sequencer
	ctl    *Controller
	events []event
}

func (r *recorder) add(what string) {
	r.events = append(r.events, event{What: what, At: r.seq.Consumed(), Door: r.ctl.DoorState()})
}

func (r *recorder) SetMotor(d Direction) { r.add("motor:" + d.String()) }

func (r *recorder) SetBuzzer(on bool) {
	if on {
		r.add("buzzer:on")
		return
	}
	r.add("buzzer:off")
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, e := range r.events {
		if len(e.What) >= len(prefix) && e.What[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type fixture struct {
	ch    *scriptChannel
	ctl   *Controller
	rec   *recorder
	mem   *storage.Memory
	store *credstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	src := sequencer.NewManualSource()
	t.Cleanup(src.Stop)

	seq := sequencer.New(src)
	ch := &scriptChannel{}
	mem := storage.NewMemory(0)
	opts := credstore.DefaultOptions()
	opts.SettleDelay = 0
	store := credstore.New(mem, opts, logging.NewDiscard())
	rec := &recorder{seq: seq}

	ctl := New(protocol.NewCodec(ch, logging.NewDiscard()), store, rec, rec, seq, lockout.New(3), DefaultTiming(), logging.NewDiscard())
	rec.ctl = ctl
	return &fixture{ch: ch, ctl: ctl, rec: rec, mem: mem, store: store}
}

// serve runs the controller until the scripted input is exhausted.
func (f *fixture) serve(t *testing.T) {
	t.Helper()
	err := f.ctl.Serve(context.Background())
	require.ErrorIs(t, err, common.ErrLinkClosed)
}

func TestSetFirstCredential_PersistsAndReadsBack(t *testing.T) {
	f := newFixture(t)
	f.ch.request(protocol.SetFirstCredential, "1234")
	f.serve(t)

	assert.True(t, f.ctl.Provisioned())
	assert.Empty(t, f.ch.out, "set-first has no response")

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.Matches(credential.MustParse("1234")))
}

func TestOpen_SuccessRunsFullCycleInOrder(t *testing.T) {
	f := newFixture(t)
	f.ch.request(protocol.SetFirstCredential, "1234")
	f.ch.request(protocol.OpenRequest, "1234")
	f.serve(t)

	assert.Equal(t, []byte{byte(protocol.VerifySuccess)}, f.ch.out)

	want := []event{
		{"motor:forward", 0, Opening},
		{"motor:stop", 233, Holding},
		{"motor:reverse", 279, Closing},
		{"motor:stop", 512, Closing},
	}
	if diff := cmp.Diff(want, f.rec.events); diff != "" {
		t.Fatalf("actuation sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Idle, f.ctl.DoorState())
	assert.Equal(t, 0, f.ctl.Failures())
}

func TestOpen_ThreeFailuresTriggerLockout(t *testing.T) {
	f := newFixture(t)
	f.ch.request(protocol.SetFirstCredential, "1234")
	f.ch.request(protocol.OpenRequest, "1235")
	f.serve(t)
	assert.Equal(t, 1, f.ctl.Failures())

	f.ch.request(protocol.OpenRequest, "0000")
	f.serve(t)
	assert.Equal(t, 2, f.ctl.Failures())
	assert.Empty(t, f.rec.events, "no alert below threshold")

	f.ch.request(protocol.OpenRequest, "4321")
	f.serve(t)

	assert.Equal(t, []byte{0xF4, 0xF4, 0xF4}, f.ch.out)
	require.Len(t, f.rec.events, 2)
	assert.Equal(t, "buzzer:on", f.rec.events[0].What)
	assert.Equal(t, "buzzer:off", f.rec.events[1].What)
	assert.Equal(t, uint64(common.LockoutTicks), f.rec.events[1].At-f.rec.events[0].At)
	assert.Zero(t, f.rec.count("motor:"), "no actuation during failures")

	assert.Equal(t, 0, f.ctl.Failures())
	assert.Equal(t, lockout.Normal, f.ctl.Lockout())

	// ready for further attempts
	f.ch.request(protocol.OpenRequest, "1234")
	f.serve(t)
	assert.Equal(t, byte(protocol.VerifySuccess), f.ch.out[len(f.ch.out)-1])
}

func TestOpen_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	f.ch.request(protocol.SetFirstCredential, "1234")
	f.ch.request(protocol.OpenRequest, "1111")
	f.ch.request(protocol.OpenRequest, "2222")
	f.ch.request(protocol.OpenRequest, "1234")
	f.ch.request(protocol.OpenRequest, "3333")
	f.serve(t)

	assert.Equal(t, []byte{0xF4, 0xF4, 0xF3, 0xF4}, f.ch.out)
	assert.Equal(t, 1, f.ctl.Failures())
	assert.Zero(t, f.rec.count("buzzer:"))
}

func TestOpen_WithoutCredentialIsRejected(t *testing.T) {
	f := newFixture(t)
	f.ch.request(protocol.OpenRequest, "0000")
	f.serve(t)

	assert.Equal(t, []byte{byte(protocol.VerifyFailure)}, f.ch.out)
	assert.Zero(t, f.rec.count("motor:"))
}

func TestChange_AcceptedReplacesCredential(t *testing.T) {
	f := newFixture(t)
	f.ch.request(protocol.SetFirstCredential, "1234")
	f.ch.request(protocol.ChangeRequest, "1234")
	f.ch.bare("9999")
	f.ch.request(protocol.OpenRequest, "1234")
	f.ch.request(protocol.OpenRequest, "9999")
	f.serve(t)

	assert.Equal(t, []byte{0xF6, 0xF4, 0xF3}, f.ch.out)

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.Matches(credential.MustParse("9999")))
}

func TestChange_RejectedSharesLockoutCounter(t *testing.T) {
	f := newFixture(t)
	f.ch.request(protocol.SetFirstCredential, "1234")
	f.ch.request(protocol.OpenRequest, "0001")
	f.ch.request(protocol.ChangeRequest, "0002")
	f.ch.request(protocol.ChangeRequest, "0003")
	f.serve(t)

	assert.Equal(t, []byte{0xF4, 0xF7, 0xF7}, f.ch.out)
	assert.Equal(t, 1, f.rec.count("buzzer:on"))
	assert.Equal(t, 1, f.rec.count("buzzer:off"))
	assert.Equal(t, 0, f.ctl.Failures())

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.Matches(credential.MustParse("1234")), "rejected change keeps credential")
}

func TestChange_AcceptedResetsCounter(t *testing.T) {
	f := newFixture(t)
	f.ch.request(protocol.SetFirstCredential, "1234")
	f.ch.request(protocol.OpenRequest, "0001")
	f.ch.request(protocol.OpenRequest, "0002")
	f.ch.request(protocol.ChangeRequest, "1234")
	f.ch.bare("5555")
	f.serve(t)

	assert.Equal(t, 0, f.ctl.Failures())
}

func TestServe_UnknownOpcodeIsDesync(t *testing.T) {
	f := newFixture(t)
	f.ch.in = []byte{0x42}

	err := f.ctl.Serve(context.Background())
	require.ErrorIs(t, err, common.ErrDesync)
}

func TestServe_ResponseOpcodeFromFrontIsDesync(t *testing.T) {
	f := newFixture(t)
	f.ch.in = []byte{byte(protocol.VerifySuccess)}

	err := f.ctl.Serve(context.Background())
	require.ErrorIs(t, err, common.ErrDesync)
}

func TestServe_NonDigitPayloadIsDesync(t *testing.T) {
	f := newFixture(t)
	f.ch.in = []byte{byte(protocol.OpenRequest), 1, 2, byte(protocol.OpenRequest)}

	err := f.ctl.Serve(context.Background())
	require.ErrorIs(t, err, common.ErrDesync)
	assert.Empty(t, f.ch.out, "no response once desynchronized")
}

func TestHandle_RejectsNonRequestOpcode(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.ctl.Handle(context.Background(), protocol.ChangeAccepted), common.ErrDesync)
}

func TestServe_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.ch.request(protocol.SetFirstCredential, "1234")
	f.ch.request(protocol.OpenRequest, "1234")

	// the script channel ignores ctx, the door cycle does not
	err := f.ctl.Serve(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Idle, f.ctl.DoorState())
	assert.Equal(t, "motor:stop", f.rec.events[len(f.rec.events)-1].What, "motor is stopped on abort")
}

func TestProvision_LoadsStoredCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Save(ctx, credential.MustParse("8642"))
	require.NoError(t, err)

	require.NoError(t, f.ctl.Provision(ctx))
	assert.True(t, f.ctl.Provisioned())

	f.ch.request(protocol.OpenRequest, "8642")
	f.serve(t)
	assert.Equal(t, []byte{byte(protocol.VerifySuccess)}, f.ch.out)
}

func TestProvision_FreshStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctl.Provision(context.Background()))
	assert.False(t, f.ctl.Provisioned())
}

type brokenStore struct{ err error }

func (b brokenStore) Save(context.Context, credential.Credential) (credential.Credential, error) {
	return credential.Credential{}, b.err
}

func (b brokenStore) Load(context.Context) (credential.Credential, error) {
	return credential.Credential{}, b.err
}

func TestServe_StorageFaultIsFatal(t *testing.T) {
	f := newFixture(t)
	f.ctl.store = brokenStore{err: common.ErrStorageMismatch}
	f.ch.request(protocol.SetFirstCredential, "1234")

	err := f.ctl.Serve(context.Background())
	require.ErrorIs(t, err, common.ErrStorageMismatch)
	assert.False(t, f.ctl.Provisioned())
}

func TestProvision_StorageFault(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("i2c nack")
	f.ctl.store = brokenStore{err: boom}
	require.ErrorIs(t, f.ctl.Provision(context.Background()), boom)
}

func TestDirectionAndDoorStateStrings(t *testing.T) {
	assert.Equal(t, "forward", Forward.String())
	assert.Equal(t, "reverse", Reverse.String())
	assert.Equal(t, "stop", Stop.String())
	assert.Equal(t, "holding", Holding.String())
	assert.Equal(t, "idle", Idle.String())
}

func TestServe_ResumesInterruptedLockout(t *testing.T) {
	f := newFixture(t)
	f.ch.request(protocol.SetFirstCredential, "1234")
	f.ch.request(protocol.OpenRequest, "0001")
	f.ch.request(protocol.OpenRequest, "0002")
	f.serve(t)

	// the third failure arrives on a session that is torn down mid-lockout
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.ch.request(protocol.OpenRequest, "0003")
	require.ErrorIs(t, f.ctl.Serve(ctx), context.Canceled)
	require.Equal(t, lockout.Cooldown, f.ctl.Lockout())
	require.Len(t, f.rec.events, 2)
	assert.Equal(t, "buzzer:on", f.rec.events[0].What)
	assert.Equal(t, "buzzer:off", f.rec.events[1].What, "alert is not left on")

	f.rec.events = nil
	f.ch.request(protocol.OpenRequest, "1234")
	f.serve(t)

	require.GreaterOrEqual(t, len(f.rec.events), 2)
	assert.Equal(t, "buzzer:on", f.rec.events[0].What)
	assert.Equal(t, "buzzer:off", f.rec.events[1].What)
	assert.Equal(t, uint64(common.LockoutTicks), f.rec.events[1].At-f.rec.events[0].At)
	assert.Equal(t, byte(protocol.VerifySuccess), f.ch.out[len(f.ch.out)-1])
	assert.Equal(t, lockout.Normal, f.ctl.Lockout())

	// the threshold lockout fires again afterwards
	f.rec.events = nil
	for _, pin := range []string{"1111", "2222", "3333"} {
		f.ch.request(protocol.OpenRequest, pin)
	}
	f.serve(t)
	assert.Equal(t, 1, f.rec.count("buzzer:on"))
	assert.Equal(t, 0, f.ctl.Failures())
	assert.Equal(t, lockout.Normal, f.ctl.Lockout())
}

func TestOpen_EveryCredentialMatchesOnlyItself(t *testing.T) {
	stored := []string{"0000", "1234", "9999", "5050", "0987"}

	for _, pin := range stored {
		t.Run(pin, func(t *testing.T) {
			f := newFixture(t)
			f.ch.request(protocol.SetFirstCredential, pin)
			f.ch.request(protocol.OpenRequest, pin)
			f.serve(t)
			require.Equal(t, []byte{byte(protocol.VerifySuccess)}, f.ch.out)

			c := credential.MustParse(pin)
			for pos := 0; pos < credential.Length; pos++ {
				for delta := byte(1); delta <= 9; delta++ {
					digits := c.Digits()
					digits[pos] = (digits[pos] + delta) % 10
					f.ch.out = nil
					f.ch.in = append(f.ch.in, byte(protocol.OpenRequest))
					f.ch.in = append(f.ch.in, digits...)
					f.serve(t)
					require.Equal(t, []byte{byte(protocol.VerifyFailure)}, f.ch.out, "position %d differs in %v", pos, digits)
				}
			}
			assert.Equal(t, 1, f.rec.count("motor:forward"), "only the matching request opened the door")
		})
	}
}
