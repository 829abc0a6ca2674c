// Package device holds the drivers the controllers run against outside of
// real hardware: a keypad read from a terminal, a character display drawn
// on a terminal, and a motor and buzzer that report to the log.
package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/doorlock/internal/frontend/session"
	"golang.org/x/term"
)

// ErrInterrupted is returned by the keypad when Ctrl-C is read in raw mode.
var ErrInterrupted = errors.New("keypad interrupted")

const ctrlC = 0x03

// KeyFromByte maps a terminal byte to a keypad key. Bytes without a key
// are reported as not ok.
func KeyFromByte(b byte) (session.Key, bool) {
	switch {
	case b >= '0' && b <= '9':
		return session.Key(b - '0'), true
	case b == '\r' || b == '\n':
		return session.KeyEnter, true
	case b == '+':
		return session.KeyOpen, true
	case b == '-':
		return session.KeyChange, true
	}
	return 0, false
}

type keyResult struct {
	key session.Key
	at  time.Time
	err error
}

// keyBuffer bounds how many presses are held while the controller is busy.
// The reader drains the terminal into it so presses made during a wait can
// be told apart from presses made afterwards.
const keyBuffer = 64

// Keypad reads keys from a byte stream. A background reader owns the
// stream so NextKey can return on context cancellation.
type Keypad struct {
	keys        chan keyResult
	interrupted chan struct{}

	mu     sync.Mutex
	cutoff time.Time
}

func NewKeypad(r io.Reader) *Keypad {
	k := &Keypad{
		keys:        make(chan keyResult, keyBuffer),
		interrupted: make(chan struct{}),
	}
	go k.read(bufio.NewReader(r))
	return k
}

func (k *Keypad) read(r *bufio.Reader) {
	defer close(k.keys)
	for {
		b, err := r.ReadByte()
		if err != nil {
			k.keys <- keyResult{err: fmt.Errorf("read keypad: %w", err)}
			return
		}
		if b == ctrlC {
			close(k.interrupted)
			k.keys <- keyResult{err: ErrInterrupted}
			return
		}
		if key, ok := KeyFromByte(b); ok {
			k.keys <- keyResult{key: key, at: time.Now()}
		}
	}
}

// NextKey blocks for the next mapped key. Keys dropped by Discard are
// skipped; read errors and ErrInterrupted are always delivered.
func (k *Keypad) NextKey(ctx context.Context) (session.Key, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case r, ok := <-k.keys:
			if !ok {
				return 0, fmt.Errorf("read keypad: %w", io.EOF)
			}
			if r.err != nil {
				return 0, r.err
			}
			if k.stale(r.at) {
				continue
			}
			return r.key, nil
		}
	}
}

// Discard drops every key pressed so far.
func (k *Keypad) Discard() {
	k.mu.Lock()
	k.cutoff = time.Now()
	k.mu.Unlock()
}

func (k *Keypad) stale(at time.Time) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return !at.After(k.cutoff)
}

// Interrupted is closed once Ctrl-C has been read, whether or not anyone
// is waiting for a key.
func (k *Keypad) Interrupted() <-chan struct{} {
	return k.interrupted
}

// OpenTerminalKeypad reads keys from f. When f is a terminal it is put in
// raw mode so single key presses arrive without ENTER; the returned restore
// func puts it back. Other files (pipes, redirected input) are read as is.
func OpenTerminalKeypad(f *os.File) (*Keypad, func() error, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return NewKeypad(f), func() error { return nil }, nil
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, fmt.Errorf("set terminal raw mode: %w", err)
	}
	restore := func() error { return term.Restore(fd, old) }
	return NewKeypad(f), restore, nil
}
