package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/doorlock/internal/common"
)

var errNoMoreKeys = errors.New("no more keys")

// scriptKeypad replays keys parsed from a string: digits, '\n' for ENTER,
// '+' and '-' for the menu keys. Anything else becomes an unmapped key.
type scriptKeypad struct {
	keys []Key
}

func (k *scriptKeypad) press(s string) {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			k.keys = append(k.keys, Key(r-'0'))
		case r == '\n':
			k.keys = append(k.keys, KeyEnter)
		case r == '+':
			k.keys = append(k.keys, KeyOpen)
		case r == '-':
			k.keys = append(k.keys, KeyChange)
		default:
			k.keys = append(k.keys, Key(r))
		}
	}
}

func (k *scriptKeypad) NextKey(_ context.Context) (Key, error) {
	if len(k.keys) == 0 {
		return 0, errNoMoreKeys
	}
	key := k.keys[0]
	k.keys = k.keys[1:]
	return key, nil
}

// bufferedKeypad models a keypad that kept presses made while the
// controller was busy. Discard drops those and makes later presses
// available.
type bufferedKeypad struct {
	scriptKeypad
	later    string
	discards int
}

func (k *bufferedKeypad) Discard() {
	k.discards++
	k.keys = nil
	k.press(k.later)
	k.later = ""
}

type recordingDisplay struct {
	events []string
}

func (d *recordingDisplay) ShowMessage(text string, row, col int) {
	d.events = append(d.events, fmt.Sprintf("%d,%d:%s", row, col, text))
}

func (d *recordingDisplay) Clear() { d.events = append(d.events, "clear") }

func (d *recordingDisplay) contains(event string) bool {
	for _, e := range d.events {
		if e == event {
			return true
		}
	}
	return false
}

func (d *recordingDisplay) count(event string) int {
	n := 0
	for _, e := range d.events {
		if e == event {
			n++
		}
	}
	return n
}

func (d *recordingDisplay) reset() { d.events = nil }

// scriptChannel plays the back-end side: in holds its responses, out
// collects what the front-end sent.
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
