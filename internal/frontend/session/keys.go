package session

import "context"

// Key is one keypad press. Digit keys carry their value 0–9; the control
// keys use the codes the keypad matrix reports for them.
type Key byte

const (
	KeyEnter  Key = 13
	KeyOpen   Key = '+'
	KeyChange Key = '-'
)

// IsDigit reports whether k is one of the ten digit keys.
func (k Key) IsDigit() bool { return k <= 9 }

func (k Key) String() string {
	switch {
	case k.IsDigit():
		return string(rune('0' + k))
	case k == KeyEnter:
		return "enter"
	case k == KeyOpen:
		return "open"
	case k == KeyChange:
		return "change"
	}
	return "unknown"
}

// Keypad blocks until the next key is pressed.
type Keypad interface {
	NextKey(ctx context.Context) (Key, error)
}

// Discarder is implemented by keypads that hold presses until they are
// read. The controller discards whatever was pressed while it was busy.
type Discarder interface {
	Discard()
}

// Display is a character display addressed by row and column.
type Display interface {
	ShowMessage(text string, row, col int)
	Clear()
}
