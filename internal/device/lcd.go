package device

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	LCDRows = 2
	LCDCols = 16

	clearScreen = "\x1b[H\x1b[2J"
)

// LCD emulates a character display. Every change redraws the panel on w.
type LCD struct {
	w     io.Writer
	raw   bool
	style lipgloss.Style
	cells [LCDRows][LCDCols]rune
}

// NewLCD draws on w. With raw set the terminal is in raw mode: the screen
// is cleared before each frame and lines end in CRLF.
func NewLCD(w io.Writer, raw bool) *LCD {
	d := &LCD{
		w:   w,
		raw: raw,
		style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Foreground(lipgloss.Color("120")).
			Padding(0, 1),
	}
	d.blank()
	return d
}

// ShowMessage writes text starting at row, col. Text past the last column
// is cut off; positions outside the panel are ignored.
func (d *LCD) ShowMessage(text string, row, col int) {
	if row < 0 || row >= LCDRows || col < 0 {
		return
	}
	for _, r := range text {
		if col >= LCDCols {
			break
		}
		d.cells[row][col] = r
		col++
	}
	d.draw()
}

func (d *LCD) Clear() {
	d.blank()
	d.draw()
}

// Lines returns the panel content without decoration.
func (d *LCD) Lines() []string {
	lines := make([]string, LCDRows)
	for i := range d.cells {
		lines[i] = string(d.cells[i][:])
	}
	return lines
}

// Render returns the decorated panel.
func (d *LCD) Render() string {
	return d.style.Render(strings.Join(d.Lines(), "\n"))
}

func (d *LCD) blank() {
	for i := range d.cells {
		for j := range d.cells[i] {
			d.cells[i][j] = ' '
		}
	}
}

func (d *LCD) draw() {
	frame := d.Render() + "\n"
	if d.raw {
		frame = clearScreen + strings.ReplaceAll(frame, "\n", "\r\n")
	}
	_, _ = fmt.Fprint(d.w, frame)
}
