package frontend

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/doorlock/internal/device"
	"github.com/dmitrijs2005/doorlock/internal/frontend/config"
	"github.com/dmitrijs2005/doorlock/internal/frontend/session"
	"github.com/dmitrijs2005/doorlock/internal/link"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.TickPeriod = time.Millisecond
	c.OpenTicks = 2
	c.HoldTicks = 1
	c.NoticeTicks = 1
	c.LongNoticeTicks = 1
	c.LockoutTicks = 2
	return c
}

// readN collects n bytes, stopping early on a link error.
func readN(ch link.Channel, n int) []byte {
	out := make([]byte, 0, n)
	for len(out) < n {
		b, err := ch.ReceiveByte(context.Background())
		if err != nil {
			break
		}
		out = append(out, b)
	}
	return out
}

func TestRunSession_SetupThenOpen(t *testing.T) {
	var screen bytes.Buffer
	lcd := device.NewLCD(&screen, false)
	keys := device.NewKeypad(strings.NewReader("1234\n1234\n" + "+1234\n"))

	app, err := NewApp(fastConfig(), keys, lcd, logging.NewDiscard())
	require.NoError(t, err)

	frontLink, backLink := link.Pipe()
	defer frontLink.Close()
	defer backLink.Close()

	got := make(chan []byte, 2)
	go func() {
		got <- readN(backLink, 5)
		got <- readN(backLink, 5)
		_ = backLink.SendByte(context.Background(), 0xF3)
	}()

	err = app.RunSession(context.Background(), frontLink)
	require.ErrorIs(t, err, io.EOF, "session ends when the keypad runs dry")

	assert.Equal(t, []byte{0xF1, 1, 2, 3, 4}, <-got)
	assert.Equal(t, []byte{0xF2, 1, 2, 3, 4}, <-got)
	assert.Contains(t, screen.String(), session.MsgClosing)
	assert.Equal(t, session.MsgMenuOpen, strings.TrimSpace(lcd.Lines()[0]))
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := fastConfig()
	c.Transport = "smoke-signal"
	_, err := NewApp(c, device.NewKeypad(strings.NewReader("")), device.NewLCD(io.Discard, false), logging.NewDiscard())
	require.Error(t, err)
}

func TestRun_DialFailure(t *testing.T) {
	c := fastConfig()
	c.LinkAddress = "127.0.0.1:1"
	app, err := NewApp(c, device.NewKeypad(strings.NewReader("")), device.NewLCD(io.Discard, false), logging.NewDiscard())
	require.NoError(t, err)

	require.Error(t, app.Run(context.Background()))
}
