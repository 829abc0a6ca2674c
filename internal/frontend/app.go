// Package frontend wires the front-end controller: keypad, display, tick
// source and the link transport from config.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/doorlock/internal/frontend/config"
	"github.com/dmitrijs2005/doorlock/internal/frontend/session"
	"github.com/dmitrijs2005/doorlock/internal/link"
	"github.com/dmitrijs2005/doorlock/internal/link/grpclink"
	"github.com/dmitrijs2005/doorlock/internal/lockout"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/dmitrijs2005/doorlock/internal/protocol"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	keypad  session.Keypad
	display session.Display
}

func NewApp(c *config.Config, keypad session.Keypad, display session.Display, l logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &App{config: c, logger: l, keypad: keypad, display: display}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run connects to the back-end and runs the session until a signal arrives
// or the session fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "Starting front-end...", "transport", app.config.Transport, "address", app.config.LinkAddress)

	ch, closer, err := app.openLink(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	err = app.RunSession(ctx, ch)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	app.logger.Info(ctx, "front-end stopped")
	return err
}

func (app *App) openLink(ctx context.Context) (link.Channel, io.Closer, error) {
	switch app.config.Transport {
	case config.TransportSerial:
		s, err := link.OpenSerial(app.config.LinkAddress)
		return s, s, err
	case config.TransportTCP:
		s, err := link.DialTCP(ctx, app.config.LinkAddress)
		return s, s, err
	case config.TransportGRPC:
		c, err := grpclink.Dial(app.config.LinkAddress)
		return c, c, err
	}
	return nil, nil, fmt.Errorf("unknown transport %q", app.config.Transport)
}

// RunSession runs the front-end session over ch on a fresh tick source.
func (app *App) RunSession(ctx context.Context, ch link.Channel) error {
	ticks := sequencer.NewClockSource(app.config.TickPeriod)
	defer ticks.Stop()

	ctl := session.New(
		app.keypad,
		app.display,
		protocol.NewCodec(ch, app.logger),
		sequencer.New(ticks),
		lockout.New(app.config.Threshold),
		session.Timing{
			OpenTicks:       app.config.OpenTicks,
			HoldTicks:       app.config.HoldTicks,
			CloseTicks:      app.config.OpenTicks,
			LockoutTicks:    app.config.LockoutTicks,
			NoticeTicks:     app.config.NoticeTicks,
			LongNoticeTicks: app.config.LongNoticeTicks,
		},
		app.logger,
	)
	return ctl.Run(ctx)
}
