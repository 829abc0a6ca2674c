// Package backend wires the back-end controller: storage, credential
// store, actuators, tick source and the link transport from config.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/doorlock/internal/backend/config"
	"github.com/dmitrijs2005/doorlock/internal/backend/controller"
	"github.com/dmitrijs2005/doorlock/internal/backend/credstore"
	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/device"
	"github.com/dmitrijs2005/doorlock/internal/filex"
	"github.com/dmitrijs2005/doorlock/internal/link"
	"github.com/dmitrijs2005/doorlock/internal/link/grpclink"
	"github.com/dmitrijs2005/doorlock/internal/lockout"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/dmitrijs2005/doorlock/internal/protocol"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
	"github.com/dmitrijs2005/doorlock/internal/storage"
	"github.com/dmitrijs2005/doorlock/internal/storage/sqlite"
)

type App struct {
	config *config.Config
	logger logging.Logger

	cells      storage.ByteStore
	closeCells func() error
	creds      *credstore.Store
	motor      controller.Motor
	buzzer     controller.Buzzer
	lock       *lockout.Machine
	ticks      sequencer.TickSource
	stopTicks  func()
	seq        *sequencer.Sequencer
}

// NewApp opens storage and builds the parts shared by every link session.
// The lockout machine outlives sessions, so reconnecting does not clear a
// failure count.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cells, closeCells, err := openStorage(ctx, c, l)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	clock := sequencer.NewClockSource(c.TickPeriod)

	app := &App{
		config:     c,
		logger:     l,
		cells:      cells,
		closeCells: closeCells,
		creds: credstore.New(cells, credstore.Options{
			BaseAddress:  c.BaseAddress,
			SettleDelay:  c.SettleDelay,
			WriteRetries: c.WriteRetries,
		}, l),
		motor:     device.NewMotor(l),
		buzzer:    device.NewBuzzer(l),
		lock:      lockout.New(c.Threshold),
		ticks:     clock,
		stopTicks: clock.Stop,
	}
	app.seq = sequencer.New(app.ticks)
	return app, nil
}

func openStorage(ctx context.Context, c *config.Config, l logging.Logger) (storage.ByteStore, func() error, error) {
	switch c.Storage {
	case config.StorageSQLite:
		if err := filex.EnsureParentDir(c.StorageDSN); err != nil {
			return nil, nil, err
		}
		s, err := sqlite.Open(ctx, c.StorageDSN, storage.DefaultSize, l)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorageMemory:
		return storage.NewMemory(storage.DefaultSize), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage %q", c.Storage)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the link until a signal arrives or a session fails fatally.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting back-end...", "transport", app.config.Transport, "address", app.config.LinkAddress)
	app.initSignalHandler(cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.serveTransport(ctx, cancelFunc)
		cancelFunc()
	}()
	wg.Wait()

	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if runErr != nil {
		app.logger.Error(ctx, "back-end stopped", "error", runErr)
	} else {
		app.logger.Info(ctx, "back-end stopped")
	}
	return runErr
}

func (app *App) serveTransport(ctx context.Context, cancelFunc context.CancelFunc) error {
	switch app.config.Transport {
	case config.TransportSerial:
		s, err := link.OpenSerial(app.config.LinkAddress)
		if err != nil {
			return err
		}
		defer s.Close()
		return app.ServeSession(ctx, s)

	case config.TransportTCP:
		for {
			s, err := link.AcceptTCP(ctx, app.config.LinkAddress)
			if err != nil {
				return err
			}
			err = app.ServeSession(ctx, s)
			_ = s.Close()
			if !errors.Is(err, common.ErrLinkClosed) {
				return err
			}
			app.logger.Info(ctx, "peer hung up, waiting for the next one")
		}

	case config.TransportGRPC:
		var fatal error
		srv := grpclink.NewServer(app.config.LinkAddress, func(ctx context.Context, ch link.Channel) error {
			err := app.ServeSession(ctx, ch)
			if err != nil && ctx.Err() == nil && !errors.Is(err, common.ErrLinkClosed) {
				fatal = err
				cancelFunc()
			}
			return err
		}, app.logger)
		if err := srv.Run(ctx); err != nil {
			return err
		}
		return fatal
	}
	return fmt.Errorf("unknown transport %q", app.config.Transport)
}

// ServeSession runs a controller over ch until the peer hangs up, ctx ends
// or an exchange fails. The stored credential is reloaded first.
func (app *App) ServeSession(ctx context.Context, ch link.Channel) error {
	ctl := controller.New(
		protocol.NewCodec(ch, app.logger),
		app.creds,
		app.motor,
		app.buzzer,
		app.seq,
		app.lock,
		controller.Timing{
			OpenTicks:    app.config.OpenTicks,
			HoldTicks:    app.config.HoldTicks,
			CloseTicks:   app.config.OpenTicks,
			LockoutTicks: app.config.LockoutTicks,
		},
		app.logger,
	)
	if err := ctl.Provision(ctx); err != nil {
		return err
	}
	return ctl.Serve(ctx)
}

// Close releases the tick source and storage.
func (app *App) Close() error {
	app.stopTicks()
	return app.closeCells()
}
