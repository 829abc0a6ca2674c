package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/doorlock/internal/backend"
	backcfg "github.com/dmitrijs2005/doorlock/internal/backend/config"
	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/device"
	"github.com/dmitrijs2005/doorlock/internal/frontend"
	frontcfg "github.com/dmitrijs2005/doorlock/internal/frontend/config"
	"github.com/dmitrijs2005/doorlock/internal/link"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	flagStorage   string
	flagTick      time.Duration
	flagThreshold int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run both controllers on this terminal",
	Long: `Run the front-end (keypad and display) and the back-end (credential,
motor and buzzer) connected by an in-memory link. Digits enter the
credential, ENTER confirms, '+' opens the door and '-' changes the
credential. Ctrl-C quits.`,
	Args: cobra.NoArgs,
	RunE: runSimulator,
}

func init() {
	runCmd.Flags().StringVar(&flagStorage, "storage", backcfg.StorageSQLite, "back-end storage (memory, sqlite)")
	runCmd.Flags().DurationVar(&flagTick, "tick", sequencer.DefaultTickPeriod, "tick period for both controllers")
	runCmd.Flags().IntVar(&flagThreshold, "threshold", common.DefaultFailureThreshold, "consecutive failures before lockout")
}

func runSimulator(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bc := &backcfg.Config{}
	bc.LoadDefaults()
	bc.Storage = flagStorage
	bc.StorageDSN = flagDSN
	bc.TickPeriod = flagTick
	bc.Threshold = flagThreshold

	fc := &frontcfg.Config{}
	fc.LoadDefaults()
	fc.TickPeriod = flagTick
	fc.Threshold = flagThreshold

	back, err := backend.NewApp(ctx, bc, logger.With("controller", "back"))
	if err != nil {
		return err
	}
	defer back.Close()

	keypad, restore, err := device.OpenTerminalKeypad(os.Stdin)
	if err != nil {
		return err
	}
	defer restore()
	lcd := device.NewLCD(cmd.OutOrStdout(), term.IsTerminal(int(os.Stdin.Fd())))

	front, err := frontend.NewApp(fc, keypad, lcd, logger.With("controller", "front"))
	if err != nil {
		return err
	}

	return runPair(ctx, back, front, keypad.Interrupted())
}

// runPair runs the back-end on one end of an in-memory link and the
// front-end on the other until the front-end stops, a side fails, or
// interrupted is closed.
func runPair(ctx context.Context, back *backend.App, front *frontend.App, interrupted <-chan struct{}) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// raw mode turns Ctrl-C into a key, not a signal
	go func() {
		select {
		case <-interrupted:
			cancel()
		case <-ctx.Done():
		}
	}()

	frontLink, backLink := link.Pipe()
	defer frontLink.Close()
	defer backLink.Close()

	backErr := make(chan error, 1)
	go func() {
		err := back.ServeSession(ctx, backLink)
		if err != nil && !errors.Is(err, common.ErrLinkClosed) {
			cancel()
		}
		backErr <- err
	}()

	err := front.RunSession(ctx, frontLink)
	// the back-end may be in a door cycle or lockout and not reading the link
	cancel()
	_ = frontLink.Close()
	bErr := <-backErr

	switch {
	case errors.Is(err, device.ErrInterrupted), errors.Is(err, context.Canceled):
	case err != nil:
		return fmt.Errorf("front-end: %w", err)
	}
	if bErr != nil && !errors.Is(bErr, common.ErrLinkClosed) && !errors.Is(bErr, context.Canceled) {
		return fmt.Errorf("back-end: %w", bErr)
	}
	return nil
}
