package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/doorlock/internal/device"
	"github.com/dmitrijs2005/doorlock/internal/frontend"
	"github.com/dmitrijs2005/doorlock/internal/frontend/config"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"golang.org/x/term"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.LoadConfig()

	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			log.Printf("open log file: %v", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.NewJSONLogger(logOut, logging.ParseLevel(cfg.LogLevel))

	keypad, restore, err := device.OpenTerminalKeypad(os.Stdin)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	defer restore()

	lcd := device.NewLCD(os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))

	app, err := frontend.NewApp(cfg, keypad, lcd, logger)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// raw mode turns Ctrl-C into a key; stop even while a notice is shown
	go func() {
		select {
		case <-keypad.Interrupted():
			cancel()
		case <-ctx.Done():
		}
	}()

	err = app.Run(ctx)
	if err != nil && !errors.Is(err, device.ErrInterrupted) {
		_ = restore()
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
