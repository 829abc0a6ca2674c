// Command doorsim runs both door lock controllers in one process over an
// in-memory link, with the terminal as keypad and display.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	flagLogLevel string
	flagLogFile  string
	flagDSN      string
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "doorsim",
	Short:         "Door lock controller pair simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "doorsim.log", "JSON log destination, \"-\" for stderr")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "doorsim.db", "sqlite DSN holding the back-end cells")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cellsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the doorsim version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "doorsim", version)
	},
}

// openLogger returns the logger named by the persistent flags and a func
// closing its file.
func openLogger() (logging.Logger, func() error, error) {
	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }
	if flagLogFile != "-" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}
	return logging.NewJSONLogger(w, logging.ParseLevel(flagLogLevel)), closeFn, nil
}
