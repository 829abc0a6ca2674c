package main

import (
	"fmt"
	"sort"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/credential"
	"github.com/dmitrijs2005/doorlock/internal/storage"
	"github.com/dmitrijs2005/doorlock/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var cellsCmd = &cobra.Command{
	Use:   "cells",
	Short: "Inspect or reset the back-end storage file",
}

var cellsDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "List written cells; credential digits are masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeAll, err := openCells(cmd)
		if err != nil {
			return err
		}
		defer closeAll()

		cells, err := s.Dump(cmd.Context())
		if err != nil {
			return err
		}
		addrs := make([]int, 0, len(cells))
		for a := range cells {
			addrs = append(addrs, int(a))
		}
		sort.Ints(addrs)

		out := cmd.OutOrStdout()
		for _, a := range addrs {
			fmt.Fprintf(out, "%#04x  %s\n", a, maskCell(uint16(a), cells[uint16(a)]))
		}
		fmt.Fprintf(out, "%d cell(s) written\n", len(addrs))
		return nil
	},
}

var cellsEraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the credential cells so the next boot starts unprovisioned",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeAll, err := openCells(cmd)
		if err != nil {
			return err
		}
		defer closeAll()

		if err := s.Erase(cmd.Context(), common.CredentialBaseAddress, credential.Length); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "credential cells erased")
		return nil
	},
}

func init() {
	cellsCmd.AddCommand(cellsDumpCmd)
	cellsCmd.AddCommand(cellsEraseCmd)
}

// openCells opens the sqlite store named by --dsn, logging migrations to
// the --log-file destination.
func openCells(cmd *cobra.Command) (*sqlite.Store, func(), error) {
	logger, closeLog, err := openLogger()
	if err != nil {
		return nil, nil, err
	}
	s, err := sqlite.Open(cmd.Context(), flagDSN, storage.DefaultSize, logger)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	return s, func() {
		_ = s.Close()
		_ = closeLog()
	}, nil
}

func maskCell(addr uint16, b byte) string {
	inCredential := addr >= common.CredentialBaseAddress && addr < common.CredentialBaseAddress+credential.Length
	if inCredential && credential.IsDigit(b) {
		return "digit"
	}
	return fmt.Sprintf("%#04x", b)
}
