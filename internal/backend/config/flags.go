package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/doorlock/internal/flagx"
)

// parseFlags overlays short flags:
//
//	-t string     link transport: serial, tcp or grpc
//	-a string     serial device, or listen address for tcp and grpc
//	-s string     storage: memory or sqlite
//	-d string     sqlite DSN
//	-b uint       credential base address
//	-w duration   settle delay between write and read-back
//	-r int        write retries after a read-back mismatch
//	-p duration   tick period
//	-o int        door open and close ticks
//	-k int        door hold ticks
//	-x int        lockout ticks
//	-n int        failure threshold
//	-l string     log level
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-t", "-a", "-s", "-d", "-b", "-w", "-r", "-p", "-o", "-k", "-x", "-n", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Transport, "t", config.Transport, "link transport (serial, tcp, grpc)")
	fs.StringVar(&config.LinkAddress, "a", config.LinkAddress, "serial device or listen address")
	fs.StringVar(&config.Storage, "s", config.Storage, "storage (memory, sqlite)")
	fs.StringVar(&config.StorageDSN, "d", config.StorageDSN, "sqlite DSN")
	base := fs.Uint("b", uint(config.BaseAddress), "credential base address")
	fs.DurationVar(&config.SettleDelay, "w", config.SettleDelay, "settle delay")
	fs.IntVar(&config.WriteRetries, "r", config.WriteRetries, "write retries")
	fs.DurationVar(&config.TickPeriod, "p", config.TickPeriod, "tick period")
	fs.IntVar(&config.OpenTicks, "o", config.OpenTicks, "door open/close ticks")
	fs.IntVar(&config.HoldTicks, "k", config.HoldTicks, "door hold ticks")
	fs.IntVar(&config.LockoutTicks, "x", config.LockoutTicks, "lockout ticks")
	fs.IntVar(&config.Threshold, "n", config.Threshold, "failure threshold")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *base > 0xFFFF {
		panic(fmt.Errorf("base address %#x out of range", *base))
	}
	config.BaseAddress = uint16(*base)
}
