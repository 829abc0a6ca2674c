package config

import (
	"flag"

	"github.com/dmitrijs2005/doorlock/internal/flagx"
)

// parseFlags overlays short flags:
//
//	-t string     link transport: serial, tcp or grpc
//	-a string     serial device or back-end address
//	-p duration   tick period
//	-o int        door open and close ticks
//	-k int        door hold ticks
//	-x int        lockout ticks
//	-i int        short notice ticks
//	-j int        long notice ticks
//	-n int        failure threshold
//	-l string     log level
//	-f string     log file
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-t", "-a", "-p", "-o", "-k", "-x", "-i", "-j", "-n", "-l", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Transport, "t", config.Transport, "link transport (serial, tcp, grpc)")
	fs.StringVar(&config.LinkAddress, "a", config.LinkAddress, "serial device or back-end address")
	fs.DurationVar(&config.TickPeriod, "p", config.TickPeriod, "tick period")
	fs.IntVar(&config.OpenTicks, "o", config.OpenTicks, "door open/close ticks")
	fs.IntVar(&config.HoldTicks, "k", config.HoldTicks, "door hold ticks")
	fs.IntVar(&config.LockoutTicks, "x", config.LockoutTicks, "lockout ticks")
	fs.IntVar(&config.NoticeTicks, "i", config.NoticeTicks, "short notice ticks")
	fs.IntVar(&config.LongNoticeTicks, "j", config.LongNoticeTicks, "long notice ticks")
	fs.IntVar(&config.Threshold, "n", config.Threshold, "failure threshold")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file (default stderr)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
