// Package config loads the front-end controller settings: defaults, then
// the JSON file named by -c/-config, then short flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
)

const (
	TransportSerial = "serial"
	TransportTCP    = "tcp"
	TransportGRPC   = "grpc"
)

// Config holds runtime settings for the front-end controller. The door and
// lockout ticks must match the back-end's.
//
// LogFile receives the JSON log; empty means stderr, which keeps the
// display on stdout readable.
type Config struct {
	Transport       string
	LinkAddress     string
	TickPeriod      time.Duration
	OpenTicks       int
	HoldTicks       int
	LockoutTicks    int
	NoticeTicks     int
	LongNoticeTicks int
	Threshold       int
	LogLevel        string
	LogFile         string
}

func (c *Config) LoadDefaults() {
	c.Transport = TransportTCP
	c.LinkAddress = "127.0.0.1:7300"
	c.TickPeriod = sequencer.DefaultTickPeriod
	c.OpenTicks = common.DoorOpenCloseTicks
	c.HoldTicks = common.DoorHoldTicks
	c.LockoutTicks = common.LockoutTicks
	c.NoticeTicks = common.NoticeTicks
	c.LongNoticeTicks = common.LongNoticeTicks
	c.Threshold = common.DefaultFailureThreshold
	c.LogLevel = "info"
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSerial, TransportTCP, TransportGRPC:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.LinkAddress == "" {
		return fmt.Errorf("link address is empty")
	}
	if c.TickPeriod <= 0 {
		return fmt.Errorf("tick period must be positive, got %s", c.TickPeriod)
	}
	for _, n := range []int{c.OpenTicks, c.HoldTicks, c.LockoutTicks, c.NoticeTicks, c.LongNoticeTicks} {
		if n <= 0 {
			return fmt.Errorf("interval ticks must be positive")
		}
	}
	return nil
}

func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
