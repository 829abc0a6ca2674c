// Package config loads the back-end controller settings.
//
// Values are layered: LoadDefaults, then the JSON file named by -c/-config,
// then short command-line flags. Later layers win.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/sequencer"
	"github.com/dmitrijs2005/doorlock/internal/storage"
)

const (
	TransportSerial = "serial"
	TransportTCP    = "tcp"
	TransportGRPC   = "grpc"

	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config holds runtime settings for the back-end controller.
//
// LinkAddress is a device path for the serial transport and a listen
// address for tcp and grpc.
type Config struct {
	Transport    string
	LinkAddress  string
	Storage      string
	StorageDSN   string
	BaseAddress  uint16
	SettleDelay  time.Duration
	WriteRetries int
	TickPeriod   time.Duration
	OpenTicks    int
	HoldTicks    int
	LockoutTicks int
	Threshold    int
	LogLevel     string
}

func (c *Config) LoadDefaults() {
	c.Transport = TransportTCP
	c.LinkAddress = "127.0.0.1:7300"
	c.Storage = StorageSQLite
	c.StorageDSN = "doorlock.db"
	c.BaseAddress = common.CredentialBaseAddress
	c.SettleDelay = 10 * time.Millisecond
	c.WriteRetries = 3
	c.TickPeriod = sequencer.DefaultTickPeriod
	c.OpenTicks = common.DoorOpenCloseTicks
	c.HoldTicks = common.DoorHoldTicks
	c.LockoutTicks = common.LockoutTicks
	c.Threshold = common.DefaultFailureThreshold
	c.LogLevel = "info"
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSerial, TransportTCP, TransportGRPC:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	switch c.Storage {
	case StorageMemory, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.LinkAddress == "" {
		return fmt.Errorf("link address is empty")
	}
	if c.TickPeriod <= 0 {
		return fmt.Errorf("tick period must be positive, got %s", c.TickPeriod)
	}
	if c.OpenTicks <= 0 || c.HoldTicks <= 0 || c.LockoutTicks <= 0 {
		return fmt.Errorf("interval ticks must be positive")
	}
	if end := int(c.BaseAddress) + common.CredentialLength; end > storage.DefaultSize {
		return fmt.Errorf("credential cells %#04x..%#04x exceed storage of %d bytes", c.BaseAddress, end-1, storage.DefaultSize)
	}
	if c.WriteRetries < 0 {
		return fmt.Errorf("write retries must not be negative")
	}
	return nil
}

// LoadConfig applies defaults, the JSON file and flags from os.Args.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
