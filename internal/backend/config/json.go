package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/doorlock/internal/flagx"
	"github.com/dmitrijs2005/doorlock/internal/timex"
)

// JsonConfig is the file form of Config. Durations accept "10ms" or integer
// nanoseconds. Absent fields keep the value from the previous layer.
type JsonConfig struct {
	Transport    string         `json:"transport"`
	LinkAddress  string         `json:"link_address"`
	Storage      string         `json:"storage"`
	StorageDSN   string         `json:"storage_dsn"`
	BaseAddress  *uint16        `json:"base_address"`
	SettleDelay  timex.Duration `json:"settle_delay"`
	WriteRetries *int           `json:"write_retries"`
	TickPeriod   timex.Duration `json:"tick_period"`
	OpenTicks    int            `json:"open_ticks"`
	HoldTicks    int            `json:"hold_ticks"`
	LockoutTicks int            `json:"lockout_ticks"`
	Threshold    int            `json:"threshold"`
	LogLevel     string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config. A missing or malformed
// file panics.
func parseJson(config *Config, args []string) {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.Transport, c.Transport)
	setString(&config.LinkAddress, c.LinkAddress)
	setString(&config.Storage, c.Storage)
	setString(&config.StorageDSN, c.StorageDSN)
	setString(&config.LogLevel, c.LogLevel)
	if c.BaseAddress != nil {
		config.BaseAddress = *c.BaseAddress
	}
	if c.WriteRetries != nil {
		config.WriteRetries = *c.WriteRetries
	}
	setDuration(&config.SettleDelay, c.SettleDelay)
	setDuration(&config.TickPeriod, c.TickPeriod)
	setInt(&config.OpenTicks, c.OpenTicks)
	setInt(&config.HoldTicks, c.HoldTicks)
	setInt(&config.LockoutTicks, c.LockoutTicks)
	setInt(&config.Threshold, c.Threshold)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
