package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/doorlock/internal/flagx"
	"github.com/dmitrijs2005/doorlock/internal/timex"
)

type JsonConfig struct {
	Transport       string         `json:"transport"`
	LinkAddress     string         `json:"link_address"`
	TickPeriod      timex.Duration `json:"tick_period"`
	OpenTicks       int            `json:"open_ticks"`
	HoldTicks       int            `json:"hold_ticks"`
	LockoutTicks    int            `json:"lockout_ticks"`
	NoticeTicks     int            `json:"notice_ticks"`
	LongNoticeTicks int            `json:"long_notice_ticks"`
	Threshold       int            `json:"threshold"`
	LogLevel        string         `json:"log_level"`
	LogFile         string         `json:"log_file"`
}

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

	if c.Transport != "" {
		config.Transport = c.Transport
	}
	if c.LinkAddress != "" {
		config.LinkAddress = c.LinkAddress
	}
	if c.TickPeriod.Duration != 0 {
		config.TickPeriod = c.TickPeriod.Duration
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		config.LogFile = c.LogFile
	}

	ticks := []struct {
		dst *int
		v   int
	}{
		{&config.OpenTicks, c.OpenTicks},
		{&config.HoldTicks, c.HoldTicks},
		{&config.LockoutTicks, c.LockoutTicks},
		{&config.NoticeTicks, c.NoticeTicks},
		{&config.LongNoticeTicks, c.LongNoticeTicks},
		{&config.Threshold, c.Threshold},
	}
	for _, t := range ticks {
		if t.v != 0 {
			*t.dst = t.v
		}
	}
}
