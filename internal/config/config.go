// Package config handles loading and validating perch configuration.
package config

import "github.com/perchbar/perch/internal/action"

// Config is the top-level perch configuration.
type Config struct {
	ReloadOnChange bool                    `toml:"reload_on_change"`
	LockFile       string                  `toml:"lock_file"`
	Log            LogConfig               `toml:"log"`
	Metrics        MetricsConfig           `toml:"metrics"`
	Bars           map[string]BarConfig    `toml:"bars"`
	Modules        map[string]ModuleConfig `toml:"modules"`
}

// LogConfig holds logger settings. Level is re-applied on every reload.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Syslog bool   `toml:"syslog"`
}

// MetricsConfig holds the Prometheus listener settings.
type MetricsConfig struct {
	Listen   string `toml:"listen"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// BarConfig holds per-bar settings.
type BarConfig struct {
	Output         string        `toml:"output"`
	OutputMaxbytes string        `toml:"output_maxbytes"`
	OutputBackups  int           `toml:"output_backups"`
	OnSigusr1      action.Action `toml:"on_sigusr1"`
	OnSigusr2      action.Action `toml:"on_sigusr2"`
	Separator      *string       `toml:"separator"`
	Modules        []string      `toml:"modules"`
	Hidden         bool          `toml:"hidden"`
}

// ModuleConfig holds per-module settings.
type ModuleConfig struct {
	Exec      string `toml:"exec"`
	Interval  int    `toml:"interval"`
	Signal    int    `toml:"signal"`
	OnSignal  string `toml:"on_signal"`
	Format    string `toml:"format"`
	Timeout   int    `toml:"timeout"` // seconds; an explicit 0 disables it
	StripAnsi bool   `toml:"strip_ansi"`
}
