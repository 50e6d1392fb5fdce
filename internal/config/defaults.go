package config

import (
	"github.com/BurntSushi/toml"

	"github.com/perchbar/perch/internal/action"
)

// DefaultSeparator joins module texts when a bar sets none.
const DefaultSeparator = " | "

// ApplyDefaults fills in unset fields with their default values. md tells
// an explicit "noop" action or a timeout of 0 apart from an absent one;
// with a zero MetaData both count as absent.
func ApplyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	for name, b := range cfg.Bars {
		if b.Output == "" {
			b.Output = "stdout"
		}
		if b.OnSigusr1 == action.NoOp && !md.IsDefined("bars", name, "on_sigusr1") {
			b.OnSigusr1 = action.Toggle
		}
		if b.OnSigusr2 == action.NoOp && !md.IsDefined("bars", name, "on_sigusr2") {
			b.OnSigusr2 = action.Reload
		}
		if b.Separator == nil {
			sep := DefaultSeparator
			b.Separator = &sep
		}
		cfg.Bars[name] = b
	}

	for name, m := range cfg.Modules {
		if m.Format == "" {
			m.Format = "{}"
		}
		if m.Timeout == 0 && !md.IsDefined("modules", name, "timeout") {
			m.Timeout = 10
		}
		cfg.Modules[name] = m
	}
}
