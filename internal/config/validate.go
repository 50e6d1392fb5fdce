package config

import (
	"fmt"
	"strings"
)

// MaxSignalOffset is the highest module signal offset; SIGRTMIN+30 is
// SIGRTMAX under glibc numbering.
const MaxSignalOffset = 30

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validFormats = map[string]bool{
	"json": true, "text": true,
}

// Validate checks the config for semantic errors and returns all of them.
func Validate(cfg *Config) []error {
	var errs []error

	if !validLevels[strings.ToLower(strings.TrimSpace(cfg.Log.Level))] {
		errs = append(errs, fmt.Errorf("log.level: must be debug, info, warn, or error, got %q", cfg.Log.Level))
	}
	if !validFormats[strings.ToLower(strings.TrimSpace(cfg.Log.Format))] {
		errs = append(errs, fmt.Errorf("log.format: must be json or text, got %q", cfg.Log.Format))
	}

	if cfg.Metrics.Listen == "" && (cfg.Metrics.Username != "" || cfg.Metrics.Password != "") {
		errs = append(errs, fmt.Errorf("metrics: username/password set without listen"))
	}
	if cfg.Metrics.Password != "" && !strings.HasPrefix(cfg.Metrics.Password, "$2") {
		errs = append(errs, fmt.Errorf("metrics.password: must be a bcrypt hash (see perch hash-password)"))
	}

	if len(cfg.Bars) == 0 {
		errs = append(errs, fmt.Errorf("bars: at least one bar is required"))
	}

	for name, b := range cfg.Bars {
		prefix := fmt.Sprintf("bars.%s", name)

		if b.OutputBackups < 0 {
			errs = append(errs, fmt.Errorf("%s: output_backups must be >= 0, got %d", prefix, b.OutputBackups))
		}
		if !b.OnSigusr1.Valid() {
			errs = append(errs, fmt.Errorf("%s: invalid on_sigusr1", prefix))
		}
		if !b.OnSigusr2.Valid() {
			errs = append(errs, fmt.Errorf("%s: invalid on_sigusr2", prefix))
		}
		for _, mod := range b.Modules {
			if _, ok := cfg.Modules[mod]; !ok {
				errs = append(errs, fmt.Errorf("%s: unknown module %q", prefix, mod))
			}
		}
	}

	for name, m := range cfg.Modules {
		prefix := fmt.Sprintf("modules.%s", name)

		if strings.TrimSpace(m.Exec) == "" {
			errs = append(errs, fmt.Errorf("%s: exec is required", prefix))
		}
		if m.Interval < 0 {
			errs = append(errs, fmt.Errorf("%s: interval must be >= 0, got %d", prefix, m.Interval))
		}
		if m.Signal < 0 || m.Signal > MaxSignalOffset {
			errs = append(errs, fmt.Errorf("%s: signal must be between 1 and %d, got %d", prefix, MaxSignalOffset, m.Signal))
		}
		if m.OnSignal != "" && m.Signal == 0 {
			errs = append(errs, fmt.Errorf("%s: on_signal requires signal", prefix))
		}
		if m.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s: timeout must be >= 0, got %d", prefix, m.Timeout))
		}
	}

	return errs
}
