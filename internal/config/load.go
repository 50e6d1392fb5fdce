package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ValidationError lists every semantic problem found in one config file.
type ValidationError struct {
	Path string
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("config validation failed in %s:\n  %s", e.Path, strings.Join(msgs, "\n  "))
}

func (e *ValidationError) Unwrap() []error { return e.Errs }

// Load reads the config file at path. It is called again on every reload,
// so a file broken after startup surfaces here.
func Load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read config: %s: %w", path, err)
	}
	return LoadBytes(data, path)
}

// LoadBytes decodes, defaults, expands and validates a config. Warnings
// cover unknown keys and modules no bar displays; path only labels errors.
func LoadBytes(data []byte, path string) (*Config, []string, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("config parse error in %s: %w", path, err)
	}

	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key: %s", strings.Join(key, ".")))
	}
	warnings = append(warnings, unusedModules(&cfg)...)

	ApplyDefaults(&cfg, md)
	if err := expandPaths(&cfg); err != nil {
		return nil, warnings, fmt.Errorf("config %s: %w", path, err)
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, warnings, &ValidationError{Path: path, Errs: errs}
	}
	return &cfg, warnings, nil
}

func unusedModules(cfg *Config) []string {
	used := make(map[string]bool)
	for _, b := range cfg.Bars {
		for _, m := range b.Modules {
			used[m] = true
		}
	}
	var unused []string
	for name := range cfg.Modules {
		if !used[name] {
			unused = append(unused, fmt.Sprintf("module %s is not used by any bar", name))
		}
	}
	sort.Strings(unused)
	return unused
}

// expandPaths resolves environment variables and a leading ~ in the lock
// file and in file outputs.
func expandPaths(cfg *Config) error {
	var err error
	if cfg.LockFile, err = expandPath(cfg.LockFile); err != nil {
		return fmt.Errorf("lock_file: %w", err)
	}
	for name, b := range cfg.Bars {
		if b.Output == "stdout" || b.Output == "stderr" {
			continue
		}
		if b.Output, err = expandPath(b.Output); err != nil {
			return fmt.Errorf("bars.%s.output: %w", name, err)
		}
		cfg.Bars[name] = b
	}
	return nil
}

func expandPath(p string) (string, error) {
	p = os.ExpandEnv(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
