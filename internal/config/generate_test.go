package config

import (
	"strings"
	"testing"

	"github.com/perchbar/perch/internal/action"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg, warnings, err := LoadBytes([]byte(DefaultConfigTOML), "generated")
	if err != nil {
		t.Fatalf("generated config is invalid: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("generated config has warnings: %v", warnings)
	}
	main, ok := cfg.Bars["main"]
	if !ok {
		t.Fatal("expected bars.main")
	}
	if main.OnSigusr1 != action.Toggle || main.OnSigusr2 != action.Reload {
		t.Errorf("actions = %s/%s, want toggle/reload", main.OnSigusr1, main.OnSigusr2)
	}
	if len(main.Modules) != 2 {
		t.Errorf("main modules = %v", main.Modules)
	}
}

func TestDefaultConfigContainsAllSections(t *testing.T) {
	for _, section := range []string{
		"[log]",
		"[metrics]",
		"[bars.main]",
		"[modules.clock]",
		"[modules.load]",
	} {
		if !strings.Contains(DefaultConfigTOML, section) {
			t.Errorf("missing section %q in generated config", section)
		}
	}
}
