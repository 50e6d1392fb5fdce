package bar

import (
	"strings"
	"sync"

	"github.com/perchbar/perch/internal/config"
)

// Module is one command-backed segment of a bar.
type Module struct {
	name    string
	cfg     config.ModuleConfig
	refresh chan struct{}

	mu   sync.Mutex
	text string
}

func newModule(name string, cfg config.ModuleConfig) *Module {
	if cfg.Format == "" {
		cfg.Format = "{}"
	}
	return &Module{
		name:    name,
		cfg:     cfg,
		refresh: make(chan struct{}, 1),
	}
}

// format substitutes text into the module's format. Empty output hides
// the module.
func (m *Module) format(text string) string {
	if text == "" {
		return ""
	}
	return strings.ReplaceAll(m.cfg.Format, "{}", text)
}

// set stores text and reports whether it changed.
func (m *Module) set(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.text == text {
		return false
	}
	m.text = text
	return true
}

func (m *Module) get() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}
