// Package bar implements a headless status bar: a named line of module
// texts written to an output whenever it changes.
package bar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/perchbar/perch/internal/action"
	"github.com/perchbar/perch/internal/config"
	"github.com/perchbar/perch/internal/logging"
	"github.com/perchbar/perch/internal/router"
)

// Runner runs module commands.
type Runner interface {
	// Spawn starts a command without waiting for it.
	Spawn(command string) (int, error)
	// Output runs a command and returns the first line of its output.
	Output(ctx context.Context, command string, timeout time.Duration) (string, error)
}

// Bar is one status line. Hide, Show, Toggle and HandleSignal only flip
// state and post wake-ups; drawing happens in Run.
type Bar struct {
	name      string
	cfg       config.BarConfig
	separator string
	out       io.Writer
	runner    Runner
	logger    *slog.Logger
	modules   []*Module

	visible atomic.Bool
	redraw  chan struct{}

	mu       sync.Mutex
	drawn    string
	drawnSet bool
	hidden   bool
}

// New creates a bar from its config. mods must contain every module the
// bar references; missing ones are skipped.
func New(name string, cfg config.BarConfig, mods map[string]config.ModuleConfig, out io.Writer, runner Runner, logger *slog.Logger) *Bar {
	sep := config.DefaultSeparator
	if cfg.Separator != nil {
		sep = *cfg.Separator
	}

	b := &Bar{
		name:      name,
		cfg:       cfg,
		separator: sep,
		out:       out,
		runner:    runner,
		logger:    logger.With("component", "bar", "bar", name),
		redraw:    make(chan struct{}, 1),
	}
	b.visible.Store(!cfg.Hidden)

	for _, modName := range cfg.Modules {
		mc, ok := mods[modName]
		if !ok {
			b.logger.Warn("skipping unknown module", "module", modName)
			continue
		}
		b.modules = append(b.modules, newModule(modName, mc))
	}
	return b
}

// Name returns the bar's config name.
func (b *Bar) Name() string { return b.name }

// Visible reports whether the bar is shown.
func (b *Bar) Visible() bool { return b.visible.Load() }

// OnSigusr1 returns the action configured for SIGUSR1.
func (b *Bar) OnSigusr1() action.Action { return b.cfg.OnSigusr1 }

// OnSigusr2 returns the action configured for SIGUSR2.
func (b *Bar) OnSigusr2() action.Action { return b.cfg.OnSigusr2 }

// Hide hides the bar.
func (b *Bar) Hide() { b.setVisible(false) }

// Show shows the bar.
func (b *Bar) Show() { b.setVisible(true) }

// Toggle flips the bar's visibility.
func (b *Bar) Toggle() {
	for {
		v := b.visible.Load()
		if b.visible.CompareAndSwap(v, !v) {
			break
		}
	}
	b.logger.Debug("toggled", "visible", b.visible.Load())
	wake(b.redraw)
}

func (b *Bar) setVisible(v bool) {
	b.visible.Store(v)
	b.logger.Debug("visibility", "visible", v)
	wake(b.redraw)
}

// HandleSignal refreshes every module bound to sig and starts its
// on_signal command, if any. Signals outside the real-time range match
// no module.
func (b *Bar) HandleSignal(sig int) {
	offset := sig - int(router.SIGRTMIN)
	for _, m := range b.modules {
		if m.cfg.Signal == 0 || m.cfg.Signal != offset {
			continue
		}
		wake(m.refresh)
		if m.cfg.OnSignal == "" {
			continue
		}
		if _, err := b.runner.Spawn(m.cfg.OnSignal); err != nil {
			b.logger.Warn("on_signal failed", "module", m.name, "error", err)
		}
	}
}

// Run refreshes modules and draws the bar until ctx ends.
func (b *Bar) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, m := range b.modules {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.runModule(ctx, m)
		}()
	}
	defer wg.Wait()

	b.draw()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.redraw:
			b.draw()
		}
	}
}

func (b *Bar) runModule(ctx context.Context, m *Module) {
	var tick <-chan time.Time
	if m.cfg.Interval > 0 {
		t := time.NewTicker(time.Duration(m.cfg.Interval) * time.Second)
		defer t.Stop()
		tick = t.C
	}

	for {
		b.update(ctx, m)
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-m.refresh:
		}
	}
}

func (b *Bar) update(ctx context.Context, m *Module) {
	text, err := b.runner.Output(ctx, m.cfg.Exec, time.Duration(m.cfg.Timeout)*time.Second)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		b.logger.Warn("module command failed", "module", m.name, "error", err)
		text = ""
	}
	if m.cfg.StripAnsi {
		text = logging.StripANSI(text)
	}
	if m.set(m.format(text)) {
		wake(b.redraw)
	}
}

// Line returns the text the bar currently displays when visible.
func (b *Bar) Line() string {
	var parts []string
	for _, m := range b.modules {
		if t := m.get(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, b.separator)
}

func (b *Bar) draw() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.visible.Load() {
		if b.drawnSet && b.hidden {
			return
		}
		b.hidden, b.drawnSet, b.drawn = true, true, ""
		b.write("")
		return
	}

	line := b.Line()
	if b.drawnSet && !b.hidden && line == b.drawn {
		return
	}
	b.hidden, b.drawnSet, b.drawn = false, true, line
	b.write(line)
}

func (b *Bar) write(line string) {
	if _, err := fmt.Fprintln(b.out, line); err != nil {
		b.logger.Warn("write failed", "error", err)
	}
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
