// Package router maps delivered signals to lifecycle actions and applies
// them to the bars of the running client.
package router

import (
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"

	"github.com/perchbar/perch/internal/action"
)

// Bar is the capability surface the router needs from a bar. All methods
// are called from the signal dispatch goroutine and must not block.
type Bar interface {
	OnSigusr1() action.Action
	OnSigusr2() action.Action
	Hide()
	Show()
	Toggle()
	HandleSignal(sig int)
}

// Client owns the active bars and can tear them down.
type Client interface {
	// Bars returns the active bars in a stable order.
	Bars() []Bar
	// Reset drops the active bars and makes the running main loop return.
	Reset()
}

// Observer receives dispatch statistics. Implementations must not block.
type Observer interface {
	ObserveSignal(name string)
	ObserveAction(a action.Action)
}

// Router dispatches signals to bars and owns the reload flag.
type Router struct {
	client   Client
	logger   *slog.Logger
	observer Observer
	reload   atomic.Bool
	quit     atomic.Bool
}

// New creates a router for client. observer may be nil.
func New(client Client, logger *slog.Logger, observer Observer) *Router {
	return &Router{
		client:   client,
		logger:   logger.With("component", "router"),
		observer: observer,
	}
}

// ActionFor returns the action bar has configured for sig. Anything other
// than SIGUSR1 and SIGUSR2 maps to NoOp.
func ActionFor(bar Bar, sig os.Signal) action.Action {
	switch sig {
	case syscall.SIGUSR1:
		return bar.OnSigusr1()
	case syscall.SIGUSR2:
		return bar.OnSigusr2()
	default:
		return action.NoOp
	}
}

// Dispatch handles one delivered signal.
func (r *Router) Dispatch(sig os.Signal) {
	if r.observer != nil {
		r.observer.ObserveSignal(SignalName(sig))
	}

	switch {
	case sig == syscall.SIGUSR1, sig == syscall.SIGUSR2:
		r.HandleUser(sig)
	case sig == syscall.SIGINT:
		r.Interrupt()
	case IsRealtime(sig):
		r.Broadcast(sig)
	default:
		r.logger.Debug("no route for signal", "signal", SignalName(sig))
	}
}

// HandleUser applies each bar's configured action for sig, in bar order.
// A Reload ends the pass; later bars are not visited.
func (r *Router) HandleUser(sig os.Signal) {
	for _, bar := range r.client.Bars() {
		if r.Apply(bar, ActionFor(bar, sig)) {
			return
		}
	}
}

// Apply performs a on bar and reports whether the dispatch pass must stop.
// Reload is global: it sets the reload flag and resets the client.
func (r *Router) Apply(bar Bar, a action.Action) (stop bool) {
	switch a {
	case action.Hide:
		bar.Hide()
	case action.Show:
		bar.Show()
	case action.Toggle:
		bar.Toggle()
	case action.Reload:
		r.observe(a)
		r.RequestReload()
		return true
	case action.NoOp:
		return false
	default:
		r.logger.Warn("ignoring unknown action", "action", a)
		return false
	}
	r.observe(a)
	return false
}

// Broadcast hands sig to every bar's raw signal handler.
func (r *Router) Broadcast(sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	for _, bar := range r.client.Bars() {
		bar.HandleSignal(int(s))
	}
}

// RequestReload sets the reload flag and resets the client so the main
// loop returns and is entered again.
func (r *Router) RequestReload() {
	r.logger.Info("reloading")
	r.reload.Store(true)
	r.client.Reset()
}

// Interrupt clears the reload flag and resets the client so the main loop
// returns and the process terminates. The request is sticky: it also stops
// a main loop that has not been entered yet.
func (r *Router) Interrupt() {
	r.logger.Info("quitting")
	r.quit.Store(true)
	r.reload.Store(false)
	r.client.Reset()
}

// QuitRequested reports whether SIGINT was handled.
func (r *Router) QuitRequested() bool { return r.quit.Load() }

// ReloadRequested reports whether a reload is pending.
func (r *Router) ReloadRequested() bool { return r.reload.Load() }

// StopRequested reports whether the current main loop run should end,
// either for a reload or for SIGINT.
func (r *Router) StopRequested() bool { return r.reload.Load() || r.quit.Load() }

// ClearReload clears the reload flag.
func (r *Router) ClearReload() { r.reload.Store(false) }

func (r *Router) observe(a action.Action) {
	if r.observer != nil {
		r.observer.ObserveAction(a)
	}
}
