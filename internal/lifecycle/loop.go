// Package lifecycle runs the client's main loop under signal control:
// it installs the signal subscriptions, starts the reaper, enters the main
// loop, and enters it again for as long as reloads are requested.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/perchbar/perch/internal/reaper"
	"github.com/perchbar/perch/internal/router"
)

// State is the lifecycle state of a Loop.
type State int32

const (
	NotStarted State = iota
	Running
	ReloadPending
	Terminating
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Running:
		return "RUNNING"
	case ReloadPending:
		return "RELOAD_PENDING"
	case Terminating:
		return "TERMINATING"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

// Client is the application driven by the loop.
type Client interface {
	router.Client
	// Run builds the bars and blocks until Reset is called or ctx ends.
	Run(ctx context.Context, args []string) (int, error)
	// Close releases resources held across main loop runs.
	Close() error
}

// stopChecker is implemented by clients that can skip a run whose reset
// arrived before the run was ready to be canceled.
type stopChecker interface {
	SetStopFunc(fn func() bool)
}

// Observer receives loop statistics in addition to dispatch statistics.
type Observer interface {
	router.Observer
	ObserveLoopRun()
	ObserveReload()
}

// Swapped in tests so the test binary keeps its default dispositions.
var (
	signalNotify = signal.Notify
	signalIgnore = signal.Ignore
	signalStop   = signal.Stop
)

// Options configures a Loop.
type Options struct {
	Client   Client
	Reaper   *reaper.Reaper
	Logger   *slog.Logger
	Observer Observer // optional
}

// Loop is the signal-driven lifecycle controller.
type Loop struct {
	client   Client
	reaper   *reaper.Reaper
	router   *router.Router
	logger   *slog.Logger
	observer Observer

	state      atomic.Int32
	sigCh      chan os.Signal
	stopCh     chan struct{}
	dispatchCh chan struct{}
}

// New creates a loop. It does not touch signal dispositions until Run.
func New(opts Options) *Loop {
	var obs router.Observer
	if opts.Observer != nil {
		obs = opts.Observer
	}
	l := &Loop{
		client:     opts.Client,
		reaper:     opts.Reaper,
		router:     router.New(opts.Client, opts.Logger, obs),
		logger:     opts.Logger.With("component", "lifecycle"),
		observer:   opts.Observer,
		sigCh:      make(chan os.Signal, 16),
		stopCh:     make(chan struct{}),
		dispatchCh: make(chan struct{}),
	}
	if sc, ok := opts.Client.(stopChecker); ok {
		sc.SetStopFunc(l.router.StopRequested)
	}
	return l
}

// Router returns the loop's router, e.g. to request a reload from a
// config watcher.
func (l *Loop) Router() *router.Router { return l.router }

// State returns the current lifecycle state.
func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) setState(s State) {
	old := State(l.state.Swap(int32(s)))
	if old != s {
		l.logger.Debug("state change", "from", old.String(), "to", s.String())
	}
}

// Run drives the client until it returns without a pending reload and
// returns the process exit code. A Loop can only be run once.
func (l *Loop) Run(ctx context.Context, args []string) int {
	l.install()

	if err := l.reaper.Start(); err != nil {
		l.logger.Error("cannot start reaper", "error", err)
		l.setState(Terminating)
		l.uninstall()
		return 1
	}

	l.setState(Running)

	code := 0
	for !l.router.QuitRequested() {
		l.router.ClearReload()

		var err error
		code, err = l.runOnce(ctx, args)
		if err != nil {
			l.logger.Error("main loop failed", "error", err)
			code = 1
			break
		}
		if !l.router.ReloadRequested() || l.router.QuitRequested() || ctx.Err() != nil {
			break
		}

		l.setState(ReloadPending)
		if l.observer != nil {
			l.observer.ObserveReload()
		}
		l.setState(Running)
	}

	l.setState(Terminating)
	l.uninstall()
	l.reaper.Stop()
	if err := l.client.Close(); err != nil {
		l.logger.Warn("client close failed", "error", err)
	}
	return code
}

func (l *Loop) runOnce(ctx context.Context, args []string) (code int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	if l.observer != nil {
		l.observer.ObserveLoopRun()
	}
	return l.client.Run(ctx, args)
}

// install subscribes to the handled signals and starts the dispatch
// goroutine, which plays the part of the synchronous signal handlers.
// SIGCHLD is deliberately absent: the reaper owns it.
func (l *Loop) install() {
	signalNotify(l.sigCh, handledSignals()...)

	go l.dispatch()
}

func (l *Loop) dispatch() {
	defer close(l.dispatchCh)
	for {
		select {
		case <-l.stopCh:
			return
		case sig := <-l.sigCh:
			l.router.Dispatch(sig)
		}
	}
}

// uninstall sets every handled signal to ignore, real-time ones included
// since their default disposition terminates, and stops the dispatch
// goroutine.
func (l *Loop) uninstall() {
	signalIgnore(handledSignals()...)
	signalStop(l.sigCh)
	close(l.stopCh)
	<-l.dispatchCh
}

func handledSignals() []os.Signal {
	sigs := []os.Signal{syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGINT}
	return append(sigs, router.RealtimeSignals()...)
}
