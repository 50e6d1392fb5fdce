package reaper

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
)

// ErrAlreadyStarted is returned by Start on a reaper that is already running.
var ErrAlreadyStarted = errors.New("reaper already started")

// Observer receives reap statistics after every pass.
type Observer interface {
	ObserveReap(reaped, pending int)
}

// signalNotify is swapped in tests.
var signalNotify = signal.Notify

// Reaper owns SIGCHLD. It runs one goroutine locked to its own OS thread;
// no other goroutine in perch subscribes to SIGCHLD.
type Reaper struct {
	registry *Registry
	logger   *slog.Logger
	observer Observer

	started  atomic.Bool
	stopOnce sync.Once
	sigCh    chan os.Signal
	kickCh   chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a reaper for the given registry. observer may be nil.
func New(registry *Registry, logger *slog.Logger, observer Observer) *Reaper {
	return &Reaper{
		registry: registry,
		logger:   logger.With("component", "reaper"),
		observer: observer,
		sigCh:    make(chan os.Signal, 16),
		kickCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Registry returns the registry the reaper drains.
func (r *Reaper) Registry() *Registry { return r.registry }

// Register records pid in the registry and asks the wait goroutine for a
// pass, so a child that exited before it was registered is still reaped.
func (r *Reaper) Register(pid int) {
	r.registry.Register(pid)
	select {
	case r.kickCh <- struct{}{}:
	default:
	}
}

// Start subscribes to SIGCHLD and launches the wait goroutine. It returns
// once the goroutine is running on its dedicated thread.
func (r *Reaper) Start() error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	signalNotify(r.sigCh, syscall.SIGCHLD)

	ready := make(chan struct{})
	go r.loop(ready)
	<-ready
	return nil
}

// Stop unsubscribes from SIGCHLD and waits for the goroutine to exit.
// Remaining registered pids are given one last reap pass.
func (r *Reaper) Stop() {
	if !r.started.Load() {
		return
	}
	r.stopOnce.Do(func() {
		signal.Stop(r.sigCh)
		close(r.stopCh)
		<-r.doneCh
		r.reap()
	})
}

func (r *Reaper) loop(ready chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.doneCh)

	close(ready)

	for {
		select {
		case <-r.stopCh:
			return
		case sig := <-r.sigCh:
			r.handle(sig)
		case <-r.kickCh:
			r.reap()
		}
	}
}

func (r *Reaper) handle(sig os.Signal) {
	switch sig {
	case syscall.SIGCHLD:
		r.logger.Debug("received SIGCHLD")
		r.reap()
	default:
		r.logger.Debug("received signal, not handling", "signal", sig)
	}
}

func (r *Reaper) reap() {
	if r.registry.Len() == 0 {
		return
	}

	reaped, err := r.registry.ReapAll()
	if err != nil {
		r.logger.Error("wait failed", "error", err)
	}
	for _, pid := range reaped {
		r.logger.Debug("reaped child", "pid", pid)
	}
	if r.observer != nil {
		r.observer.ObserveReap(len(reaped), r.registry.Len())
	}
}
