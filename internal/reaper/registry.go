// Package reaper collects the exit status of child processes spawned by
// perch. Pids are registered when a process is spawned and removed once a
// non-blocking wait has collected them. A single goroutine, the Reaper, is
// the only subscriber of SIGCHLD in the process.
package reaper

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// WaitFunc performs a non-blocking wait on pid. It returns true once the
// process has been collected.
type WaitFunc func(pid int) (bool, error)

// Registry is the set of child pids pending reap. It is safe for
// concurrent use.
type Registry struct {
	mu   sync.Mutex
	pids []int
	wait WaitFunc
}

// NewRegistry creates an empty registry that reaps with wait4(WNOHANG).
func NewRegistry() *Registry {
	return &Registry{wait: waitNoHang}
}

// NewRegistryWithWait creates a registry that reaps with the given wait
// function. Intended for tests.
func NewRegistryWithWait(wait WaitFunc) *Registry {
	return &Registry{wait: wait}
}

// Register records pid as a child awaiting collection.
func (r *Registry) Register(pid int) {
	r.mu.Lock()
	r.pids = append(r.pids, pid)
	r.mu.Unlock()
}

// Len returns the number of pids awaiting collection.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pids)
}

// Pids returns a copy of the registered pids in registration order.
func (r *Registry) Pids() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.pids))
	copy(out, r.pids)
	return out
}

// ReapAll waits on every registered pid without blocking and removes the
// ones that were collected. A pid the kernel no longer knows as our child
// (ECHILD) is removed as well. Other wait errors leave the pid in place and
// are returned joined.
//
// Survivors are compacted in place, so every entry is visited exactly once
// no matter how many are removed in a pass.
func (r *Registry) ReapAll() ([]int, error) {
	var (
		reaped []int
		errs   []error
	)

	r.mu.Lock()
	kept := r.pids[:0]
	for _, pid := range r.pids {
		done, err := r.wait(pid)
		switch {
		case errors.Is(err, unix.ECHILD):
			done = true
		case err != nil:
			errs = append(errs, fmt.Errorf("wait4 %d: %w", pid, err))
		}
		if done {
			reaped = append(reaped, pid)
			continue
		}
		kept = append(kept, pid)
	}
	clear(r.pids[len(kept):])
	r.pids = kept
	r.mu.Unlock()

	return reaped, errors.Join(errs...)
}

func waitNoHang(pid int) (bool, error) {
	var ws unix.WaitStatus
	for {
		got, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return got == pid, nil
	}
}
