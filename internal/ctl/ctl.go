// Package ctl implements the control client that signals a running perch
// instance. The instance is found through its lock file, which holds its
// pid while the lock is held.
package ctl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"github.com/perchbar/perch/internal/config"
	"github.com/perchbar/perch/internal/router"
)

// ErrNotRunning is returned when no instance holds the lock file.
var ErrNotRunning = errors.New("perch is not running")

// Client sends signals to the instance holding lockFile.
type Client struct {
	lockFile string
	kill     func(pid int, sig syscall.Signal) error
}

// New creates a control client for the given lock file.
func New(lockFile string) *Client {
	if lockFile == "" {
		lockFile = config.DefaultLockFile()
	}
	return &Client{lockFile: lockFile, kill: unix.Kill}
}

// PID returns the pid of the running instance.
func (c *Client) PID() (int, error) {
	if _, err := os.Stat(c.lockFile); errors.Is(err, os.ErrNotExist) {
		return 0, ErrNotRunning
	}

	// If we can take the lock nobody else holds it.
	probe := flock.New(c.lockFile)
	locked, err := probe.TryLock()
	if err != nil {
		return 0, fmt.Errorf("cannot probe %s: %w", c.lockFile, err)
	}
	if locked {
		probe.Unlock()
		return 0, ErrNotRunning
	}

	data, err := os.ReadFile(c.lockFile)
	if err != nil {
		return 0, fmt.Errorf("cannot read %s: %w", c.lockFile, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s: %q", c.lockFile, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// Signal sends sig to the running instance.
func (c *Client) Signal(sig syscall.Signal) error {
	pid, err := c.PID()
	if err != nil {
		return err
	}
	if err := c.kill(pid, sig); err != nil {
		return fmt.Errorf("cannot signal pid %d: %w", pid, err)
	}
	return nil
}

// Usr1 sends SIGUSR1, which applies each bar's on_sigusr1 action.
func (c *Client) Usr1() error { return c.Signal(syscall.SIGUSR1) }

// Usr2 sends SIGUSR2, which applies each bar's on_sigusr2 action.
func (c *Client) Usr2() error { return c.Signal(syscall.SIGUSR2) }

// Quit sends SIGINT.
func (c *Client) Quit() error { return c.Signal(syscall.SIGINT) }

// Refresh sends SIGRTMIN+offset, refreshing modules bound to offset.
func (c *Client) Refresh(offset int) error {
	sig, err := RefreshSignal(offset)
	if err != nil {
		return err
	}
	return c.Signal(sig)
}

// RefreshSignal returns SIGRTMIN+offset.
func RefreshSignal(offset int) (syscall.Signal, error) {
	if router.SIGRTMAX <= router.SIGRTMIN {
		return 0, errors.New("real-time signals are not supported on this platform")
	}
	if offset < 1 || offset > config.MaxSignalOffset {
		return 0, fmt.Errorf("offset must be between 1 and %d, got %d", config.MaxSignalOffset, offset)
	}
	return router.SIGRTMIN + syscall.Signal(offset), nil
}

// Status writes a one-line description of the instance to w.
func (c *Client) Status(w io.Writer) error {
	pid, err := c.PID()
	if errors.Is(err, ErrNotRunning) {
		_, werr := fmt.Fprintln(w, "perch is not running")
		if werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "perch is running (pid %d, lock %s)\n", pid, c.lockFile)
	return err
}
