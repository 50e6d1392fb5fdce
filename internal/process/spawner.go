// Package process starts the shell commands behind bar modules.
package process

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// DefaultShell runs every command line.
const DefaultShell = "/bin/sh"

// Registrar records spawned pids for later reaping.
type Registrar interface {
	Register(pid int)
}

// Spawner starts commands in their own process group. Fire-and-forget
// commands are handed to the registrar and never waited on here; output
// commands are waited on by os/exec and never registered.
type Spawner struct {
	registrar Registrar
	logger    *slog.Logger
	shell     string
}

// NewSpawner creates a spawner that registers fire-and-forget pids with reg.
func NewSpawner(reg Registrar, logger *slog.Logger) *Spawner {
	return &Spawner{
		registrar: reg,
		logger:    logger.With("component", "spawner"),
		shell:     DefaultShell,
	}
}

// Spawn starts command without waiting for it and returns its pid.
func (s *Spawner) Spawn(command string) (int, error) {
	cmd := exec.Command(s.shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("cannot spawn %q: %w", command, err)
	}

	pid := cmd.Process.Pid
	s.registrar.Register(pid)
	// The reaper collects the exit status; drop our handle.
	_ = cmd.Process.Release()

	s.logger.Debug("spawned", "pid", pid, "command", command)
	return pid, nil
}

// Output runs command, waits for it, and returns the first line of its
// stdout with surrounding whitespace removed. The whole process group is
// killed when ctx ends or timeout elapses.
func (s *Spawner) Output(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("command %q: %w", command, ctx.Err())
		}
		return "", fmt.Errorf("command %q: %w", command, err)
	}
	return FirstLine(out), nil
}

// FirstLine returns the first line of out, trimmed.
func FirstLine(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	if sc.Scan() {
		return strings.TrimSpace(sc.Text())
	}
	return ""
}
