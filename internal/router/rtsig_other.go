//go:build !linux

package router

import "syscall"

// No real-time signals outside Linux; the range is empty.
const (
	SIGRTMIN = syscall.Signal(0)
	SIGRTMAX = syscall.Signal(-1)
)
