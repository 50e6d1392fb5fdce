//go:build linux

package router

import "syscall"

// Real-time signal bounds as seen by C programs linked against glibc,
// which reserves the two lowest kernel real-time signals for itself.
const (
	SIGRTMIN = syscall.Signal(34)
	SIGRTMAX = syscall.Signal(64)
)
