package router

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// RealtimeSignals returns SIGRTMIN+1 through SIGRTMAX, the signals that are
// forwarded verbatim to every bar.
func RealtimeSignals() []os.Signal {
	var sigs []os.Signal
	for s := SIGRTMIN + 1; s <= SIGRTMAX; s++ {
		sigs = append(sigs, s)
	}
	return sigs
}

// IsRealtime reports whether sig is in SIGRTMIN+1 .. SIGRTMAX.
func IsRealtime(sig os.Signal) bool {
	s, ok := sig.(syscall.Signal)
	return ok && s > SIGRTMIN && s <= SIGRTMAX
}

// SignalName returns a stable name for sig, e.g. "SIGUSR1" or "SIGRTMIN+5".
func SignalName(sig os.Signal) string {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return sig.String()
	}
	if s >= SIGRTMIN && s <= SIGRTMAX {
		if s == SIGRTMIN {
			return "SIGRTMIN"
		}
		return fmt.Sprintf("SIGRTMIN+%d", int(s-SIGRTMIN))
	}
	if name := unix.SignalName(s); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(s))
}
