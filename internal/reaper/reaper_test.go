package reaper

import (
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingObserver struct {
	mu     sync.Mutex
	reaped int
	passes int
}

func (o *recordingObserver) ObserveReap(reaped, pending int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reaped += reaped
	o.passes++
}

func (o *recordingObserver) total() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reaped
}

func TestReaperStartTwice(t *testing.T) {
	r := New(NewRegistry(), testLogger(), nil)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	if err := r.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start() = %v, want ErrAlreadyStarted", err)
	}
}

func TestReaperStopWithoutStart(t *testing.T) {
	r := New(NewRegistry(), testLogger(), nil)
	// Should not block or panic.
	r.Stop()
}

func TestReaperStopIdempotent(t *testing.T) {
	r := New(NewRegistry(), testLogger(), nil)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	r.Stop()
	r.Stop()
}

func TestReaperReapsOnSIGCHLD(t *testing.T) {
	obs := &recordingObserver{}
	reg := NewRegistry()
	r := New(reg, testLogger(), obs)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	// The child outlives registration, so its SIGCHLD finds the pid.
	cmd := exec.Command("/bin/sh", "-c", "sleep 0.2")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	reg.Register(cmd.Process.Pid)

	deadline := time.Now().Add(5 * time.Second)
	for reg.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("child %d not reaped", cmd.Process.Pid)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if obs.total() != 1 {
		t.Fatalf("observer saw %d reaps, want 1", obs.total())
	}
}

func TestReaperIgnoresOtherSignals(t *testing.T) {
	calls := 0
	reg := NewRegistryWithWait(func(int) (bool, error) {
		calls++
		return true, nil
	})
	reg.Register(7)

	r := New(reg, testLogger(), nil)
	r.handle(syscall.SIGUSR1)

	if calls != 0 {
		t.Fatalf("wait called %d times for SIGUSR1", calls)
	}
	if reg.Len() != 1 {
		t.Fatal("registry should be untouched")
	}

	r.handle(syscall.SIGCHLD)
	if reg.Len() != 0 {
		t.Fatal("SIGCHLD should drain the registry")
	}
}

func TestReaperStopFinalPass(t *testing.T) {
	reg := NewRegistryWithWait(alwaysReaped)
	r := New(reg, testLogger(), nil)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	reg.Register(11)
	r.Stop()

	if reg.Len() != 0 {
		t.Fatalf("Len() = %d after Stop, want 0", reg.Len())
	}
}

func TestReaperWaitErrorDoesNotStopLoop(t *testing.T) {
	fail := true
	var mu sync.Mutex
	reg := NewRegistryWithWait(func(int) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return false, errors.New("transient")
		}
		return true, nil
	})
	reg.Register(5)

	r := New(reg, testLogger(), nil)
	r.handle(syscall.SIGCHLD)
	if reg.Len() != 1 {
		t.Fatal("entry should survive a failed wait")
	}

	mu.Lock()
	fail = false
	mu.Unlock()
	r.handle(syscall.SIGCHLD)
	if reg.Len() != 0 {
		t.Fatal("entry should be reaped on the next pass")
	}
}

func TestReaperRegisterAfterExit(t *testing.T) {
	obs := &recordingObserver{}
	reg := NewRegistry()
	r := New(reg, testLogger(), obs)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	// Let the child exit and its SIGCHLD pass before registering it.
	cmd := exec.Command("true")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	r.Register(cmd.Process.Pid)

	deadline := time.Now().Add(5 * time.Second)
	for reg.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("late-registered child %d not reaped", cmd.Process.Pid)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if obs.total() != 1 {
		t.Fatalf("observer saw %d reaps, want 1", obs.total())
	}
}

func TestReaperRegisterBeforeStart(t *testing.T) {
	reg := NewRegistryWithWait(alwaysReaped)
	r := New(reg, testLogger(), nil)
	r.Register(5)
	r.Register(6)
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for reg.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("pending kick was not served after Start")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
