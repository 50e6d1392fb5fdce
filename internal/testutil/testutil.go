// Package testutil provides shared test helpers for the perch test suite.
package testutil

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/perchbar/perch/internal/config"
)

// TempDir creates a temporary directory for testing and registers cleanup.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "perch-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// FreeTCPPort returns an available TCP port by binding to :0 and releasing.
func FreeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("cannot find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

// MustParseConfig parses a TOML string into a Config struct, failing the
// test on error.
func MustParseConfig(t *testing.T, toml string) *config.Config {
	t.Helper()
	cfg, warnings, err := config.LoadBytes([]byte(toml), "test.toml")
	if err != nil {
		t.Fatalf("MustParseConfig: %v", err)
	}
	for _, w := range warnings {
		t.Logf("config warning: %s", w)
	}
	return cfg
}

// WithDebugLog appends a [log] table raising the level to debug. It goes
// after body so top-level keys in body stay top-level.
func WithDebugLog(body string) string {
	return strings.TrimRight(body, "\n") + "\n\n[log]\nlevel = \"debug\"\n"
}

// WaitFor polls a condition function until it returns true or the timeout
// expires, failing the test on timeout.
func WaitFor(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	interval := 20 * time.Millisecond

	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}
	t.Fatal("WaitFor: condition not met within timeout")
}

// WriteFile writes content to a file in the given directory.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("cannot write %s: %v", path, err)
	}
	return path
}

// Instance is the on-disk layout of a test perch instance: a config file
// whose lock file and bar outputs live in Dir.
type Instance struct {
	Dir        string
	ConfigPath string
	LockFile   string
}

// NewInstance writes a config made of a lock_file line followed by body.
// Bars in body that should write into Dir can use Instance.Output names.
func NewInstance(t *testing.T, body string) *Instance {
	t.Helper()
	dir := TempDir(t)
	in := &Instance{
		Dir:      dir,
		LockFile: filepath.Join(dir, "perch.lock"),
	}
	in.ConfigPath = filepath.Join(dir, "config.toml")
	in.WriteConfig(t, body)
	return in
}

// WriteConfig replaces the instance's config file, keeping its lock file.
func (in *Instance) WriteConfig(t *testing.T, body string) {
	t.Helper()
	body = strings.ReplaceAll(body, "{{dir}}", in.Dir)
	full := fmt.Sprintf("lock_file = %q\n\n%s", in.LockFile, body)
	WriteFile(t, in.Dir, filepath.Base(in.ConfigPath), full)
}

// Output returns the path of a bar output file named name in Dir.
func (in *Instance) Output(name string) string {
	return filepath.Join(in.Dir, name)
}

// LastLine returns the last line of the file at path, or "" if the file
// is missing or empty.
func LastLine(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	s := strings.TrimSuffix(string(data), "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
