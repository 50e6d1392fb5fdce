package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/perchbar/perch/internal/client"
	"github.com/perchbar/perch/internal/ctl"
)

// execute runs the root command with fresh flag values and returns
// stdout, stderr and the error.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	configPath, initStdout, initForce, ctlLockFile = "", false, false, ""
	resetHelpFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// resetHelpFlags clears --help left set by an earlier execute; cobra
// keeps flag values on the package-level command tree.
func resetHelpFlags(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
		f.Changed = false
	}
	for _, sub := range cmd.Commands() {
		resetHelpFlags(sub)
	}
}

const testConfig = `
[bars.main]
modules = ["clock"]

[modules.clock]
exec = "date +%H:%M"
interval = 60
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := execute(t, nil, "--help")
	if err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"ctl", "version", "init", "check", "hash-password", "completion"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestHelpDoesNotLeakIntoNextRun(t *testing.T) {
	if _, _, err := execute(t, nil, "--help"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, nil, "check", "--help"); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "missing.toml")
	if _, _, err := execute(t, nil, "-c", missing); err == nil {
		t.Fatal("root command printed help instead of running")
	}
	if _, _, err := execute(t, nil, "check", "-c", missing); err == nil {
		t.Fatal("check printed help instead of running")
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, nil, "version")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"perch", "commit:", "built:", "go:", "os/arch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q", want)
		}
	}
}

func TestUnknownFlag(t *testing.T) {
	if _, _, err := execute(t, nil, "--nonexistent"); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perch", "config.toml")

	out, _, err := execute(t, nil, "init", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Fatalf("unexpected output: %q", out)
	}

	if _, _, err := execute(t, nil, "init", path); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if _, _, err := execute(t, nil, "init", "--force", path); err != nil {
		t.Fatalf("--force: %v", err)
	}

	// The generated file must pass check.
	out, _, err = execute(t, nil, "check", "-c", path)
	if err != nil {
		t.Fatalf("generated config does not validate: %v", err)
	}
	if !strings.Contains(out, "ok") {
		t.Fatalf("unexpected check output: %q", out)
	}
}

func TestInitStdout(t *testing.T) {
	out, _, err := execute(t, nil, "init", "--stdout")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[bars.main]") {
		t.Fatalf("expected sample config, got %q", out)
	}
}

func TestCheckCommand(t *testing.T) {
	path := writeTestConfig(t, "bogus = 1\n"+testConfig)
	out, errOut, err := execute(t, nil, "check", "-c", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ok (1 bars, 1 modules)") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(errOut, "unknown config key: bogus") {
		t.Fatalf("expected unknown key warning, got %q", errOut)
	}
}

func TestCheckCommandInvalid(t *testing.T) {
	path := writeTestConfig(t, "[bars.main]\nmodules = [\"missing\"]\n")
	_, _, err := execute(t, nil, "check", "-c", path)
	if err == nil || !strings.Contains(err.Error(), `unknown module "missing"`) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHashPasswordCommand(t *testing.T) {
	out, _, err := execute(t, strings.NewReader("secret\n"), "hash-password")
	if err != nil {
		t.Fatal(err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")); err != nil {
		t.Fatalf("hash does not match password: %v", err)
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, _, err := execute(t, strings.NewReader("\n"), "hash-password"); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestCtlStatusNotRunning(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "perch.lock")
	out, _, err := execute(t, nil, "ctl", "--lock-file", lock, "status")
	if !errors.Is(err, ctl.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if !strings.Contains(out, "not running") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCtlRefreshBadOffset(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "perch.lock")
	_, _, err := execute(t, nil, "ctl", "--lock-file", lock, "refresh", "five")
	if err == nil || !strings.Contains(err.Error(), "invalid offset") {
		t.Fatalf("expected invalid offset error, got %v", err)
	}
}

func TestRunMissingConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.toml")
	if _, _, err := execute(t, nil, "-c", missing); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestRunSecondInstance(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "perch.lock")
	held := flock.New(lock)
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("cannot take lock: %v", err)
	}
	defer held.Unlock()

	path := writeTestConfig(t, "lock_file = \""+lock+"\"\n"+testConfig)
	_, _, err := execute(t, nil, "-c", path)
	if !errors.Is(err, client.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestExitError(t *testing.T) {
	var err error = exitError(3)
	var code exitError
	if !errors.As(err, &code) || int(code) != 3 {
		t.Fatalf("errors.As failed for %v", err)
	}
	if err.Error() != "exit status 3" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
