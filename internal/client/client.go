// Package client owns the bars of one main loop run. It is the concrete
// application driven by the lifecycle loop.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/perchbar/perch/internal/bar"
	"github.com/perchbar/perch/internal/config"
	"github.com/perchbar/perch/internal/logging"
	"github.com/perchbar/perch/internal/metrics"
	"github.com/perchbar/perch/internal/router"
)

// ErrLocked is returned by New when another instance holds the lock.
var ErrLocked = errors.New("another perch instance is running")

// Options configures a Client.
type Options struct {
	ConfigPath string
	LockFile   string // defaults to config.DefaultLockFile()
	Logger     *slog.Logger
	LevelVar   *slog.LevelVar // optional; receives [log] level on each run
	Runner     bar.Runner
	Metrics    *metrics.Collector // optional
	Stdout     io.Writer          // defaults to os.Stdout
	Stderr     io.Writer          // defaults to os.Stderr
}

// Client builds bars from the config and runs them until reset.
type Client struct {
	configPath string
	logger     *slog.Logger
	levelVar   *slog.LevelVar
	runner     bar.Runner
	metrics    *metrics.Collector
	stdout     io.Writer
	stderr     io.Writer
	lock       *flock.Flock
	lockPath   string
	pidOnce    sync.Once
	pidErr     error

	mu       sync.Mutex
	bars     []*bar.Bar
	cancel   context.CancelFunc
	onReload func()
	stop     func() bool
}

// New acquires the single-instance lock and returns a client.
func New(opts Options) (*Client, error) {
	path := opts.LockFile
	if path == "" {
		path = config.DefaultLockFile()
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cannot lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}
	// Drop any pid left by a previous instance.
	if err := os.Truncate(path, 0); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("cannot truncate %s: %w", path, err)
	}

	c := &Client{
		configPath: opts.ConfigPath,
		logger:     opts.Logger.With("component", "client"),
		levelVar:   opts.LevelVar,
		runner:     opts.Runner,
		metrics:    opts.Metrics,
		stdout:     opts.Stdout,
		stderr:     opts.Stderr,
		lock:       lock,
		lockPath:   path,
	}
	if c.stdout == nil {
		c.stdout = os.Stdout
	}
	if c.stderr == nil {
		c.stderr = os.Stderr
	}
	return c, nil
}

// SetReloadFunc sets the function called when the config file changes
// and reload_on_change is enabled.
func (c *Client) SetReloadFunc(fn func()) {
	c.mu.Lock()
	c.onReload = fn
	c.mu.Unlock()
}

// SetStopFunc sets the check Run makes once it can be reset. When fn
// reports true the run returns at once: a Reset that came before that
// point found no run to cancel.
func (c *Client) SetStopFunc(fn func() bool) {
	c.mu.Lock()
	c.stop = fn
	c.mu.Unlock()
}

// Run loads the config, builds the bars named in args (all bars if args
// is empty), and runs them until Reset is called or ctx ends.
func (c *Client) Run(ctx context.Context, args []string) (int, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The cancel func is installed first so a Reset racing the build
	// still ends this run.
	c.mu.Lock()
	c.cancel = cancel
	onReload := c.onReload
	stop := c.stop
	c.mu.Unlock()
	defer c.drop()

	if stop != nil && stop() {
		c.logger.Debug("reset before run started")
		return 0, nil
	}

	// The lock file doubles as the pid file read by "perch ctl". It is
	// written once the caller is ready for signals, on the first run.
	c.pidOnce.Do(func() {
		c.pidErr = os.WriteFile(c.lockPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
	})
	if c.pidErr != nil {
		return 1, fmt.Errorf("cannot write pid to %s: %w", c.lockPath, c.pidErr)
	}

	cfg, warnings, err := config.Load(c.configPath)
	if err != nil {
		return 1, err
	}
	for _, w := range warnings {
		c.logger.Warn("config warning", "warning", w)
	}
	if c.levelVar != nil {
		logging.SetLevel(c.levelVar, cfg.Log.Level)
	}

	names, err := selectBars(cfg, args)
	if err != nil {
		return 1, err
	}

	bars := make([]*bar.Bar, 0, len(names))
	for _, name := range names {
		bc := cfg.Bars[name]
		out, closeOut, err := c.openOutput(bc)
		if err != nil {
			return 1, fmt.Errorf("bar %s: %w", name, err)
		}
		defer closeOut()
		bars = append(bars, bar.New(name, bc, cfg.Modules, out, c.runner, c.logger))
	}

	var srvErr <-chan error
	if cfg.Metrics.Listen != "" && c.metrics != nil {
		srv := metrics.NewServer(metrics.ServerConfig{
			Listen:   cfg.Metrics.Listen,
			Username: cfg.Metrics.Username,
			Password: cfg.Metrics.Password,
		}, c.metrics, c.logger)
		if err := srv.Start(); err != nil {
			return 1, err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
		srvErr = srv.Err()
	}

	if cfg.ReloadOnChange && onReload != nil {
		w, err := watchConfig(c.configPath, c.logger, onReload)
		if err != nil {
			c.logger.Warn("not watching config", "error", err)
		} else {
			defer w.Close()
		}
	}

	c.mu.Lock()
	if runCtx.Err() != nil {
		c.mu.Unlock()
		return 0, nil
	}
	c.bars = bars
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetBarsActive(len(bars))
		defer c.metrics.SetBarsActive(0)
	}
	c.logger.Info("bars started", "bars", names)

	var wg sync.WaitGroup
	for _, b := range bars {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(runCtx)
		}()
	}

	var runErr error
	select {
	case <-runCtx.Done():
	case err := <-srvErr:
		runErr = fmt.Errorf("metrics server: %w", err)
		cancel()
	}
	wg.Wait()

	if runErr != nil {
		return 1, runErr
	}
	return 0, nil
}

// Reset drops the active bars and ends the current run. It is a no-op
// when no run is active.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars = nil
	if c.cancel != nil {
		c.cancel()
	}
}

// Bars returns the active bars ordered by name.
func (c *Client) Bars() []router.Bar {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]router.Bar, len(c.bars))
	for i, b := range c.bars {
		out[i] = b
	}
	return out
}

// Close clears the pid and releases the single-instance lock.
func (c *Client) Close() error {
	if err := os.Truncate(c.lockPath, 0); err != nil {
		c.logger.Warn("cannot clear pid", "path", c.lockPath, "error", err)
	}
	return c.lock.Unlock()
}

func (c *Client) drop() {
	c.mu.Lock()
	c.bars = nil
	c.cancel = nil
	c.mu.Unlock()
}

func (c *Client) openOutput(bc config.BarConfig) (io.Writer, func(), error) {
	switch bc.Output {
	case "", "stdout":
		return c.stdout, func() {}, nil
	case "stderr":
		return c.stderr, func() {}, nil
	}
	rf, err := logging.OpenRotating(bc.Output, logging.RotationConfig{
		Maxbytes: bc.OutputMaxbytes,
		Backups:  bc.OutputBackups,
	})
	if err != nil {
		return nil, nil, err
	}
	return rf, func() { rf.Close() }, nil
}

// selectBars returns the bar names to run, sorted. An empty selection
// means every configured bar.
func selectBars(cfg *config.Config, args []string) ([]string, error) {
	var names []string
	if len(args) == 0 {
		for name := range cfg.Bars {
			names = append(names, name)
		}
	} else {
		seen := make(map[string]bool)
		for _, name := range args {
			if _, ok := cfg.Bars[name]; !ok {
				return nil, fmt.Errorf("unknown bar %q", name)
			}
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
