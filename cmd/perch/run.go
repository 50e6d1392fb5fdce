package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/perchbar/perch/internal/client"
	"github.com/perchbar/perch/internal/config"
	"github.com/perchbar/perch/internal/lifecycle"
	"github.com/perchbar/perch/internal/logging"
	"github.com/perchbar/perch/internal/metrics"
	"github.com/perchbar/perch/internal/process"
	"github.com/perchbar/perch/internal/reaper"
	"github.com/perchbar/perch/internal/version"
)

func runPerch(cmd *cobra.Command, args []string) error {
	path, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	cfg, warnings, err := config.Load(path)
	if err != nil {
		return err
	}

	var logOut io.Writer = cmd.ErrOrStderr()
	if cfg.Log.Syslog {
		w, err := logging.NewSyslogWriter("perch")
		if err != nil {
			return err
		}
		defer w.Close()
		logOut = w
	}
	levelVar := logging.NewLevelVar(cfg.Log.Level)
	logger := logging.New(logging.LogConfig{
		Format: cfg.Log.Format,
		Output: logOut,
		Var:    levelVar,
	})
	for _, w := range warnings {
		logger.Warn("config warning", "warning", w)
	}

	m := metrics.New()
	m.SetBuildInfo(version.Version, goVersion())

	rp := reaper.New(reaper.NewRegistry(), logger, m)
	c, err := client.New(client.Options{
		ConfigPath: path,
		LockFile:   cfg.LockFile,
		Logger:     logger,
		LevelVar:   levelVar,
		Runner:     process.NewSpawner(rp, logger),
		Metrics:    m,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	loop := lifecycle.New(lifecycle.Options{
		Client:   c,
		Reaper:   rp,
		Logger:   logger,
		Observer: m,
	})
	c.SetReloadFunc(loop.Router().RequestReload)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	logger.Info("perch starting", "version", version.Version, "config", path)
	if code := loop.Run(ctx, args); code != 0 {
		return exitError(code)
	}
	return nil
}
