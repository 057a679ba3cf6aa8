package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"storyboard/internal/app"
	"storyboard/internal/config"
	"storyboard/internal/logging"
	"storyboard/internal/notify"
	"storyboard/internal/types"
)

// uiLoggingFactory opens the log destination for the terminal UI, which
// cannot share the screen with log lines.
type uiLoggingFactory func(level string) (logging.Logger, func())

type UICommand struct {
	wiring commandWiring
}

func NewUICommand(wiring commandWiring) *UICommand {
	return &UICommand{wiring: wiring}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	projectID := fs.String("project", "", "project to open (defaults to the last opened)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	keymap, err := cfg.Keymap()
	if err != nil {
		return err
	}
	logger, closeLog := logging.Nop(), func() {}
	if c.wiring.configureUILogging != nil {
		logger, closeLog = c.wiring.configureUILogging(cfg.LogLevel())
	}
	defer closeLog()
	logger.Info("ui_start", logging.F("version", c.wiring.version))

	toasts := notify.NewChannelSink(32)
	rt, err := c.wiring.newRuntime(cfg, runtimeOptions{
		logger:       logger,
		sinks:        []notify.Sink{toasts},
		extraMethods: []string{string(types.NotificationMethodToast)},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := rt.engine.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("engine_stopped", logging.Err(err))
		}
	}()

	err = app.Run(ctx, app.Deps{
		Tasks:      rt.registry,
		Project:    rt.project,
		Generation: rt.controller,
		Sync:       rt.engine,
		Notices:    toasts.C(),
		ProjectID:  rt.resolveProjectID(ctx, *projectID),
		Keymap:     keymap,
		Logger:     logger,
	})
	cancel()
	<-engineDone
	return err
}

func configureUILogging(level string) (logging.Logger, func()) {
	logPath, err := config.LogPath()
	if err != nil {
		return logging.Nop(), func() {}
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return logging.Nop(), func() {}
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return logging.Nop(), func() {}
	}
	return logging.New(file, logging.ParseLevel(level)), func() { _ = file.Close() }
}
