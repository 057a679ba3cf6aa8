package main

import (
	"io"
	"os"
	"os/signal"

	"storyboard/internal/config"
)

type commandRunner interface {
	Run(args []string) error
}

// interruptSource delivers Ctrl-C presses. stop releases the subscription.
type interruptSource func() (<-chan os.Signal, func())

type commandWiring struct {
	stdout             io.Writer
	stderr             io.Writer
	loadConfig         func() (config.CoreConfig, error)
	newRuntime         runtimeFactory
	interrupts         interruptSource
	configureUILogging uiLoggingFactory
	version            string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:             stdout,
		stderr:             stderr,
		loadConfig:         config.LoadCoreConfig,
		newRuntime:         newRuntime,
		interrupts:         osInterrupts,
		configureUILogging: configureUILogging,
		version:            buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"tasks":     NewTasksCommand(wiring),
		"clear":     NewClearCommand(wiring),
		"watch":     NewWatchCommand(wiring),
		"generate":  NewGenerateCommand(wiring),
		"options":   NewOptionsCommand(wiring),
		"providers": NewProvidersCommand(wiring),
		"config":    NewConfigCommand(wiring.stdout, wiring.stderr, wiring.loadConfig),
		"ui":        NewUICommand(wiring),
	}
}

func osInterrupts() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}
