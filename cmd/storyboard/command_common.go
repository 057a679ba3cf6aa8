package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"text/tabwriter"

	"storyboard/internal/app/sanitizer"
	"storyboard/internal/logging"
	"storyboard/internal/types"
)

const version = "dev"

func printTasks(output io.Writer, snapshot types.Snapshot) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tKIND\tCREATED\tDESC")
	for _, task := range snapshot {
		if task == nil {
			continue
		}
		status := string(task.Status)
		if task.Status == types.TaskStatusProcessing && task.Progress > 0 {
			status = fmt.Sprintf("%s(%d%%)", status, task.Progress)
		}
		desc := sanitizer.Line(task.Desc)
		if task.Status == types.TaskStatusFailed && task.Error != "" {
			desc = sanitizer.Line(task.Error)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", task.ID, status, orDash(task.Kind), orDash(task.CreatedAt), orDash(desc))
	}
	_ = writer.Flush()
	fmt.Fprintf(output, "%d in flight\n", snapshot.InFlightCount())
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// loadRuntime loads config and wires the client core with a stderr logger.
func loadRuntime(w commandWiring, opts runtimeOptions) (*storyboardRuntime, error) {
	cfg, err := w.loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.logger == nil {
		opts.logger = logging.New(w.stderr, logging.ParseLevel(cfg.LogLevel()))
	}
	if opts.bell == nil {
		opts.bell = w.stderr
	}
	return w.newRuntime(cfg, opts)
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
