package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"storyboard/internal/client"
	"storyboard/internal/generation"
	"storyboard/internal/providers"
	"storyboard/internal/types"
)

type GenerateCommand struct {
	wiring commandWiring
}

func NewGenerateCommand(wiring commandWiring) *GenerateCommand {
	return &GenerateCommand{wiring: wiring}
}

func (c *GenerateCommand) Run(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	body := fs.String("json", "", "request body as a JSON object")
	bodyFile := fs.String("body-file", "", "read the request body from a file")
	projectID := fs.String("project", "", "project id added to the body as project_id")
	wait := fs.Bool("wait", false, "for queued kinds, wait until the task finishes")
	waitTimeout := fs.Duration("timeout", 10*time.Minute, "give up waiting after this long")
	validate := fs.Bool("validate", false, "check the chosen provider and model against the catalog first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("generate requires a kind")
	}
	def, ok := providers.Lookup(fs.Arg(0))
	if !ok {
		return fmt.Errorf("unknown generation kind %q", strings.TrimSpace(fs.Arg(0)))
	}
	kind := def.Kind
	payload, err := buildGenerateBody(*body, *bodyFile, *projectID)
	if err != nil {
		return err
	}

	rt, err := loadRuntime(c.wiring, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	selection := providers.SelectionFor(def, rt.project.LoadGenOptions(ctx))
	if *validate && !selection.Empty() {
		catalog, err := rt.client.Providers(ctx)
		if err != nil {
			return err
		}
		if err := providers.Validate(def, selection, catalog); err != nil {
			return err
		}
	}
	selection.Apply(payload)

	interrupts, stop := c.wiring.interrupts()
	defer stop()
	submitted := make(chan struct{})
	go func() {
		select {
		case <-interrupts:
			rt.controller.Cancel()
		case <-submitted:
		}
	}()

	var resp *client.SubmitResponse
	err = rt.controller.Run(ctx, "Generating "+string(kind), *projectID, func(token context.Context) error {
		var callErr error
		resp, callErr = rt.client.Generate(token, kind, payload)
		return callErr
	})
	close(submitted)
	if err != nil {
		if errors.Is(err, generation.ErrCancelledByUser) {
			return errors.New("generation cancelled")
		}
		return err
	}

	if !def.Async {
		return writeJSON(c.wiring.stdout, resp.Raw)
	}
	if resp.TaskID == "" {
		fmt.Fprintln(c.wiring.stdout, "submitted")
		return nil
	}
	fmt.Fprintf(c.wiring.stdout, "submitted task %s\n", resp.TaskID)
	if !*wait {
		return nil
	}
	return c.waitForTask(rt, resp.TaskID, *waitTimeout)
}

// waitForTask follows the registry until the task settles. An interrupt
// here only stops waiting; the backend job keeps running.
func (c *GenerateCommand) waitForTask(rt *storyboardRuntime, taskID string, timeout time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupts, stop := c.wiring.interrupts()
	defer stop()

	updates, unsubscribe := rt.registry.Subscribe()
	defer unsubscribe()
	go func() {
		select {
		case <-interrupts:
			cancel()
		case <-ctx.Done():
		}
	}()
	go func() { _ = rt.engine.Run(ctx) }()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case snapshot := <-updates:
			task, ok := snapshot.Find(taskID)
			if !ok || !task.Status.Terminal() {
				continue
			}
			fmt.Fprintf(c.wiring.stdout, "task %s %s\n", taskID, task.Status)
			if task.Status == types.TaskStatusFailed {
				return fmt.Errorf("task %s failed: %s", taskID, orDash(task.Error))
			}
			return nil
		case <-ctx.Done():
			fmt.Fprintf(c.wiring.stdout, "stopped waiting for %s\n", taskID)
			return nil
		case <-deadline.C:
			return fmt.Errorf("task %s still running after %s", taskID, timeout)
		}
	}
}

func buildGenerateBody(raw, path, projectID string) (map[string]any, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = string(data)
	}
	body := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return nil, fmt.Errorf("request body must be a JSON object: %w", err)
		}
	}
	if projectID = strings.TrimSpace(projectID); projectID != "" {
		if _, ok := body["project_id"]; !ok {
			body["project_id"] = projectID
		}
	}
	return body, nil
}
