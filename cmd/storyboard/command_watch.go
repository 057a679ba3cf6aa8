package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"storyboard/internal/logging"
	"storyboard/internal/types"
)

type WatchCommand struct {
	wiring commandWiring
}

func NewWatchCommand(wiring commandWiring) *WatchCommand {
	return &WatchCommand{wiring: wiring}
}

func (c *WatchCommand) Run(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	projectID := fs.String("project", "", "project to keep refreshed (defaults to the last opened)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := loadRuntime(c.wiring, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupts, stop := c.wiring.interrupts()
	defer stop()
	go func() {
		select {
		case <-interrupts:
			cancel()
		case <-ctx.Done():
		}
	}()

	updates, unsubscribe := rt.registry.Subscribe()
	defer unsubscribe()

	if id := rt.resolveProjectID(ctx, *projectID); id != "" {
		rt.project.InitProject(ctx, id)
		ws := rt.project.Snapshot()
		fmt.Fprintf(c.wiring.stdout, "project %s: %d characters, %d shots, %d fusions\n",
			id, len(ws.Characters), len(ws.Shots), len(ws.Fusions))
	}

	engineDone := make(chan error, 1)
	go func() { engineDone <- rt.engine.Run(ctx) }()

	for {
		select {
		case snapshot := <-updates:
			c.printUpdate(snapshot)
		case <-ctx.Done():
			if err := <-engineDone; err != nil && ctx.Err() == nil {
				rt.logger.Warn("engine_stopped", logging.Err(err))
			}
			return nil
		}
	}
}

func (c *WatchCommand) printUpdate(snapshot types.Snapshot) {
	counts := map[types.TaskStatus]int{}
	for _, task := range snapshot {
		if task != nil {
			counts[task.Status]++
		}
	}
	fmt.Fprintf(c.wiring.stdout, "%s tasks=%d in_flight=%d success=%d failed=%d\n",
		time.Now().Format(time.TimeOnly),
		len(snapshot),
		snapshot.InFlightCount(),
		counts[types.TaskStatusSuccess],
		counts[types.TaskStatusFailed],
	)
}
