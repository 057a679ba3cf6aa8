package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
)

type TasksCommand struct {
	wiring commandWiring
}

func NewTasksCommand(wiring commandWiring) *TasksCommand {
	return &TasksCommand{wiring: wiring}
}

func (c *TasksCommand) Run(args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	asJSON := fs.Bool("json", false, "print tasks as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := loadRuntime(c.wiring, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	snapshot, err := rt.registry.FetchAll(context.Background())
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(c.wiring.stdout, snapshot)
	}
	printTasks(c.wiring.stdout, snapshot)
	return nil
}

type ClearCommand struct {
	wiring commandWiring
}

func NewClearCommand(wiring commandWiring) *ClearCommand {
	return &ClearCommand{wiring: wiring}
}

func (c *ClearCommand) Run(args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("clear requires a task id")
	}

	rt, err := loadRuntime(c.wiring, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	for _, id := range fs.Args() {
		if err := rt.registry.Remove(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.wiring.stdout, "cleared %s\n", id)
	}
	return nil
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
