package main

import (
	"fmt"
	"os"
)

const usageText = `storyboard tracks generation tasks and project data on a storyboard backend.

Usage:
  storyboard <command> [flags]

Commands:
  tasks       list backend tasks with the in-flight count
  clear       delete a finished task record
  watch       follow task updates until interrupted
  generate    submit a generation request (Ctrl-C cancels it)
  options     show or update generation options
  providers   list configured AI providers
  config      print configuration (effective or defaults)
  ui          run terminal UI
  help        show help

Flags:
  -h, --help   show help

Examples:
  storyboard tasks
  storyboard clear 3f2a9c
  storyboard watch --project p1
  storyboard generate --project p1 --json '{"shot_id":"s1"}' scene_image
  storyboard generate --validate analyze_script
  storyboard options --set imageModelName=flux-dev
  storyboard config --default --format toml
  storyboard ui --project p1
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
