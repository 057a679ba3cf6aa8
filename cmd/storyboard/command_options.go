package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	toml "github.com/pelletier/go-toml/v2"

	"storyboard/internal/types"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatTOML  = "toml"
)

type OptionsCommand struct {
	wiring commandWiring
}

func NewOptionsCommand(wiring commandWiring) *OptionsCommand {
	return &OptionsCommand{wiring: wiring}
}

func (c *OptionsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("options", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	var sets stringList
	fs.Var(&sets, "set", "key=value to persist (repeatable)")
	format := fs.String("format", formatTable, "output format: table|json|toml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resolvedFormat, err := resolveFormat(*format, formatTable, formatJSON, formatTOML)
	if err != nil {
		return err
	}
	patch, err := parseOptionSets(sets)
	if err != nil {
		return err
	}

	rt, err := loadRuntime(c.wiring, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	var opts types.GenOptions
	if patch.Empty() {
		opts = rt.project.LoadGenOptions(ctx)
	} else if opts, err = rt.project.UpdateGenOptions(ctx, patch); err != nil {
		return err
	}
	return writeGenOptions(c.wiring.stdout, resolvedFormat, opts)
}

func parseOptionSets(sets []string) (types.GenOptionsPatch, error) {
	var patch types.GenOptionsPatch
	for _, raw := range sets {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return patch, fmt.Errorf("invalid --set %q, expected key=value", raw)
		}
		var err error
		if patch, err = patch.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return patch, err
		}
	}
	return patch, nil
}

func writeGenOptions(w io.Writer, format string, opts types.GenOptions) error {
	switch format {
	case formatJSON:
		return writeJSON(w, opts)
	case formatTOML:
		data, err := toml.Marshal(opts)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	writer := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "KEY\tVALUE")
	for _, key := range types.GenOptionKeys() {
		value, _ := opts.Get(key)
		fmt.Fprintf(writer, "%s\t%s\n", key, orDash(value))
	}
	return writer.Flush()
}

type ProvidersCommand struct {
	wiring commandWiring
}

func NewProvidersCommand(wiring commandWiring) *ProvidersCommand {
	return &ProvidersCommand{wiring: wiring}
}

func (c *ProvidersCommand) Run(args []string) error {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	modelType := fs.String("type", "", "only list models of this type: text|image|video")
	refresh := fs.Bool("refresh", false, "bypass the provider cache")
	asJSON := fs.Bool("json", false, "print providers as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := loadRuntime(c.wiring, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	var providers []types.Provider
	if *refresh {
		providers, err = rt.client.RefreshProviders(ctx)
	} else {
		providers, err = rt.client.Providers(ctx)
	}
	if err != nil {
		return err
	}
	if *asJSON {
		// The catalog carries API keys; never echo them.
		for i := range providers {
			providers[i].APIKey = ""
		}
		return writeJSON(c.wiring.stdout, providers)
	}

	writer := tabwriter.NewWriter(c.wiring.stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tENABLED\tTYPE\tMODELS")
	for _, provider := range providers {
		kinds := []string{"text", "image", "video"}
		if *modelType != "" {
			kinds = []string{*modelType}
		}
		for _, kind := range kinds {
			models := provider.ModelsOfType(kind)
			if len(models) == 0 {
				continue
			}
			fmt.Fprintf(writer, "%s\t%s\t%t\t%s\t%s\n", provider.ID, orDash(provider.Name), provider.IsEnabled(), kind, strings.Join(models, ", "))
		}
	}
	return writer.Flush()
}

func resolveFormat(raw string, allowed ...string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range allowed {
		if format == candidate {
			return format, nil
		}
	}
	return "", errors.New("unsupported format " + raw + " (expected " + strings.Join(allowed, "|") + ")")
}
