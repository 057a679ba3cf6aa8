package main

import (
	"flag"
	"io"

	toml "github.com/pelletier/go-toml/v2"

	"storyboard/internal/config"
)

type ConfigCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.CoreConfig, error)
}

type configPaths struct {
	ConfigPath  string `toml:"config_path" json:"config_path"`
	StoragePath string `toml:"storage_path" json:"storage_path"`
	PushURL     string `toml:"push_url" json:"push_url"`
}

func NewConfigCommand(stdout, stderr io.Writer, loadConfig func() (config.CoreConfig, error)) *ConfigCommand {
	if loadConfig == nil {
		loadConfig = config.LoadCoreConfig
	}
	return &ConfigCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", formatTOML, "output format: toml|json")
	paths := fs.Bool("paths", false, "print resolved file locations instead of settings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resolvedFormat, err := resolveFormat(*format, formatTOML, formatJSON)
	if err != nil {
		return err
	}

	cfg := config.DefaultCoreConfig()
	if !*defaults {
		if cfg, err = c.loadConfig(); err != nil {
			return err
		}
	}
	if *paths {
		out, err := resolveConfigPaths(cfg)
		if err != nil {
			return err
		}
		return writeConfigOutput(c.stdout, resolvedFormat, out)
	}

	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	if resolvedFormat == formatTOML {
		_, err = c.stdout.Write(data)
		return err
	}
	// Round-trip through a map so JSON keys match the toml names.
	var generic map[string]any
	if err := toml.Unmarshal(data, &generic); err != nil {
		return err
	}
	return writeJSON(c.stdout, generic)
}

func resolveConfigPaths(cfg config.CoreConfig) (configPaths, error) {
	configPath, err := config.CoreConfigPath()
	if err != nil {
		return configPaths{}, err
	}
	storagePath, err := cfg.StoragePath()
	if err != nil {
		return configPaths{}, err
	}
	return configPaths{ConfigPath: configPath, StoragePath: storagePath, PushURL: cfg.PushURL()}, nil
}

func writeConfigOutput(w io.Writer, format string, value any) error {
	if format == formatJSON {
		return writeJSON(w, value)
	}
	data, err := toml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
