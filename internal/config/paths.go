package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".storyboard"

// DataDir returns the base data directory for the storyboard client.
func DataDir() (string, error) {
	if dir := os.Getenv("STORYBOARD_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// CoreConfigPath returns the path to the client configuration file.
func CoreConfigPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.toml"), nil
}

// PreferencesDBPath returns the path to the bbolt preferences database.
func PreferencesDBPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "preferences.db"), nil
}

// GenOptionsPath returns the path used by the file storage backend.
func GenOptionsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "gen_options.json"), nil
}

// LogPath returns the file the terminal UI logs to.
func LogPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "ui.log"), nil
}

// LastProjectPath returns where the file backend remembers the open project.
func LastProjectPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "last_project.json"), nil
}
