package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"storyboard/internal/types"
)

const (
	defaultBaseURL          = "http://127.0.0.1:5000/api"
	defaultPushPath         = "/socket.io/"
	defaultRequestTimeout   = 300 * time.Second
	defaultPollInterval     = 30 * time.Second
	defaultReconnectMax     = 30 * time.Second
	defaultProviderCacheTTL = 60 * time.Second
	StorageBackendBbolt     = "bbolt"
	StorageBackendFile      = "file"
	defaultStorageBackend   = StorageBackendBbolt
)

type CoreConfig struct {
	Server        CoreServerConfig        `toml:"server"`
	Request       CoreRequestConfig       `toml:"request"`
	Push          CorePushConfig          `toml:"push"`
	Storage       CoreStorageConfig       `toml:"storage"`
	Logging       CoreLoggingConfig       `toml:"logging"`
	Notifications CoreNotificationsConfig `toml:"notifications"`
	Defaults      types.GenOptions        `toml:"defaults"`
	Keys          map[string]string       `toml:"keys,omitempty"`
}

type CoreServerConfig struct {
	BaseURL  string `toml:"base_url"`
	PushPath string `toml:"push_path"`
}

type CoreRequestConfig struct {
	TimeoutSeconds          int `toml:"timeout_seconds"`
	ProviderCacheTTLSeconds int `toml:"provider_cache_ttl_seconds"`
}

type CorePushConfig struct {
	Disabled            bool `toml:"disabled"`
	PollIntervalSeconds int  `toml:"poll_interval_seconds"`
	ReconnectMaxSeconds int  `toml:"reconnect_max_seconds"`
}

type CoreStorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

type CoreLoggingConfig struct {
	Level string `toml:"level"`
}

type CoreNotificationsConfig struct {
	Disabled            bool     `toml:"disabled"`
	Methods             []string `toml:"methods"`
	DedupeWindowSeconds *int     `toml:"dedupe_window_seconds,omitempty"`
}

func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		Server: CoreServerConfig{
			BaseURL:  defaultBaseURL,
			PushPath: defaultPushPath,
		},
		Request: CoreRequestConfig{
			TimeoutSeconds:          int(defaultRequestTimeout / time.Second),
			ProviderCacheTTLSeconds: int(defaultProviderCacheTTL / time.Second),
		},
		Push: CorePushConfig{
			PollIntervalSeconds: int(defaultPollInterval / time.Second),
			ReconnectMaxSeconds: int(defaultReconnectMax / time.Second),
		},
		Storage: CoreStorageConfig{
			Backend: defaultStorageBackend,
		},
		Logging: CoreLoggingConfig{
			Level: "info",
		},
		Defaults: types.DefaultGenOptions(),
	}
}

func LoadCoreConfig() (CoreConfig, error) {
	path, err := CoreConfigPath()
	if err != nil {
		return CoreConfig{}, err
	}
	return loadCoreConfigFromPath(path)
}

func (c CoreConfig) BaseURL() string {
	base := strings.TrimSpace(c.Server.BaseURL)
	if base == "" {
		return defaultBaseURL
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}

// PushURL derives the websocket endpoint from the base URL host. The push
// path is rooted at the host, not under the REST prefix.
func (c CoreConfig) PushURL() string {
	parsed, err := url.Parse(c.BaseURL())
	if err != nil {
		return ""
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	path := strings.TrimSpace(c.Server.PushPath)
	if path == "" {
		path = defaultPushPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	parsed.Path = path
	parsed.RawQuery = ""
	return parsed.String()
}

func (c CoreConfig) RequestTimeout() time.Duration {
	return secondsOr(c.Request.TimeoutSeconds, defaultRequestTimeout)
}

func (c CoreConfig) ProviderCacheTTL() time.Duration {
	return secondsOr(c.Request.ProviderCacheTTLSeconds, defaultProviderCacheTTL)
}

func (c CoreConfig) PushEnabled() bool {
	return !c.Push.Disabled
}

func (c CoreConfig) PollInterval() time.Duration {
	return secondsOr(c.Push.PollIntervalSeconds, defaultPollInterval)
}

func (c CoreConfig) ReconnectMax() time.Duration {
	return secondsOr(c.Push.ReconnectMaxSeconds, defaultReconnectMax)
}

func (c CoreConfig) StorageBackend() string {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case StorageBackendFile:
		return StorageBackendFile
	default:
		return StorageBackendBbolt
	}
}

// StoragePath resolves the configured storage path, falling back to the
// backend's default location.
func (c CoreConfig) StoragePath() (string, error) {
	if path := strings.TrimSpace(c.Storage.Path); path != "" {
		return resolveConfigPath(path)
	}
	if c.StorageBackend() == StorageBackendFile {
		return GenOptionsPath()
	}
	return PreferencesDBPath()
}

func (c CoreConfig) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c CoreConfig) NotificationSettings() types.NotificationSettings {
	settings := types.DefaultNotificationSettings()
	settings.Enabled = !c.Notifications.Disabled
	if methods := normalizedList(c.Notifications.Methods); len(methods) > 0 {
		settings.Methods = make([]types.NotificationMethod, 0, len(methods))
		for _, method := range methods {
			settings.Methods = append(settings.Methods, types.NotificationMethod(method))
		}
	}
	if c.Notifications.DedupeWindowSeconds != nil {
		settings.DedupeWindowSeconds = *c.Notifications.DedupeWindowSeconds
	}
	return types.NormalizeNotificationSettings(settings)
}

// DefaultGenOptions is the baseline persisted options are merged over.
func (c CoreConfig) DefaultGenOptions() types.GenOptions {
	return types.DefaultGenOptions().Merge(c.Defaults.Patch())
}

// Keymap applies the [keys] overrides to the default TUI bindings.
func (c CoreConfig) Keymap() (*types.Keymap, error) {
	return types.DefaultKeymap().WithOverrides(c.Keys)
}

func (c CoreConfig) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func loadCoreConfigFromPath(path string) (CoreConfig, error) {
	cfg := DefaultCoreConfig()
	if err := readTOML(path, &cfg); err != nil {
		return CoreConfig{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func normalizedList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
