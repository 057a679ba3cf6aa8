package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"storyboard/internal/config"
)

type liveBackendFile struct {
	BaseURL   string `json:"base_url"`
	ProjectID string `json:"project_id"`
}

// LiveBackend describes a running storyboard backend for integration tests.
type LiveBackend struct {
	BaseURL   string
	ProjectID string
}

// LoadLiveBackend returns the backend integration tests should talk to.
// Lookup order:
// 1) STORYBOARD_TEST_BACKEND_URL (+ STORYBOARD_TEST_PROJECT_ID)
// 2) ~/.storyboard/test-backend.json (base_url, project_id)
// ok is false when nothing is configured.
func LoadLiveBackend() (LiveBackend, bool) {
	if url := strings.TrimSpace(os.Getenv("STORYBOARD_TEST_BACKEND_URL")); url != "" {
		return LiveBackend{
			BaseURL:   url,
			ProjectID: strings.TrimSpace(os.Getenv("STORYBOARD_TEST_PROJECT_ID")),
		}, true
	}
	return readLiveBackendFile()
}

func readLiveBackendFile() (LiveBackend, bool) {
	dataDir, err := config.DataDir()
	if err != nil {
		return LiveBackend{}, false
	}
	data, err := os.ReadFile(filepath.Join(dataDir, "test-backend.json"))
	if err != nil {
		return LiveBackend{}, false
	}
	var parsed liveBackendFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return LiveBackend{}, false
	}
	backend := LiveBackend{
		BaseURL:   strings.TrimSpace(parsed.BaseURL),
		ProjectID: strings.TrimSpace(parsed.ProjectID),
	}
	return backend, backend.BaseURL != ""
}
