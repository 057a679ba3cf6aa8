package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"storyboard/internal/types"
)

type FileGenOptionsStore struct {
	path     string
	defaults types.GenOptions
	mu       sync.Mutex
}

func NewFileGenOptionsStore(path string, defaults types.GenOptions) *FileGenOptionsStore {
	return &FileGenOptionsStore{path: path, defaults: defaults}
}

func (s *FileGenOptionsStore) Load(ctx context.Context) (types.GenOptions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := readFile(s.path)
	if err != nil {
		return s.defaults, err
	}
	return decodeGenOptions(raw, s.defaults)
}

func (s *FileGenOptionsStore) Save(ctx context.Context, options types.GenOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path, options)
}

type lastProjectRecord struct {
	ProjectID string `json:"project_id"`
}

type FileLastProjectStore struct {
	path string
	mu   sync.Mutex
}

func NewFileLastProjectStore(path string) *FileLastProjectStore {
	return &FileLastProjectStore{path: path}
}

func (s *FileLastProjectStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := readFile(s.path)
	if err != nil || len(raw) == 0 {
		return "", err
	}
	var record lastProjectRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return "", ErrStorageCorrupt
	}
	return strings.TrimSpace(record.ProjectID), nil
}

func (s *FileLastProjectStore) Save(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path, lastProjectRecord{ProjectID: strings.TrimSpace(projectID)})
}
