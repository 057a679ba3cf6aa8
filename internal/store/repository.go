// Package store persists client-side preferences across runs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storyboard/internal/types"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

// ErrStorageCorrupt is returned when a stored record cannot be decoded.
// Load still returns the defaults alongside it.
var ErrStorageCorrupt = errors.New("stored preferences are corrupt")

type GenOptionsStore interface {
	Load(ctx context.Context) (types.GenOptions, error)
	Save(ctx context.Context, options types.GenOptions) error
}

// LastProjectStore remembers which project was open last.
type LastProjectStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, projectID string) error
}

type Repository interface {
	GenOptions() GenOptionsStore
	LastProject() LastProjectStore
	Backend() string
	Close() error
}

// RepositoryPaths locates each backend's storage. Only the field matching
// the chosen backend is read.
type RepositoryPaths struct {
	GenOptionsPath  string
	LastProjectPath string
	DBPath          string
}

// Open builds the repository for backend.
func Open(backend string, paths RepositoryPaths, defaults types.GenOptions) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		return NewBboltRepository(paths.DBPath, defaults)
	case RepositoryBackendFile:
		return NewFileRepository(paths, defaults), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

type fileRepository struct {
	genOptions  GenOptionsStore
	lastProject LastProjectStore
}

func NewFileRepository(paths RepositoryPaths, defaults types.GenOptions) Repository {
	return &fileRepository{
		genOptions:  NewFileGenOptionsStore(paths.GenOptionsPath, defaults),
		lastProject: NewFileLastProjectStore(paths.LastProjectPath),
	}
}

func (r *fileRepository) GenOptions() GenOptionsStore {
	return r.genOptions
}

func (r *fileRepository) LastProject() LastProjectStore {
	return r.lastProject
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

// decodeGenOptions merges a stored record over defaults key by key, so a
// record written before a key existed still yields every field.
func decodeGenOptions(raw []byte, defaults types.GenOptions) (types.GenOptions, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return defaults, nil
	}
	var patch types.GenOptionsPatch
	if err := json.Unmarshal(raw, &patch); err != nil {
		return defaults, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	return defaults.Merge(patch), nil
}
