package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"storyboard/internal/types"
)

var (
	bucketPreferences = []byte("preferences")
	keyGenOptions     = []byte("media_gen_options")
	keyLastProject    = []byte("last_project_id")
)

type bboltRepository struct {
	db          *bolt.DB
	genOptions  GenOptionsStore
	lastProject LastProjectStore
}

func NewBboltRepository(path string, defaults types.GenOptions) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:          db,
		genOptions:  &bboltGenOptionsStore{db: db, defaults: defaults},
		lastProject: &bboltLastProjectStore{db: db},
	}, nil
}

func (r *bboltRepository) GenOptions() GenOptionsStore {
	return r.genOptions
}

func (r *bboltRepository) LastProject() LastProjectStore {
	return r.lastProject
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPreferences)
		return err
	})
}

func getPreference(db *bolt.DB, key []byte) ([]byte, error) {
	var out []byte
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPreferences)
		if b == nil {
			return nil
		}
		if raw := b.Get(key); len(raw) > 0 {
			// bbolt values are only valid inside the transaction.
			out = append([]byte(nil), raw...)
		}
		return nil
	})
	return out, err
}

func putPreference(db *bolt.DB, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPreferences)
		if b == nil {
			return errors.New("preferences bucket missing")
		}
		return b.Put(key, raw)
	})
}

type bboltGenOptionsStore struct {
	db       *bolt.DB
	defaults types.GenOptions
}

func (s *bboltGenOptionsStore) Load(ctx context.Context) (types.GenOptions, error) {
	raw, err := getPreference(s.db, keyGenOptions)
	if err != nil {
		return s.defaults, err
	}
	return decodeGenOptions(raw, s.defaults)
}

func (s *bboltGenOptionsStore) Save(ctx context.Context, options types.GenOptions) error {
	return putPreference(s.db, keyGenOptions, options)
}

type bboltLastProjectStore struct {
	db *bolt.DB
}

func (s *bboltLastProjectStore) Load(ctx context.Context) (string, error) {
	raw, err := getPreference(s.db, keyLastProject)
	if err != nil || len(raw) == 0 {
		return "", err
	}
	var record lastProjectRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return "", ErrStorageCorrupt
	}
	return strings.TrimSpace(record.ProjectID), nil
}

func (s *bboltLastProjectStore) Save(ctx context.Context, projectID string) error {
	return putPreference(s.db, keyLastProject, lastProjectRecord{ProjectID: strings.TrimSpace(projectID)})
}
