package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
)

const tokenFileMode = 0o600

var _ Repo = (*FileRepo)(nil)

// FileRepo stores both keys in one JSON document so they are replaced in a single rename.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

func NewFileRepo(path string) (*FileRepo, error) {
	if path == "" {
		return nil, fmt.Errorf("[storage NewFileRepo] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[storage NewFileRepo] error creating token directory: %w", err)
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) Load(_ context.Context) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return Record{}, ErrNotFound
	} else if err != nil {
		return Record{}, fmt.Errorf("[FileRepo Load] %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("[FileRepo Load] corrupt token file: %w", err)
	}
	if !record.complete() {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (r *FileRepo) Save(_ context.Context, record Record) error {
	if err := validate(record); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("[FileRepo Save] %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// both keys land in one rename, so a reader never sees half a record
	if err := atomic.WriteFile(r.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("[FileRepo Save] %w", err)
	}
	if err := os.Chmod(r.path, tokenFileMode); err != nil {
		return fmt.Errorf("[FileRepo Save] %w", err)
	}
	return nil
}

func (r *FileRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[FileRepo Clear] %w", err)
	}
	return nil
}

func (r *FileRepo) Close() error {
	return nil
}
