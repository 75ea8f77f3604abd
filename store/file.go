// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps each dataset as an indented JSON file in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file backing a dataset.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Save(_ context.Context, name string, v any) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(name, data)
}

// write replaces the file through a rename so readers never see a partial
// dataset.
func (s *FileStore) write(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write dataset %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write dataset %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write dataset %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("write dataset %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}
	return data, nil
}

func (s *FileStore) Load(_ context.Context, name string, v any) error {
	if err := validateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	data, err := s.read(name)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return decode(name, data, v)
}

func (s *FileStore) Append(_ context.Context, name string, v any) error {
	if err := validateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	data, err := appendJSON(existing, v)
	if err != nil {
		return fmt.Errorf("append to dataset %s: %w", name, err)
	}
	return s.write(name, data)
}

func (s *FileStore) Exists(_ context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *FileStore) Close() error {
	return nil
}
