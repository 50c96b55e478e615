package repository

import (
	"context"

	"github.com/noah-isme/unigrading-api/pkg/storage"
)

// FileStore adapts local file storage to the KVStore contract, one file per key.
type FileStore struct {
	files *storage.LocalStorage
}

// NewFileStore wraps a local storage directory.
func NewFileStore(files *storage.LocalStorage) *FileStore {
	return &FileStore{files: files}
}

// Get reads a key's file.
func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	data, ok, err := s.files.Read(key)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(data), true, nil
}

// Set writes a key's file atomically.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	return s.files.Write(key, []byte(value))
}

// Delete removes a key's file.
func (s *FileStore) Delete(_ context.Context, key string) error {
	return s.files.Delete(key)
}

// Keys lists stored keys.
func (s *FileStore) Keys(_ context.Context) ([]string, error) {
	return s.files.Keys()
}
