package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-training/oauth2-implicit/pkg/core"
)

// FileStore implements the core.TokenStore interface on a JSON object file.
// Like browser local storage, the file may hold unrelated entries; only keys
// under core.StoragePrefix belong to the store.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore backed by path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFileStorePath returns ~/.oauth2-implicit/tokens.json, falling back to a relative path.
func DefaultFileStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Join(".oauth2-implicit", "tokens.json")
	}
	return filepath.Join(home, ".oauth2-implicit", "tokens.json")
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Set stores a value, overwriting any prior entry.
func (f *FileStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return core.ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	entries[prefixed(key)] = value
	return f.save(entries)
}

// Get retrieves a value.
// It returns core.ErrNotFound if the key does not exist.
func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", core.ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := entries[prefixed(key)]
	if !ok {
		return "", core.ErrNotFound
	}
	return value, nil
}

// Remove deletes a key. Removing a missing key is not an error.
func (f *FileStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return core.ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := entries[prefixed(key)]; !ok {
		return nil
	}
	delete(entries, prefixed(key))
	return f.save(entries)
}

// Keys returns every key under the storage prefix, without the prefix, in sorted order.
func (f *FileStore) Keys(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		if key, ok := unprefixed(k); ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Clear removes every key under the storage prefix and leaves unrelated entries alone.
func (f *FileStore) Clear(ctx context.Context) error {
	return ClearKeys(ctx, f)
}

func (f *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	entries := make(map[string]string)
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token file: %w", err)
	}
	return entries, nil
}

func (f *FileStore) save(entries map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token file: %w", err)
	}
	payload = append(payload, '\n')

	// The temp name is unique per write; the file may be shared between processes.
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}
