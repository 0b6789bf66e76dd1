package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FilesystemStore persists the token in a JSON document shared with other keys of the same file.
type FilesystemStore struct {
	mu   sync.Mutex
	path string
	key  string
}

func NewFilesystemStore(path string, key string) (*FilesystemStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}
	return &FilesystemStore{path: path, key: key}, nil
}

func (f *FilesystemStore) read() (map[string]string, error) {
	values := map[string]string{}

	content, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if len(content) == 0 {
		return values, nil
	}
	if err = json.Unmarshal(content, &values); err != nil {
		return nil, fmt.Errorf("failed to decode credentials file: %w", err)
	}
	return values, nil
}

func (f *FilesystemStore) write(values map[string]string) error {
	content, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp := f.path + ".tmp"
	if err = os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FilesystemStore) Get(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", err
	}
	return values[f.key], nil
}

func (f *FilesystemStore) Set(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		zap.L().Warn("Discarding unreadable credentials file", zap.String("path", f.path), zap.Error(err))
		values = map[string]string{}
	}

	if token == "" {
		delete(values, f.key)
	} else {
		values[f.key] = token
	}
	return f.write(values)
}

func (f *FilesystemStore) Clear(ctx context.Context) error {
	return f.Set(ctx, "")
}

func (f *FilesystemStore) Close() error { return nil }
