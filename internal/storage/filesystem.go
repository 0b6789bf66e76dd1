package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"accountsec/internal/models"

	"go.uber.org/zap"
)

// FilesystemExport writes artifacts into a local directory.
type FilesystemExport struct {
	directory string
}

func NewFilesystemExport(config models.FilesystemExportConfiguration) (*FilesystemExport, error) {
	if err := os.MkdirAll(config.Directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &FilesystemExport{directory: config.Directory}, nil
}

func (f *FilesystemExport) path(name string) string {
	return filepath.Join(f.directory, filepath.Base(name))
}

func (f *FilesystemExport) Write(_ context.Context, name string, content []byte, _ string) (string, error) {
	target := f.path(name)
	if err := os.WriteFile(target, content, 0600); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	zap.L().Info("Export written to filesystem", zap.String("path", target))
	return target, nil
}

func (f *FilesystemExport) Read(_ context.Context, name string) ([]byte, error) {
	content, err := os.ReadFile(f.path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}
	return content, nil
}

var _ IExportStorage = (*FilesystemExport)(nil)
