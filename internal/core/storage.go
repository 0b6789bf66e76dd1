package core

import (
	"context"
	"fmt"

	"accountsec/internal/configuration"
	"accountsec/internal/models"
	"accountsec/internal/storage"
)

func NewExportStorage(ctx context.Context, config models.ExportConfiguration) (storage.IExportStorage, error) {
	switch config.Type {
	case configuration.ExportFilesystem:
		return storage.NewFilesystemExport(*config.Filesystem)
	case configuration.ExportS3:
		return storage.NewS3Export(ctx, *config.S3)
	default:
		return nil, fmt.Errorf("unknown export storage type %q", config.Type)
	}
}
