package storage

import "context"

// IExportStorage persists user-downloadable artifacts such as the backup codes file.
type IExportStorage interface {
	// Write stores content under name and returns where it landed.
	Write(ctx context.Context, name string, content []byte, contentType string) (string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}
