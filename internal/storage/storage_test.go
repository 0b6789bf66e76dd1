package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"accountsec/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemExport(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "exports")

	export, err := NewFilesystemExport(models.FilesystemExportConfiguration{Directory: dir})
	require.NoError(t, err)

	t.Run("write then read", func(t *testing.T) {
		content := []byte("A1B2C3D4\nE5F6A7B8")
		location, err := export.Write(ctx, "easyinjection_backup_codes.txt", content, "text/plain")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "easyinjection_backup_codes.txt"), location)

		info, err := os.Stat(location)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		got, err := export.Read(ctx, "easyinjection_backup_codes.txt")
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("names cannot escape the directory", func(t *testing.T) {
		location, err := export.Write(ctx, "../../escape.txt", []byte("x"), "text/plain")
		require.NoError(t, err)
		assert.Equal(t, dir, filepath.Dir(location))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := export.Read(ctx, "missing.txt")
		assert.Error(t, err)
	})
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "codes.txt", objectKey("", "codes.txt"))
	assert.Equal(t, "exports/codes.txt", objectKey("exports", "codes.txt"))
	assert.Equal(t, "exports/codes.txt", objectKey("exports/", "../codes.txt"))
}

func TestNewS3ExportRejectsInvalidEndpoint(t *testing.T) {
	_, err := NewS3Export(context.Background(), models.S3ExportConfiguration{
		BucketName: "exports",
		Endpoint:   "http://minio:9000/path",
		AccessKey:  "key",
		SecretKey:  "secret",
	})
	assert.Error(t, err)
}
