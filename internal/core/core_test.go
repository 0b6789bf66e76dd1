package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"accountsec/internal/configuration"
	"accountsec/internal/gateway/gatewaytest"
	"accountsec/internal/messaging"
	"accountsec/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zap.NewNop()))

	t.Run("installs the logger at the requested level", func(t *testing.T) {
		logger, err := NewLogger("warn")
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zap.InfoLevel))
		assert.True(t, logger.Core().Enabled(zap.WarnLevel))
		assert.Same(t, logger, zap.L())
	})

	t.Run("rejects an unknown level", func(t *testing.T) {
		_, err := NewLogger("verbose")
		require.Error(t, err)
	})
}

func TestNewCredentialStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for name, config := range map[string]models.CredentialsConfiguration{
		"memory": {Type: configuration.StoreMemory, Key: configuration.CredentialTokenKey},
		"filesystem": {
			Type:       configuration.StoreFilesystem,
			Key:        configuration.CredentialTokenKey,
			Filesystem: &models.FilesystemCredentialsConfiguration{Path: filepath.Join(dir, "credentials.json")},
		},
		"sqlite": {
			Type: configuration.StoreSQLite,
			Key:  configuration.CredentialTokenKey,
			SQL:  &models.SQLCredentialsConfiguration{DSN: filepath.Join(dir, "credentials.db")},
		},
	} {
		t.Run(name, func(t *testing.T) {
			store, err := NewCredentialStore(config)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			require.NoError(t, store.Set(ctx, "token-current"))
			token, err := store.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, "token-current", token)
		})
	}

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewCredentialStore(models.CredentialsConfiguration{Type: "vault"})
		require.Error(t, err)
	})
}

func TestNewExportStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("filesystem", func(t *testing.T) {
		export, err := NewExportStorage(ctx, models.ExportConfiguration{
			Type:       configuration.ExportFilesystem,
			Filesystem: &models.FilesystemExportConfiguration{Directory: t.TempDir()},
		})
		require.NoError(t, err)

		_, err = export.Write(ctx, "codes.txt", []byte("A1B2C3D4"), "text/plain")
		require.NoError(t, err)
		content, err := export.Read(ctx, "codes.txt")
		require.NoError(t, err)
		assert.Equal(t, "A1B2C3D4", string(content))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewExportStorage(ctx, models.ExportConfiguration{Type: "ftp"})
		require.Error(t, err)
	})
}

func TestEventsManager(t *testing.T) {
	t.Run("publisher and subscriber of a topic share the bus", func(t *testing.T) {
		events := NewEventsManager()
		t.Cleanup(func() { _ = events.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		messages := events.GetSubscriber(configuration.TopicNotifications).Subscribe(ctx)
		require.NotNil(t, messages)

		board := NewBoard(models.AppConfiguration{NotificationSeconds: 5}, events)
		t.Cleanup(board.Close)
		board.Success(models.ChannelProfile, configuration.MsgProfileUpdated)

		select {
		case msg := <-messages:
			notification, err := messaging.DecodeJSON[models.Notification](msg)
			require.NoError(t, err)
			assert.Equal(t, models.ChannelProfile, notification.Channel)
			assert.Equal(t, configuration.MsgProfileUpdated, notification.Message)
		case <-time.After(2 * time.Second):
			t.Fatal("notification not delivered")
		}
	})

	t.Run("unknown topic", func(t *testing.T) {
		events := NewEventsManager(configuration.TopicSnapshots)
		t.Cleanup(func() { _ = events.Close() })
		assert.Nil(t, events.GetPublisher(configuration.TopicNotifications))
		assert.NotNil(t, events.GetSubscriber(configuration.TopicSnapshots))
	})
}

func TestNewTracerProvider(t *testing.T) {
	t.Run("disabled tracing is a no-op", func(t *testing.T) {
		shutdown, err := NewTracerProvider(context.Background(), models.TracingConfiguration{}, "test")
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})
}

func testConfiguration(t *testing.T, baseURL string) models.Configuration {
	t.Helper()
	return models.Configuration{
		App: models.AppConfiguration{
			Product:             "easyinjection",
			LogLevel:            "info",
			NotificationSeconds: 5,
		},
		Gateway:     models.GatewayConfiguration{BaseURL: baseURL, TimeoutSeconds: 5},
		Credentials: models.CredentialsConfiguration{Type: configuration.StoreMemory, Key: configuration.CredentialTokenKey},
		Export: models.ExportConfiguration{
			Type:       configuration.ExportFilesystem,
			Filesystem: &models.FilesystemExportConfiguration{Directory: t.TempDir()},
		},
	}
}

func TestNewApp(t *testing.T) {
	ctx := context.Background()

	t.Run("assembles a working client", func(t *testing.T) {
		server := gatewaytest.NewServer(t)
		app, err := NewApp(ctx, testConfiguration(t, server.URL), nil, nil)
		require.NoError(t, err)
		t.Cleanup(func() { app.Close(ctx) })

		require.NoError(t, app.Store.Set(ctx, server.Token))
		snapshot := app.Account.Load(ctx)
		assert.True(t, snapshot.Authenticated)
		require.NotNil(t, snapshot.Profile)
		assert.Equal(t, server.User.Email, snapshot.Profile.Email)
	})

	t.Run("fails on a broken adapter", func(t *testing.T) {
		config := testConfiguration(t, "http://localhost:3000")
		config.Export = models.ExportConfiguration{Type: "ftp"}

		_, err := NewApp(ctx, config, nil, nil)
		require.Error(t, err)
	})
}
