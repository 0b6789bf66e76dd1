package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accountsec/internal/activity"
	"accountsec/internal/configuration"
	"accountsec/internal/credentials"
	"accountsec/internal/gateway"
	"accountsec/internal/models"
	"accountsec/internal/notifier"
	"accountsec/internal/services"
	"accountsec/internal/storage"

	"go.uber.org/zap"
)

// App is the assembled account security client.
type App struct {
	Config   models.Configuration
	Events   *EventsManager
	Store    credentials.IStore
	Gateway  gateway.IGateway
	Activity activity.IActivityLogger
	Export   storage.IExportStorage
	Board    *notifier.Board
	Account  *services.AccountSecurityService

	cancelSync      context.CancelFunc
	shutdownTracing ShutdownFunc
}

func NewActivityLogger(config models.ActivityConfiguration) (activity.IActivityLogger, error) {
	client, err := activity.NewBleveClient(config)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewApp wires every adapter from config. navigator and confirmer belong to the presentation layer.
func NewApp(
	ctx context.Context,
	config models.Configuration,
	navigator services.Navigator,
	confirmer services.Confirmer,
) (*App, error) {
	app := &App{Config: config}

	shutdown, err := NewTracerProvider(ctx, config.Tracing, config.App.Product)
	if err != nil {
		return nil, err
	}
	app.shutdownTracing = shutdown

	if app.Store, err = NewCredentialStore(config.Credentials); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("credential store: %w", err)
	}
	if app.Activity, err = NewActivityLogger(config.Activity); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("activity log: %w", err)
	}
	if app.Export, err = NewExportStorage(ctx, config.Export); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("export storage: %w", err)
	}

	app.Events = NewEventsManager()
	app.Board = NewBoard(config.App, app.Events)
	app.Gateway = gateway.NewRestyGateway(config.Gateway, app.Store)

	twoFactor := services.NewTwoFactorService(app.Gateway, config.App.Product)
	app.Account = services.NewAccountSecurityService(services.Dependencies{
		Profile:   services.NewProfileService(app.Gateway, app.Store),
		Sessions:  services.NewSessionService(app.Gateway, app.Store),
		Password:  services.NewPasswordService(app.Gateway, twoFactor),
		TwoFactor: twoFactor,
		Login:     services.NewLoginVerificationService(app.Gateway, app.Store),
		Store:     app.Store,
		Board:     app.Board,
		Activity:  app.Activity,
		Export:    app.Export,
		Snapshots: app.Events.GetPublisher(configuration.TopicSnapshots),
		Navigator: navigator,
		Confirmer: confirmer,
		Product:   config.App.Product,
	})

	zap.L().Info("Account security client ready",
		zap.String("gateway", config.Gateway.BaseURL),
		zap.String("credentials", config.Credentials.Type),
		zap.String("export", config.Export.Type))
	return app, nil
}

// StartSync starts the periodic resynchronisation when an interval is configured.
func (a *App) StartSync(ctx context.Context) {
	if a.Config.App.SyncIntervalSeconds <= 0 {
		return
	}
	syncCtx, cancel := context.WithCancel(ctx)
	a.cancelSync = cancel
	a.Account.StartSync(syncCtx, time.Duration(a.Config.App.SyncIntervalSeconds)*time.Second)
}

// Close releases every adapter that was opened. It is safe on a partially built App.
func (a *App) Close(ctx context.Context) {
	if a.cancelSync != nil {
		a.cancelSync()
	}
	if a.Board != nil {
		a.Board.Close()
	}

	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.Activity != nil {
		errs = append(errs, a.Activity.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.shutdownTracing != nil {
		errs = append(errs, a.shutdownTracing(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		zap.L().Warn("Failed to close the client cleanly", zap.Error(err))
	}
}
