package services

import (
	"context"
	"sync"
	"time"

	"accountsec/internal/activity"
	"accountsec/internal/configuration"
	"accountsec/internal/credentials"
	apierrors "accountsec/internal/errors"
	h "accountsec/internal/helpers"
	"accountsec/internal/messaging"
	"accountsec/internal/models"
	"accountsec/internal/notifier"
	"accountsec/internal/storage"
	"accountsec/internal/workers"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Navigator moves the presentation layer between the unauthenticated and authenticated areas.
type Navigator interface {
	ToLogin()
	ToDashboard()
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

const backupCodesContentType = "text/plain; charset=utf-8"

// AccountSecurityService composes the account controllers into one surface. Every operation marks
// itself in flight, reports exactly one notification on its channel (none for blocked, cancelled or
// stale attempts), records an outcome and publishes a fresh snapshot.
type AccountSecurityService struct {
	Profile   *ProfileService
	Sessions  *SessionService
	Password  *PasswordService
	TwoFactor *TwoFactorService
	Login     *LoginVerificationService

	Store     credentials.IStore
	Board     *notifier.Board
	Activity  activity.IActivityLogger
	Export    storage.IExportStorage
	Snapshots messaging.IPublisher
	Navigator Navigator
	Confirmer Confirmer
	Product   string

	mu          sync.Mutex
	inFlight    map[models.Operation]int
	lastOutcome *models.Outcome
}

// Dependencies are the collaborators of NewAccountSecurityService. Activity and Snapshots may be nil.
type Dependencies struct {
	Profile   *ProfileService
	Sessions  *SessionService
	Password  *PasswordService
	TwoFactor *TwoFactorService
	Login     *LoginVerificationService
	Store     credentials.IStore
	Board     *notifier.Board
	Activity  activity.IActivityLogger
	Export    storage.IExportStorage
	Snapshots messaging.IPublisher
	Navigator Navigator
	Confirmer Confirmer
	Product   string
}

func NewAccountSecurityService(deps Dependencies) *AccountSecurityService {
	return &AccountSecurityService{
		Profile:   deps.Profile,
		Sessions:  deps.Sessions,
		Password:  deps.Password,
		TwoFactor: deps.TwoFactor,
		Login:     deps.Login,
		Store:     deps.Store,
		Board:     deps.Board,
		Activity:  deps.Activity,
		Export:    deps.Export,
		Snapshots: deps.Snapshots,
		Navigator: deps.Navigator,
		Confirmer: deps.Confirmer,
		Product:   deps.Product,
		inFlight:  make(map[models.Operation]int),
	}
}

// report describes how an operation's result is announced.
type report[T any] struct {
	operation models.Operation
	channel   models.Channel
	// quiet suppresses the success notification.
	quiet     bool
	success   func(T) string
	failure   func(error) string
	onSuccess func(T)
	// degraded reports a server failure behind a locally completed result. Such a result is recorded as
	// an error without a notification and onSuccess still runs.
	degraded  func(T) error
}

// failureMessage builds "<prefix><server message or fallback>".
func failureMessage(prefix string, fallback string) func(error) string {
	return func(err error) string {
		return prefix + apierrors.UserMessage(err, fallback)
	}
}

func fixedMessage(message string) func(error) string {
	return func(error) string { return message }
}

// run dispatches fn through the three completion hooks. The in-flight flag is cleared and the snapshot
// published in OnComplete, after any navigation done by onSuccess.
func run[T any](
	ctx context.Context,
	s *AccountSecurityService,
	fn func(context.Context) (T, error),
	r report[T],
) (T, error) {
	s.begin(r.operation)

	return h.Run(ctx, fn, h.Hooks[T]{
		OnSuccess: func(value T) {
			if r.degraded != nil {
				if err := r.degraded(value); err != nil {
					s.record(r.operation, models.OutcomeError, r.channel, "", err)
					if r.onSuccess != nil {
						r.onSuccess(value)
					}
					return
				}
			}

			message := ""
			if r.success != nil {
				message = r.success(value)
			}
			if !r.quiet {
				s.Board.Success(r.channel, message)
			}
			s.record(r.operation, models.OutcomeSuccess, r.channel, message, nil)
			if r.onSuccess != nil {
				r.onSuccess(value)
			}
		},
		OnError: func(err error) {
			s.fail(r.operation, r.channel, err, r.failure)
		},
		OnComplete: func() {
			s.end(r.operation)
			s.publish(context.WithoutCancel(ctx))
		},
	})
}

func (s *AccountSecurityService) begin(op models.Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight[op]++
}

func (s *AccountSecurityService) end(op models.Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[op] <= 1 {
		delete(s.inFlight, op)
		return
	}
	s.inFlight[op]--
}

// fail classifies err. Validation, invalid-state and stale failures are recorded without a
// notification; everything else is announced on channel.
func (s *AccountSecurityService) fail(
	op models.Operation,
	channel models.Channel,
	err error,
	message func(error) string,
) {
	switch apierrors.KindOf(err) {
	case apierrors.KindValidation, apierrors.KindInvalidState:
		s.record(op, models.OutcomeBlocked, channel, "", err)
	case apierrors.KindStale:
		s.record(op, models.OutcomeIgnored, channel, "", err)
	default:
		text := apierrors.UserMessage(err, configuration.MsgUnknownError)
		if message != nil {
			text = message(err)
		}
		if channel != "" {
			s.Board.Error(channel, text)
		}
		s.record(op, models.OutcomeError, channel, text, err)
	}
}

func (s *AccountSecurityService) record(
	op models.Operation,
	status models.OutcomeStatus,
	channel models.Channel,
	message string,
	err error,
) {
	outcome := models.Outcome{
		ID:        uuid.New(),
		Operation: op,
		Status:    status,
		Channel:   channel,
		Message:   message,
		Kind:      string(apierrors.KindOf(err)),
		At:        time.Now(),
	}

	s.mu.Lock()
	s.lastOutcome = &outcome
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.String("status", string(status)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	zap.L().Debug("Account security outcome", fields...)

	if s.Activity != nil {
		if sendErr := s.Activity.Send(outcome); sendErr != nil {
			zap.L().Warn("Failed to record outcome", zap.Error(sendErr))
		}
	}
}

// Snapshot assembles the current read-only view.
func (s *AccountSecurityService) Snapshot(ctx context.Context) models.AccountSecuritySnapshot {
	token, err := s.Store.Get(ctx)
	if err != nil {
		zap.L().Warn("Failed to read credential store", zap.Error(err))
	}

	snapshot := models.AccountSecuritySnapshot{
		Authenticated:    token != "" && !h.TokenExpired(token, time.Now()),
		Profile:          s.Profile.Profile(),
		Sessions:         s.Sessions.Sessions(),
		CurrentSessionID: s.Sessions.CurrentSessionID(ctx),
		TwoFactor:        s.TwoFactor.State(),
		Notifications:    s.Board.All(),
	}
	if expiry, ok := h.TokenExpiry(token); ok {
		snapshot.TokenExpiresAt = &expiry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastOutcome != nil {
		outcome := *s.lastOutcome
		snapshot.LastOutcome = &outcome
	}
	snapshot.InFlight = make(map[models.Operation]bool, len(s.inFlight))
	for op := range s.inFlight {
		snapshot.InFlight[op] = true
	}
	return snapshot
}

// InFlight reports whether op has a request outstanding.
func (s *AccountSecurityService) InFlight(op models.Operation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[op] > 0
}

func (s *AccountSecurityService) publish(ctx context.Context) {
	if s.Snapshots == nil {
		return
	}
	if err := messaging.PublishJSON(s.Snapshots, s.Snapshot(ctx)); err != nil {
		zap.L().Warn("Failed to publish snapshot", zap.Error(err))
	}
}

// local records a client-side transition that involves no request.
func (s *AccountSecurityService) local(op models.Operation, channel models.Channel, transition func() error) error {
	if err := transition(); err != nil {
		s.record(op, models.OutcomeBlocked, channel, "", err)
		return err
	}
	s.record(op, models.OutcomeSuccess, channel, "", nil)
	s.publish(context.Background())
	return nil
}

func (s *AccountSecurityService) confirm(
	ctx context.Context,
	op models.Operation,
	channel models.Channel,
	prompt string,
) bool {
	if s.Confirmer != nil && s.Confirmer.Confirm(ctx, prompt) {
		return true
	}
	s.record(op, models.OutcomeCancelled, channel, "", nil)
	return false
}

func (s *AccountSecurityService) toLogin() {
	if s.Navigator != nil {
		s.Navigator.ToLogin()
	}
}

// refreshStatus resynchronises the 2FA flags after a mutation. A stale refresh is expected and ignored.
func (s *AccountSecurityService) refreshStatus(ctx context.Context) {
	if _, err := s.TwoFactor.GetStatus(ctx); err != nil && apierrors.KindOf(err) != apierrors.KindStale {
		zap.L().Warn("Failed to refresh 2FA status", zap.Error(err))
	}
}

// Load fetches the profile, the sessions and the 2FA status concurrently. Only a session listing
// failure is announced; the other two are recorded and logged.
func (s *AccountSecurityService) Load(ctx context.Context) models.AccountSecuritySnapshot {
	profile := h.Go(ctx, func(ctx context.Context) (models.User, error) {
		return run(ctx, s, s.Profile.GetProfile, report[models.User]{
			operation: models.OpLoad,
			quiet:     true,
		})
	}, h.Hooks[models.User]{})
	sessions := h.Go(ctx, s.ListSessions, h.Hooks[[]models.Session]{})
	status := h.Go(ctx, s.TwoFactorStatus, h.Hooks[models.TwoFactorStatus]{})

	<-profile
	<-sessions
	<-status
	return s.Snapshot(ctx)
}

func (s *AccountSecurityService) ListSessions(ctx context.Context) ([]models.Session, error) {
	return run(ctx, s, s.Sessions.List, report[[]models.Session]{
		operation: models.OpListSessions,
		channel:   models.ChannelSessions,
		quiet:     true,
		failure:   fixedMessage(configuration.MsgSessionsLoadError),
	})
}

func (s *AccountSecurityService) TwoFactorStatus(ctx context.Context) (models.TwoFactorStatus, error) {
	s.begin(models.OpTwoFactorStatus)
	return h.Run(ctx, s.TwoFactor.GetStatus, h.Hooks[models.TwoFactorStatus]{
		OnSuccess: func(models.TwoFactorStatus) {
			s.record(models.OpTwoFactorStatus, models.OutcomeSuccess, models.ChannelTwoFactor, "", nil)
		},
		OnError: func(err error) {
			zap.L().Warn("Failed to load 2FA status", zap.Error(err))
			s.fail(models.OpTwoFactorStatus, "", err, nil)
		},
		OnComplete: func() {
			s.end(models.OpTwoFactorStatus)
			s.publish(context.WithoutCancel(ctx))
		},
	})
}

func (s *AccountSecurityService) UpdateProfile(ctx context.Context, body models.ProfileUpdateBody) (models.User, error) {
	return run(ctx, s, func(ctx context.Context) (models.User, error) {
		return s.Profile.UpdateProfile(ctx, body)
	}, report[models.User]{
		operation: models.OpUpdateProfile,
		channel:   models.ChannelProfile,
		success:   func(models.User) string { return configuration.MsgProfileUpdated },
		failure:   failureMessage(configuration.MsgProfileUpdateError, configuration.MsgUnknownError),
	})
}

// DeleteAccount asks for confirmation, deletes the account and returns to the login page.
func (s *AccountSecurityService) DeleteAccount(ctx context.Context, password string) (models.MessageResponse, error) {
	if !s.confirm(ctx, models.OpDeleteAccount, models.ChannelDeleteAccount, configuration.ConfirmDeleteAccount) {
		return models.MessageResponse{}, apierrors.ErrNotConfirmed
	}

	return run(ctx, s, func(ctx context.Context) (models.MessageResponse, error) {
		return s.Profile.DeleteAccount(ctx, password)
	}, report[models.MessageResponse]{
		operation: models.OpDeleteAccount,
		channel:   models.ChannelDeleteAccount,
		success:   func(models.MessageResponse) string { return configuration.MsgAccountDeleted },
		failure:   failureMessage(configuration.MsgAccountDeleteError, configuration.MsgWrongPassword),
		onSuccess: func(models.MessageResponse) { s.toLogin() },
	})
}

// ChangePassword checks the confirmation, then changes the password.
func (s *AccountSecurityService) ChangePassword(
	ctx context.Context,
	currentPassword string,
	newPassword string,
	confirmation string,
) (models.PasswordChangeResult, error) {
	if !s.Password.ConfirmMatches(newPassword, confirmation) {
		s.record(models.OpChangePassword, models.OutcomeBlocked, models.ChannelPassword, "",
			apierrors.ErrPasswordMismatch)
		return models.PasswordChangeResult{}, apierrors.ErrPasswordMismatch
	}

	return run(ctx, s, func(ctx context.Context) (models.PasswordChangeResult, error) {
		return s.Password.ChangePassword(ctx, currentPassword, newPassword)
	}, report[models.PasswordChangeResult]{
		operation: models.OpChangePassword,
		channel:   models.ChannelPassword,
		success:   func(r models.PasswordChangeResult) string { return r.Message },
		failure:   failureMessage(configuration.MsgPasswordChangeError, configuration.MsgUnknownError),
	})
}

func (s *AccountSecurityService) sessionReport(op models.Operation, failurePrefix string) report[models.SessionCloseResult] {
	return report[models.SessionCloseResult]{
		operation: op,
		channel:   models.ChannelSessions,
		success:   func(r models.SessionCloseResult) string { return r.Message },
		failure:   failureMessage(failurePrefix, configuration.MsgUnknownError),
		onSuccess: func(r models.SessionCloseResult) {
			if r.LoggedOut {
				s.toLogin()
			}
		},
		degraded: func(r models.SessionCloseResult) error {
			if r.ServerClosed {
				return nil
			}
			return r.ServerErr
		},
	}
}

// CloseSession asks for confirmation and closes one session. Closing the current session logs out.
func (s *AccountSecurityService) CloseSession(ctx context.Context, sessionID string) (models.SessionCloseResult, error) {
	prompt := configuration.ConfirmCloseSession
	if s.Sessions.IsCurrent(ctx, sessionID) {
		prompt = configuration.ConfirmCloseCurrentSession
	}
	if !s.confirm(ctx, models.OpCloseSession, models.ChannelSessions, prompt) {
		return models.SessionCloseResult{}, apierrors.ErrNotConfirmed
	}

	return run(ctx, s, func(ctx context.Context) (models.SessionCloseResult, error) {
		return s.Sessions.Close(ctx, sessionID)
	}, s.sessionReport(models.OpCloseSession, configuration.MsgSessionCloseError))
}

// CloseAllSessions asks for confirmation and closes every other session, or every session including
// this one when keepCurrent is false.
func (s *AccountSecurityService) CloseAllSessions(ctx context.Context, keepCurrent bool) (models.SessionCloseResult, error) {
	prompt := configuration.ConfirmCloseAllSessions
	if keepCurrent {
		prompt = configuration.ConfirmCloseOtherSessions
	}
	if !s.confirm(ctx, models.OpCloseAllSessions, models.ChannelSessions, prompt) {
		return models.SessionCloseResult{}, apierrors.ErrNotConfirmed
	}

	return run(ctx, s, func(ctx context.Context) (models.SessionCloseResult, error) {
		return s.Sessions.CloseAll(ctx, keepCurrent)
	}, s.sessionReport(models.OpCloseAllSessions, configuration.MsgSessionsCloseErr))
}

func (s *AccountSecurityService) Logout(ctx context.Context) (models.SessionCloseResult, error) {
	return run(ctx, s, s.Sessions.Logout, s.sessionReport(models.OpLogout, configuration.MsgSessionCloseError))
}

// StartTwoFactorSetup requests enrollment material for the loaded account.
func (s *AccountSecurityService) StartTwoFactorSetup(ctx context.Context) (models.TwoFactorSetup, error) {
	account := ""
	if profile := s.Profile.Profile(); profile != nil {
		account = profile.Email
	}

	return run(ctx, s, func(ctx context.Context) (models.TwoFactorSetup, error) {
		return s.TwoFactor.StartSetup(ctx, account)
	}, report[models.TwoFactorSetup]{
		operation: models.OpTwoFactorSetup,
		channel:   models.ChannelTwoFactor,
		success:   func(models.TwoFactorSetup) string { return configuration.MsgTwoFactorSetupReady },
		failure:   failureMessage(configuration.MsgTwoFactorSetupError, configuration.MsgUnknownError),
	})
}

// VerifyTwoFactor submits the enrollment code. On success the backup codes are ready for a single
// presentation and the status is refetched.
func (s *AccountSecurityService) VerifyTwoFactor(ctx context.Context, code string) (models.TwoFactorVerifyResponse, error) {
	return run(ctx, s, func(ctx context.Context) (models.TwoFactorVerifyResponse, error) {
		return s.TwoFactor.Verify(ctx, code)
	}, report[models.TwoFactorVerifyResponse]{
		operation: models.OpTwoFactorVerify,
		channel:   models.ChannelTwoFactor,
		success: func(r models.TwoFactorVerifyResponse) string {
			if r.Message == "" {
				return configuration.MsgTwoFactorEnabled
			}
			return r.Message
		},
		failure:   failureMessage(configuration.MsgTwoFactorVerifyError, configuration.MsgInvalidCode),
		onSuccess: func(models.TwoFactorVerifyResponse) { s.refreshStatus(ctx) },
	})
}

func (s *AccountSecurityService) CancelTwoFactorSetup() error {
	return s.local(models.OpTwoFactorCancel, models.ChannelTwoFactor, s.TwoFactor.CancelSetup)
}

func (s *AccountSecurityService) AcknowledgeBackupCodes() error {
	return s.local(models.OpTwoFactorAcknowledge, models.ChannelTwoFactor, s.TwoFactor.AcknowledgeBackupCodes)
}

func (s *AccountSecurityService) StartDisableTwoFactor() error {
	return s.local(models.OpTwoFactorStartDisable, models.ChannelTwoFactor, s.TwoFactor.StartDisable)
}

func (s *AccountSecurityService) CancelDisableTwoFactor() error {
	return s.local(models.OpTwoFactorCancel, models.ChannelTwoFactor, s.TwoFactor.CancelDisable)
}

// DisableTwoFactor turns 2FA off and refetches the status.
func (s *AccountSecurityService) DisableTwoFactor(ctx context.Context, password string) (models.MessageResponse, error) {
	return run(ctx, s, func(ctx context.Context) (models.MessageResponse, error) {
		return s.TwoFactor.Disable(ctx, password)
	}, report[models.MessageResponse]{
		operation: models.OpTwoFactorDisable,
		channel:   models.ChannelTwoFactor,
		success: func(r models.MessageResponse) string {
			if r.Message == "" {
				return configuration.MsgTwoFactorDisabled
			}
			return r.Message
		},
		failure:   failureMessage(configuration.MsgTwoFactorDisableError, configuration.MsgWrongPassword),
		onSuccess: func(models.MessageResponse) { s.refreshStatus(ctx) },
	})
}

// ExportBackupCodes writes the committed backup codes as newline-joined text and returns their location.
// Only a failed write is announced.
func (s *AccountSecurityService) ExportBackupCodes(ctx context.Context) (string, error) {
	return run(ctx, s, func(ctx context.Context) (string, error) {
		codes, err := s.TwoFactor.BackupCodes()
		if err != nil {
			return "", err
		}
		return s.Export.Write(ctx, h.BackupCodesFilename(s.Product), h.BackupCodesContent(codes),
			backupCodesContentType)
	}, report[string]{
		operation: models.OpExportCodes,
		channel:   models.ChannelTwoFactor,
		quiet:     true,
		success:   func(location string) string { return location },
		failure:   failureMessage(configuration.MsgExportError, configuration.MsgUnknownError),
	})
}

// ToggleLoginMode switches the login challenge between authenticator and backup codes.
func (s *AccountSecurityService) ToggleLoginMode() models.LoginCodeMode {
	s.Board.Dismiss(models.ChannelLogin)
	return s.Login.ToggleMode()
}

// VerifyLogin answers the login 2FA challenge. The token is stored before navigating to the dashboard.
func (s *AccountSecurityService) VerifyLogin(
	ctx context.Context,
	email string,
	code string,
) (models.TwoFactorLoginResponse, error) {
	return run(ctx, s, func(ctx context.Context) (models.TwoFactorLoginResponse, error) {
		return s.Login.Verify(ctx, email, code)
	}, report[models.TwoFactorLoginResponse]{
		operation: models.OpLoginVerify,
		channel:   models.ChannelLogin,
		quiet:     true,
		failure: func(err error) string {
			return apierrors.UserMessage(err, configuration.MsgLoginInvalidCode)
		},
		onSuccess: func(models.TwoFactorLoginResponse) {
			if s.Navigator != nil {
				s.Navigator.ToDashboard()
			}
		},
	})
}

// History returns the newest recorded outcomes, restricted to operations when any are given, and the
// number of outcomes per status over the same selection.
func (s *AccountSecurityService) History(
	limit int,
	operations ...models.Operation,
) ([]models.Outcome, map[models.OutcomeStatus]int, error) {
	if s.Activity == nil {
		return nil, nil, nil
	}

	criteria := map[string][]string{}
	for _, op := range operations {
		criteria["operation"] = append(criteria["operation"], string(op))
	}

	outcomes, err := s.Activity.Search(criteria, limit)
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.Activity.CountByStatus(criteria)
	if err != nil {
		return nil, nil, err
	}
	return outcomes, counts, nil
}

// SyncTasks re-lists the sessions and refetches the 2FA status. Skipped while unauthenticated or
// once the stored token has expired.
func (s *AccountSecurityService) SyncTasks() []workers.Task {
	authenticated := func(ctx context.Context) bool {
		token, err := s.Store.Get(ctx)
		return err == nil && token != "" && !h.TokenExpired(token, time.Now())
	}

	return []workers.Task{
		{Name: "sessions", Fn: func(ctx context.Context) (int, error) {
			if !authenticated(ctx) {
				return 0, nil
			}
			sessions, err := s.Sessions.List(ctx)
			if err != nil {
				if apierrors.KindOf(err) == apierrors.KindStale {
					return 0, nil
				}
				return 0, err
			}
			s.publish(ctx)
			return len(sessions), nil
		}},
		{Name: "two_factor", Fn: func(ctx context.Context) (int, error) {
			if !authenticated(ctx) {
				return 0, nil
			}
			_, err := s.TwoFactor.GetStatus(ctx)
			if err != nil {
				if apierrors.KindOf(err) == apierrors.KindStale {
					return 0, nil
				}
				return 0, err
			}
			s.publish(ctx)
			return 1, nil
		}},
	}
}

// StartSync runs SyncTasks every interval until ctx is done. A non-positive interval disables it.
func (s *AccountSecurityService) StartSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go workers.StartPeriodicWorker(ctx, "account_sync", interval, s.SyncTasks())
}
