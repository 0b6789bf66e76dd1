package services

import (
	"context"
	"sync"
	"testing"

	"accountsec/internal/configuration"
	apierrors "accountsec/internal/errors"
	"accountsec/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSync struct {
	mu          sync.Mutex
	forced      int
	statusCalls int
}

func (r *recordingSync) ForceDisabled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forced++
}

func (r *recordingSync) GetStatus(context.Context) (models.TwoFactorStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusCalls++
	return models.TwoFactorStatus{}, nil
}

func (r *recordingSync) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.forced, r.statusCalls
}

const disabledMessage = "Contraseña actualizada. Por seguridad, el " + configuration.TwoFactorDisabledMarker

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("weak password is blocked locally", func(t *testing.T) {
		gw := &MockGateway{}
		svc := NewPasswordService(gw, &recordingSync{})

		for _, password := range []string{"short1A", "alllowercase1", "NoDigitsHere"} {
			_, err := svc.ChangePassword(ctx, "Secret123", password)
			assert.Equal(t, apierrors.KindValidation, apierrors.KindOf(err), password)
		}
		_, err := svc.ChangePassword(ctx, "", "Secret456")
		assert.Equal(t, apierrors.KindValidation, apierrors.KindOf(err))
		assert.Equal(t, 0, gw.Calls("ChangePassword"))
	})

	t.Run("confirmation must match", func(t *testing.T) {
		svc := NewPasswordService(&MockGateway{}, nil)
		assert.True(t, svc.ConfirmMatches("Secret456", "Secret456"))
		assert.False(t, svc.ConfirmMatches("Secret456", "Secret457"))
	})

	t.Run("plain success keeps 2FA", func(t *testing.T) {
		tf := &recordingSync{}
		gw := &MockGateway{ChangePasswordFn: func(context.Context, models.PasswordChangeBody) (models.PasswordChangeResponse, error) {
			return models.PasswordChangeResponse{Message: "Contraseña actualizada"}, nil
		}}
		svc := NewPasswordService(gw, tf)

		result, err := svc.ChangePassword(ctx, "Secret123", "Secret456")
		require.NoError(t, err)
		assert.False(t, result.ForcedTwoFactorDisable)
		assert.Equal(t, "Contraseña actualizada", result.Message)
		forced, status := tf.counts()
		assert.Zero(t, forced)
		assert.Zero(t, status)
	})

	t.Run("empty message uses the default", func(t *testing.T) {
		svc := NewPasswordService(&MockGateway{}, &recordingSync{})
		result, err := svc.ChangePassword(ctx, "Secret123", "Secret456")
		require.NoError(t, err)
		assert.Equal(t, configuration.MsgPasswordChanged, result.Message)
	})

	t.Run("marker in the message clears 2FA and refetches the status", func(t *testing.T) {
		gw := newSetupGateway("654321")
		twoFactor := enrolled(t, gw)
		gw.ChangePasswordFn = func(context.Context, models.PasswordChangeBody) (models.PasswordChangeResponse, error) {
			return models.PasswordChangeResponse{Message: disabledMessage}, nil
		}
		gw.StatusFn = func(context.Context) (models.TwoFactorStatus, error) {
			return models.TwoFactorStatus{Enabled: false, HasBackupCodes: false}, nil
		}
		svc := NewPasswordService(gw, twoFactor)

		result, err := svc.ChangePassword(ctx, "Secret123", "Secret456")
		require.NoError(t, err)
		assert.True(t, result.ForcedTwoFactorDisable)

		state := twoFactor.State()
		assert.False(t, state.Enabled)
		assert.False(t, state.HasBackupCodes)
		assert.Empty(t, state.BackupCodes)
		assert.Equal(t, 1, gw.Calls("TwoFactorStatus"))
	})

	t.Run("structured flag overrides the marker", func(t *testing.T) {
		disabled := false
		tf := &recordingSync{}
		gw := &MockGateway{ChangePasswordFn: func(context.Context, models.PasswordChangeBody) (models.PasswordChangeResponse, error) {
			return models.PasswordChangeResponse{Message: disabledMessage, TwoFactorDisabled: &disabled}, nil
		}}

		result, err := NewPasswordService(gw, tf).ChangePassword(ctx, "Secret123", "Secret456")
		require.NoError(t, err)
		assert.False(t, result.ForcedTwoFactorDisable)
		forced, _ := tf.counts()
		assert.Zero(t, forced)
	})

	t.Run("structured flag alone is enough", func(t *testing.T) {
		disabled := true
		tf := &recordingSync{}
		gw := &MockGateway{ChangePasswordFn: func(context.Context, models.PasswordChangeBody) (models.PasswordChangeResponse, error) {
			return models.PasswordChangeResponse{Message: "ok", TwoFactorDisabled: &disabled}, nil
		}}

		result, err := NewPasswordService(gw, tf).ChangePassword(ctx, "Secret123", "Secret456")
		require.NoError(t, err)
		assert.True(t, result.ForcedTwoFactorDisable)
		forced, status := tf.counts()
		assert.Equal(t, 1, forced)
		assert.Equal(t, 1, status)
	})

	t.Run("rejection leaves 2FA alone", func(t *testing.T) {
		tf := &recordingSync{}
		gw := &MockGateway{ChangePasswordFn: func(context.Context, models.PasswordChangeBody) (models.PasswordChangeResponse, error) {
			return models.PasswordChangeResponse{},
				apierrors.NewServerRejection(apierrors.KindServerRejection, 400, "La contraseña actual es incorrecta")
		}}

		_, err := NewPasswordService(gw, tf).ChangePassword(ctx, "wrong", "Secret456")
		require.Error(t, err)
		assert.Equal(t, "La contraseña actual es incorrecta", apierrors.UserMessage(err, ""))
		forced, _ := tf.counts()
		assert.Zero(t, forced)
	})

	t.Run("superseded response still applies the 2FA side effect", func(t *testing.T) {
		g := newGate()
		calls := 0
		tf := &recordingSync{}
		gw := &MockGateway{ChangePasswordFn: func(context.Context, models.PasswordChangeBody) (models.PasswordChangeResponse, error) {
			calls++
			if calls == 1 {
				g.wait()
				return models.PasswordChangeResponse{Message: disabledMessage}, nil
			}
			return models.PasswordChangeResponse{Message: "Contraseña actualizada"}, nil
		}}
		svc := NewPasswordService(gw, tf)

		done := make(chan error, 1)
		go func() {
			_, err := svc.ChangePassword(ctx, "Secret123", "Secret456")
			done <- err
		}()
		<-g.entered
		_, err := svc.ChangePassword(ctx, "Secret456", "Secret789")
		require.NoError(t, err)
		g.open()

		assert.ErrorIs(t, <-done, apierrors.ErrStaleResponse)
		forced, status := tf.counts()
		assert.Equal(t, 1, forced)
		assert.Equal(t, 1, status)
	})
}
