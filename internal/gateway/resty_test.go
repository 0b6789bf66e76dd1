package gateway

import (
	"context"
	"net/http"
	"testing"

	"accountsec/internal/configuration"
	"accountsec/internal/credentials"
	apierrors "accountsec/internal/errors"
	"accountsec/internal/gateway/gatewaytest"
	"accountsec/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) (*RestyGateway, *gatewaytest.Server, *credentials.MemoryStore) {
	t.Helper()
	server := gatewaytest.NewServer(t)
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), server.Token))

	gw := NewRestyGateway(models.GatewayConfiguration{
		BaseURL:        server.URL + "/",
		TimeoutSeconds: 5,
	}, store)
	return gw, server, store
}

func TestRestyGatewayProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("get returns the wrapped user", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		user, err := gw.GetProfile(ctx)
		require.NoError(t, err)
		assert.Equal(t, server.User.Username, user.Username)
		assert.Equal(t, "avatar1", user.Profile.AvatarID)
	})

	t.Run("update sends the new fields", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		user, err := gw.UpdateProfile(ctx, models.ProfileUpdateBody{
			Username: "nuevo_nombre",
			Email:    "nuevo@ejemplo.com",
			AvatarID: "avatar3",
		})
		require.NoError(t, err)
		assert.Equal(t, "nuevo_nombre", user.Username)
		assert.Equal(t, "nuevo@ejemplo.com", server.User.Email)
	})

	t.Run("missing token is rejected by the server", func(t *testing.T) {
		gw, _, store := newTestGateway(t)
		require.NoError(t, store.Clear(ctx))

		_, err := gw.GetProfile(ctx)
		require.Error(t, err)
		assert.Equal(t, apierrors.KindServerRejection, apierrors.KindOf(err))
		assert.Equal(t, "No autorizado", apierrors.UserMessage(err, ""))
	})
}

func TestRestyGatewayPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("plain change", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		resp, err := gw.ChangePassword(ctx, models.PasswordChangeBody{
			CurrentPassword: "Secret123",
			NewPassword:     "Newpass12",
		})
		require.NoError(t, err)
		assert.Nil(t, resp.TwoFactorDisabled)
		assert.Equal(t, "Newpass12", server.Password)
	})

	t.Run("structured side effect flag", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		server.Enabled = true
		server.DisableOnPasswordChange = true
		server.StructuredFlag = true

		resp, err := gw.ChangePassword(ctx, models.PasswordChangeBody{
			CurrentPassword: "Secret123",
			NewPassword:     "Newpass12",
		})
		require.NoError(t, err)
		require.NotNil(t, resp.TwoFactorDisabled)
		assert.True(t, *resp.TwoFactorDisabled)
		assert.Contains(t, resp.Message, configuration.TwoFactorDisabledMarker)
	})

	t.Run("wrong current password surfaces the server message", func(t *testing.T) {
		gw, _, _ := newTestGateway(t)
		_, err := gw.ChangePassword(ctx, models.PasswordChangeBody{
			CurrentPassword: "wrong",
			NewPassword:     "Newpass12",
		})
		require.Error(t, err)
		assert.Equal(t, "La contraseña actual es incorrecta", apierrors.UserMessage(err, ""))
	})
}

func TestRestyGatewaySessions(t *testing.T) {
	ctx := context.Background()

	t.Run("list decodes sessions", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		server.Sessions = []models.Session{
			{ID: "s1", Token: server.Token, Device: "Laptop"},
			{ID: "s2", Token: "other", Device: "Phone"},
		}

		sessions, err := gw.ListSessions(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, "s2", sessions[1].ID)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		gw, _, _ := newTestGateway(t)
		sessions, err := gw.ListSessions(ctx)
		require.NoError(t, err)
		assert.NotNil(t, sessions)
		assert.Empty(t, sessions)
	})

	t.Run("close fills the path parameter", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		server.Sessions = []models.Session{{ID: "s1"}, {ID: "s2"}}

		_, err := gw.CloseSession(ctx, "s2")
		require.NoError(t, err)
		require.Len(t, server.Sessions, 1)
		assert.Equal(t, "s1", server.Sessions[0].ID)
	})

	t.Run("close unknown session", func(t *testing.T) {
		gw, _, _ := newTestGateway(t)
		_, err := gw.CloseSession(ctx, "missing")
		require.Error(t, err)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})

	t.Run("close all keeps the current session", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		server.Sessions = []models.Session{
			{ID: "s1", Token: server.Token},
			{ID: "s2", Token: "other"},
		}
		_, err := gw.CloseAllSessions(ctx)
		require.NoError(t, err)
		require.Len(t, server.Sessions, 1)
		assert.Equal(t, "s1", server.Sessions[0].ID)
	})
}

func TestRestyGatewayTwoFactor(t *testing.T) {
	ctx := context.Background()

	t.Run("setup then verify", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		server.AcceptedCode = "654321"

		setup, err := gw.TwoFactorSetup(ctx)
		require.NoError(t, err)
		assert.Equal(t, server.Secret, setup.Secret)
		assert.Len(t, setup.BackupCodes, 2)

		resp, err := gw.TwoFactorVerify(ctx, models.TwoFactorVerifyBody{Code: "654321"})
		require.NoError(t, err)
		assert.Equal(t, []string{"A1B2C3D4", "E5F6A7B8"}, resp.BackupCodes)

		status, err := gw.TwoFactorStatus(ctx)
		require.NoError(t, err)
		assert.True(t, status.Enabled)
		assert.True(t, status.HasBackupCodes)
	})

	t.Run("rejected code maps to invalid code", func(t *testing.T) {
		gw, _, _ := newTestGateway(t)
		_, err := gw.TwoFactorVerify(ctx, models.TwoFactorVerifyBody{Code: "000000"})
		require.Error(t, err)
		assert.Equal(t, apierrors.KindInvalidCode, apierrors.KindOf(err))
	})

	t.Run("wrong password on disable maps to invalid password", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		server.Enabled = true

		_, err := gw.TwoFactorDisable(ctx, models.TwoFactorDisableBody{Password: "nope"})
		require.Error(t, err)
		assert.Equal(t, apierrors.KindInvalidPassword, apierrors.KindOf(err))
		assert.True(t, server.Enabled)
	})

	t.Run("login verification is unauthenticated", func(t *testing.T) {
		gw, server, store := newTestGateway(t)
		require.NoError(t, store.Clear(ctx))
		server.Enabled = true
		server.ActiveCodes = []string{"A1B2C3D4"}

		resp, err := gw.TwoFactorLoginVerify(ctx, models.TwoFactorLoginBody{
			Email: server.User.Email,
			Code:  "A1B2C3D4",
		})
		require.NoError(t, err)
		assert.True(t, resp.Verified)
		assert.Equal(t, server.LoginToken, resp.Token)
		assert.Empty(t, server.ActiveCodes)
	})
}

func TestRestyGatewayFailureKinds(t *testing.T) {
	ctx := context.Background()

	t.Run("server error status", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		server.Fail(http.MethodGet, configuration.EndpointSessions, http.StatusInternalServerError)

		_, err := gw.ListSessions(ctx)
		require.Error(t, err)
		assert.Equal(t, apierrors.KindServerRejection, apierrors.KindOf(err))
	})

	t.Run("unreachable server", func(t *testing.T) {
		gw, server, _ := newTestGateway(t)
		server.Close()

		_, err := gw.TwoFactorStatus(ctx)
		require.Error(t, err)
		assert.Equal(t, apierrors.KindNetwork, apierrors.KindOf(err))
		assert.Equal(t, "fallback", apierrors.UserMessage(err, "fallback"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		gw, _, _ := newTestGateway(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := gw.GetProfile(cancelled)
		require.Error(t, err)
		assert.Equal(t, apierrors.KindNetwork, apierrors.KindOf(err))
	})
}
