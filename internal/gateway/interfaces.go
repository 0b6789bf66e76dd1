package gateway

import (
	"context"

	"accountsec/internal/models"
)

// IGateway performs the authenticated account requests. Every failure is an *apierrors.APIError:
// KindNetwork when no response arrived, a rejection kind when the server answered with an error.
type IGateway interface {
	GetProfile(ctx context.Context) (models.User, error)
	UpdateProfile(ctx context.Context, body models.ProfileUpdateBody) (models.User, error)
	ChangePassword(ctx context.Context, body models.PasswordChangeBody) (models.PasswordChangeResponse, error)
	DeleteAccount(ctx context.Context, body models.AccountDeleteBody) (models.MessageResponse, error)
	Logout(ctx context.Context) (models.MessageResponse, error)

	ListSessions(ctx context.Context) ([]models.Session, error)
	CloseSession(ctx context.Context, sessionID string) (models.MessageResponse, error)
	CloseAllSessions(ctx context.Context) (models.MessageResponse, error)

	TwoFactorStatus(ctx context.Context) (models.TwoFactorStatus, error)
	TwoFactorSetup(ctx context.Context) (models.TwoFactorSetup, error)
	TwoFactorVerify(ctx context.Context, body models.TwoFactorVerifyBody) (models.TwoFactorVerifyResponse, error)
	TwoFactorDisable(ctx context.Context, body models.TwoFactorDisableBody) (models.MessageResponse, error)
	// TwoFactorLoginVerify is the only unauthenticated call.
	TwoFactorLoginVerify(ctx context.Context, body models.TwoFactorLoginBody) (models.TwoFactorLoginResponse, error)
}
