package services

import (
	"context"
	"strings"

	"accountsec/internal/configuration"
	apierrors "accountsec/internal/errors"
	"accountsec/internal/gateway"
	h "accountsec/internal/helpers"
	"accountsec/internal/models"

	"go.uber.org/zap"
)

// TwoFactorSync is the part of the 2FA controller a password change needs to resynchronise.
type TwoFactorSync interface {
	ForceDisabled()
	GetStatus(ctx context.Context) (models.TwoFactorStatus, error)
}

type PasswordService struct {
	Gateway   gateway.IGateway
	TwoFactor TwoFactorSync

	sequence h.Sequencer
}

func NewPasswordService(gw gateway.IGateway, twoFactor TwoFactorSync) *PasswordService {
	return &PasswordService{Gateway: gw, TwoFactor: twoFactor}
}

// ConfirmMatches reports whether the confirmation equals the new password.
func (s *PasswordService) ConfirmMatches(newPassword string, confirmation string) bool {
	return h.ConfirmMatches(newPassword, confirmation)
}

// ChangePassword validates and submits a password change. When the server reports that the change
// disabled 2FA, the 2FA state is cleared locally and then refetched.
func (s *PasswordService) ChangePassword(
	ctx context.Context,
	currentPassword string,
	newPassword string,
) (models.PasswordChangeResult, error) {
	body := models.PasswordChangeBody{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := h.ValidateBody(body); err != nil {
		return models.PasswordChangeResult{}, err
	}

	seq := s.sequence.Next()
	resp, err := s.Gateway.ChangePassword(ctx, body)
	if err != nil {
		return models.PasswordChangeResult{}, err
	}

	result := models.PasswordChangeResult{
		Message:                resp.Message,
		ForcedTwoFactorDisable: forcedTwoFactorDisable(resp),
	}
	if result.Message == "" {
		result.Message = configuration.MsgPasswordChanged
	}

	// The server already disabled 2FA, so this applies even when the response is superseded.
	if result.ForcedTwoFactorDisable && s.TwoFactor != nil {
		s.TwoFactor.ForceDisabled()
		if _, statusErr := s.TwoFactor.GetStatus(ctx); statusErr != nil &&
			apierrors.KindOf(statusErr) != apierrors.KindStale {
			zap.L().Warn("Failed to refresh 2FA status after password change", zap.Error(statusErr))
		}
	}

	if !s.sequence.IsLatest(seq) {
		return result, apierrors.ErrStaleResponse
	}
	return result, nil
}

// forcedTwoFactorDisable prefers the structured flag and falls back to the message marker.
func forcedTwoFactorDisable(resp models.PasswordChangeResponse) bool {
	if resp.TwoFactorDisabled != nil {
		return *resp.TwoFactorDisabled
	}
	return strings.Contains(resp.Message, configuration.TwoFactorDisabledMarker)
}
