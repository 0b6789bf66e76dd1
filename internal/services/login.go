package services

import (
	"context"
	"fmt"
	"sync"

	"accountsec/internal/configuration"
	"accountsec/internal/credentials"
	apierrors "accountsec/internal/errors"
	"accountsec/internal/gateway"
	h "accountsec/internal/helpers"
	"accountsec/internal/models"

	"go.uber.org/zap"
)

// LoginVerificationService answers the 2FA challenge of a login. It is independent of the
// enrollment state machine.
//
// Attempts are not limited; they are counted so the count can be reported.
type LoginVerificationService struct {
	Gateway gateway.IGateway
	Store   credentials.IStore

	mu       sync.Mutex
	mode     models.LoginCodeMode
	attempts int
}

func NewLoginVerificationService(gw gateway.IGateway, store credentials.IStore) *LoginVerificationService {
	return &LoginVerificationService{Gateway: gw, Store: store, mode: models.LoginModeTOTP}
}

func (s *LoginVerificationService) Mode() models.LoginCodeMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ToggleMode switches between authenticator codes and backup codes and returns the new mode.
func (s *LoginVerificationService) ToggleMode() models.LoginCodeMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == models.LoginModeBackup {
		s.mode = models.LoginModeTOTP
	} else {
		s.mode = models.LoginModeBackup
	}
	return s.mode
}

// Attempts returns how many codes reached the server.
func (s *LoginVerificationService) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Verify checks code against the pattern of the current mode, then submits it. On success the
// returned token is stored before Verify returns.
func (s *LoginVerificationService) Verify(
	ctx context.Context,
	email string,
	code string,
) (models.TwoFactorLoginResponse, error) {
	body := models.TwoFactorLoginBody{Email: email, Code: code}
	if err := h.ValidateBody(body); err != nil {
		return models.TwoFactorLoginResponse{}, err
	}
	if err := h.ValidateLoginCode(s.Mode(), code); err != nil {
		return models.TwoFactorLoginResponse{}, err
	}

	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	resp, err := s.Gateway.TwoFactorLoginVerify(ctx, body)
	if err != nil {
		zap.L().Info("Login verification rejected", zap.Int("attempt", attempt), zap.Error(err))
		return resp, err
	}
	if !resp.Verified || resp.Token == "" {
		message := resp.Message
		if message == "" {
			message = configuration.MsgLoginInvalidCode
		}
		return resp, apierrors.NewServerRejection(apierrors.KindInvalidCode, 0, message)
	}

	if err = s.Store.Set(ctx, resp.Token); err != nil {
		return resp, fmt.Errorf("failed to store session token: %w", err)
	}
	return resp, nil
}
