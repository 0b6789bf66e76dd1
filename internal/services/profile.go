package services

import (
	"context"
	"sync"

	"accountsec/internal/credentials"
	apierrors "accountsec/internal/errors"
	"accountsec/internal/gateway"
	h "accountsec/internal/helpers"
	"accountsec/internal/models"

	"go.uber.org/zap"
)

// ProfileService reads and edits the account record and deletes the account.
type ProfileService struct {
	Gateway gateway.IGateway
	Store   credentials.IStore

	mu       sync.Mutex
	profile  *models.User
	sequence h.Sequencer
}

func NewProfileService(gw gateway.IGateway, store credentials.IStore) *ProfileService {
	return &ProfileService{Gateway: gw, Store: store}
}

// Profile returns a copy of the cached profile, nil before the first load.
func (s *ProfileService) Profile() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	user := *s.profile
	return &user
}

func (s *ProfileService) apply(seq uint64, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sequence.IsLatest(seq) {
		return apierrors.ErrStaleResponse
	}
	s.profile = &user
	return nil
}

func (s *ProfileService) GetProfile(ctx context.Context) (models.User, error) {
	seq := s.sequence.Next()
	user, err := s.Gateway.GetProfile(ctx)
	if err != nil {
		return user, err
	}
	return user, s.apply(seq, user)
}

func (s *ProfileService) UpdateProfile(ctx context.Context, body models.ProfileUpdateBody) (models.User, error) {
	if err := h.ValidateBody(body); err != nil {
		return models.User{}, err
	}

	seq := s.sequence.Next()
	user, err := s.Gateway.UpdateProfile(ctx, body)
	if err != nil {
		return user, err
	}
	return user, s.apply(seq, user)
}

// DeleteAccount removes the account and clears the local credential on success.
func (s *ProfileService) DeleteAccount(ctx context.Context, password string) (models.MessageResponse, error) {
	body := models.AccountDeleteBody{Password: password}
	if err := h.ValidateBody(body); err != nil {
		return models.MessageResponse{}, err
	}

	s.sequence.Next()
	resp, err := s.Gateway.DeleteAccount(ctx, body)
	if err != nil {
		return resp, err
	}

	if clearErr := s.Store.Clear(context.WithoutCancel(ctx)); clearErr != nil {
		zap.L().Error("Failed to clear credential store", zap.Error(clearErr))
	}
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
	return resp, nil
}
