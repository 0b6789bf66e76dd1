package services

import (
	"context"
	"slices"
	"sync"

	apierrors "accountsec/internal/errors"
	"accountsec/internal/gateway"
	h "accountsec/internal/helpers"
	"accountsec/internal/models"

	"go.uber.org/zap"
)

// TwoFactorService owns the 2FA enrollment state machine:
//
//	idle -> setting_up -> awaiting_verification -> verified -> idle
//	idle -> disabling -> idle
//
// Mutating requests are numbered. A completion is applied only if it is still the latest mutation and
// the phase it was issued from is still current; otherwise it returns apierrors.ErrStaleResponse and
// leaves the state untouched. Status refreshes use their own numbering and are dropped when any
// mutation was issued after them.
type TwoFactorService struct {
	Gateway gateway.IGateway
	// Issuer labels the provisioning URI of the locally rendered QR fallback.
	Issuer string

	mu        sync.Mutex
	state     models.TwoFactorState
	mutations h.Sequencer
	statuses  h.Sequencer
}

func NewTwoFactorService(gw gateway.IGateway, issuer string) *TwoFactorService {
	return &TwoFactorService{
		Gateway: gw,
		Issuer:  issuer,
		state:   models.TwoFactorState{Phase: models.PhaseIdle},
	}
}

// State returns a copy of the current state.
func (s *TwoFactorService) State() models.TwoFactorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// BackupCodes returns the committed backup codes in server order.
func (s *TwoFactorService) BackupCodes() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.HasBackupCodes || len(s.state.BackupCodes) == 0 {
		return nil, apierrors.ErrNoBackupCodes
	}
	return slices.Clone(s.state.BackupCodes), nil
}

// GetStatus fetches {enabled, hasBackupCodes} and applies it. It never changes the phase.
func (s *TwoFactorService) GetStatus(ctx context.Context) (models.TwoFactorStatus, error) {
	s.mu.Lock()
	seq := s.statuses.Next()
	mark := s.mutations.Latest()
	s.mu.Unlock()

	status, err := s.Gateway.TwoFactorStatus(ctx)
	if err != nil {
		return status, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.statuses.IsLatest(seq) || s.mutations.Latest() != mark {
		return status, apierrors.ErrStaleResponse
	}

	s.state.Enabled = status.Enabled
	s.state.HasBackupCodes = status.HasBackupCodes
	if !status.HasBackupCodes {
		s.state.BackupCodes = nil
	}
	return status, nil
}

// issue numbers a new mutation, making every earlier one stale. Callers hold mu.
func (s *TwoFactorService) issue() uint64 {
	return s.mutations.Next()
}

// relevant reports whether the mutation seq issued from phase is still the one to apply. Callers hold mu.
func (s *TwoFactorService) relevant(seq uint64, phase models.TwoFactorPhase) bool {
	return s.mutations.IsLatest(seq) && s.state.Phase == phase
}

func (s *TwoFactorService) clearPending() {
	s.state.PendingSecret = ""
	s.state.PendingQRImage = ""
	s.state.PendingBackupCodes = nil
}

// StartSetup requests new enrollment material. account labels the QR fallback when the server sends
// no image.
func (s *TwoFactorService) StartSetup(ctx context.Context, account string) (models.TwoFactorSetup, error) {
	s.mu.Lock()
	if s.state.Phase != models.PhaseIdle || s.state.Enabled {
		s.mu.Unlock()
		return models.TwoFactorSetup{}, apierrors.ErrSetupNotAllowed
	}
	s.state.Phase = models.PhaseSettingUp
	seq := s.issue()
	s.mu.Unlock()

	setup, err := s.Gateway.TwoFactorSetup(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.relevant(seq, models.PhaseSettingUp) {
		return setup, apierrors.ErrStaleResponse
	}
	if err != nil {
		s.state.Phase = models.PhaseIdle
		s.clearPending()
		return setup, err
	}

	if setup.QRCode == "" {
		setup.QRCode = s.renderFallbackQR(account, setup.Secret)
	}

	s.state.Phase = models.PhaseAwaitingVerification
	s.state.PendingSecret = setup.Secret
	s.state.PendingQRImage = setup.QRCode
	s.state.PendingBackupCodes = slices.Clone(setup.BackupCodes)
	return setup, nil
}

func (s *TwoFactorService) renderFallbackQR(account string, secret string) string {
	uri, err := h.ProvisioningURI(s.Issuer, account, secret)
	if err != nil {
		zap.L().Warn("Failed to build provisioning URI", zap.Error(err))
		return ""
	}
	image, err := h.RenderQRCode(uri)
	if err != nil {
		zap.L().Warn("Failed to render QR code", zap.Error(err))
		return ""
	}
	return image
}

// Verify submits the 6-digit code of the pending enrollment. A rejected code keeps the pending
// material so the user can retry against the same secret.
func (s *TwoFactorService) Verify(ctx context.Context, code string) (models.TwoFactorVerifyResponse, error) {
	body := models.TwoFactorVerifyBody{Code: code}

	s.mu.Lock()
	if s.state.Phase != models.PhaseAwaitingVerification {
		s.mu.Unlock()
		return models.TwoFactorVerifyResponse{}, apierrors.ErrNoPendingSetup
	}
	if err := h.ValidateBody(body); err != nil {
		s.mu.Unlock()
		return models.TwoFactorVerifyResponse{}, err
	}
	seq := s.issue()
	s.mu.Unlock()

	resp, err := s.Gateway.TwoFactorVerify(ctx, body)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.relevant(seq, models.PhaseAwaitingVerification) {
		return resp, apierrors.ErrStaleResponse
	}
	if err != nil {
		return resp, err
	}

	codes := resp.BackupCodes
	if len(codes) == 0 {
		codes = s.state.PendingBackupCodes
	}
	resp.BackupCodes = slices.Clone(codes)

	s.state.Enabled = true
	s.state.HasBackupCodes = true
	s.state.BackupCodes = slices.Clone(codes)
	s.clearPending()
	s.state.Phase = models.PhaseVerified
	return resp, nil
}

// CancelSetup abandons the enrollment and discards the provisional material. An in-flight setup or
// verify request becomes stale.
func (s *TwoFactorService) CancelSetup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != models.PhaseSettingUp && s.state.Phase != models.PhaseAwaitingVerification {
		return apierrors.ErrNoPendingSetup
	}
	s.issue()
	s.clearPending()
	s.state.Phase = models.PhaseIdle
	return nil
}

// AcknowledgeBackupCodes ends the one-time presentation of the codes after verification.
func (s *TwoFactorService) AcknowledgeBackupCodes() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != models.PhaseVerified {
		return apierrors.ErrNothingToAcknowledge
	}
	s.state.Phase = models.PhaseIdle
	return nil
}

// StartDisable opens the disable form.
func (s *TwoFactorService) StartDisable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Enabled {
		return apierrors.ErrTwoFactorNotEnabled
	}
	if s.state.Phase != models.PhaseIdle {
		return apierrors.ErrTwoFactorBusy
	}
	s.state.Phase = models.PhaseDisabling
	return nil
}

// CancelDisable closes the disable form. An in-flight disable request becomes stale.
func (s *TwoFactorService) CancelDisable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != models.PhaseDisabling {
		return apierrors.ErrNotDisabling
	}
	s.issue()
	s.state.Phase = models.PhaseIdle
	return nil
}

// Disable turns 2FA off after password confirmation. Allowed from idle or from the disable form while
// 2FA is enabled. On failure the state, backup codes included, is left untouched.
func (s *TwoFactorService) Disable(ctx context.Context, password string) (models.MessageResponse, error) {
	body := models.TwoFactorDisableBody{Password: password}

	s.mu.Lock()
	if !s.state.Enabled {
		s.mu.Unlock()
		return models.MessageResponse{}, apierrors.ErrTwoFactorNotEnabled
	}
	phase := s.state.Phase
	if phase != models.PhaseIdle && phase != models.PhaseDisabling {
		s.mu.Unlock()
		return models.MessageResponse{}, apierrors.ErrTwoFactorBusy
	}
	if err := h.ValidateBody(body); err != nil {
		s.mu.Unlock()
		return models.MessageResponse{}, err
	}
	seq := s.issue()
	s.mu.Unlock()

	resp, err := s.Gateway.TwoFactorDisable(ctx, body)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.relevant(seq, phase) {
		return resp, apierrors.ErrStaleResponse
	}
	if err != nil {
		return resp, err
	}

	s.state.Enabled = false
	s.state.HasBackupCodes = false
	s.state.BackupCodes = nil
	s.state.Phase = models.PhaseIdle
	return resp, nil
}

// ForceDisabled applies a server-side disablement reported by another flow. Any enrollment or
// disable in progress is abandoned and its in-flight request becomes stale.
func (s *TwoFactorService) ForceDisabled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issue()
	s.state.Enabled = false
	s.state.HasBackupCodes = false
	s.state.BackupCodes = nil
	s.clearPending()
	s.state.Phase = models.PhaseIdle
}
