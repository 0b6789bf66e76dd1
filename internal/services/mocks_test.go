package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"accountsec/internal/credentials"
	"accountsec/internal/gateway"
	"accountsec/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- Inline Mocks ---

// MockGateway answers with the configured functions. Unset functions succeed with a zero value.
type MockGateway struct {
	GetProfileFn       func(ctx context.Context) (models.User, error)
	UpdateProfileFn    func(ctx context.Context, body models.ProfileUpdateBody) (models.User, error)
	ChangePasswordFn   func(ctx context.Context, body models.PasswordChangeBody) (models.PasswordChangeResponse, error)
	DeleteAccountFn    func(ctx context.Context, body models.AccountDeleteBody) (models.MessageResponse, error)
	LogoutFn           func(ctx context.Context) (models.MessageResponse, error)
	ListSessionsFn     func(ctx context.Context) ([]models.Session, error)
	CloseSessionFn     func(ctx context.Context, sessionID string) (models.MessageResponse, error)
	CloseAllSessionsFn func(ctx context.Context) (models.MessageResponse, error)
	StatusFn           func(ctx context.Context) (models.TwoFactorStatus, error)
	SetupFn            func(ctx context.Context) (models.TwoFactorSetup, error)
	VerifyFn           func(ctx context.Context, body models.TwoFactorVerifyBody) (models.TwoFactorVerifyResponse, error)
	DisableFn          func(ctx context.Context, body models.TwoFactorDisableBody) (models.MessageResponse, error)
	LoginVerifyFn      func(ctx context.Context, body models.TwoFactorLoginBody) (models.TwoFactorLoginResponse, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockGateway) hit(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
}

// Calls returns how many times the named method was invoked.
func (m *MockGateway) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockGateway) GetProfile(ctx context.Context) (models.User, error) {
	m.hit("GetProfile")
	if m.GetProfileFn != nil {
		return m.GetProfileFn(ctx)
	}
	return models.User{}, nil
}

func (m *MockGateway) UpdateProfile(ctx context.Context, body models.ProfileUpdateBody) (models.User, error) {
	m.hit("UpdateProfile")
	if m.UpdateProfileFn != nil {
		return m.UpdateProfileFn(ctx, body)
	}
	return models.User{Username: body.Username, Email: body.Email}, nil
}

func (m *MockGateway) ChangePassword(
	ctx context.Context,
	body models.PasswordChangeBody,
) (models.PasswordChangeResponse, error) {
	m.hit("ChangePassword")
	if m.ChangePasswordFn != nil {
		return m.ChangePasswordFn(ctx, body)
	}
	return models.PasswordChangeResponse{}, nil
}

func (m *MockGateway) DeleteAccount(ctx context.Context, body models.AccountDeleteBody) (models.MessageResponse, error) {
	m.hit("DeleteAccount")
	if m.DeleteAccountFn != nil {
		return m.DeleteAccountFn(ctx, body)
	}
	return models.MessageResponse{}, nil
}

func (m *MockGateway) Logout(ctx context.Context) (models.MessageResponse, error) {
	m.hit("Logout")
	if m.LogoutFn != nil {
		return m.LogoutFn(ctx)
	}
	return models.MessageResponse{}, nil
}

func (m *MockGateway) ListSessions(ctx context.Context) ([]models.Session, error) {
	m.hit("ListSessions")
	if m.ListSessionsFn != nil {
		return m.ListSessionsFn(ctx)
	}
	return nil, nil
}

func (m *MockGateway) CloseSession(ctx context.Context, sessionID string) (models.MessageResponse, error) {
	m.hit("CloseSession")
	if m.CloseSessionFn != nil {
		return m.CloseSessionFn(ctx, sessionID)
	}
	return models.MessageResponse{}, nil
}

func (m *MockGateway) CloseAllSessions(ctx context.Context) (models.MessageResponse, error) {
	m.hit("CloseAllSessions")
	if m.CloseAllSessionsFn != nil {
		return m.CloseAllSessionsFn(ctx)
	}
	return models.MessageResponse{}, nil
}

func (m *MockGateway) TwoFactorStatus(ctx context.Context) (models.TwoFactorStatus, error) {
	m.hit("TwoFactorStatus")
	if m.StatusFn != nil {
		return m.StatusFn(ctx)
	}
	return models.TwoFactorStatus{}, nil
}

func (m *MockGateway) TwoFactorSetup(ctx context.Context) (models.TwoFactorSetup, error) {
	m.hit("TwoFactorSetup")
	if m.SetupFn != nil {
		return m.SetupFn(ctx)
	}
	return models.TwoFactorSetup{}, nil
}

func (m *MockGateway) TwoFactorVerify(
	ctx context.Context,
	body models.TwoFactorVerifyBody,
) (models.TwoFactorVerifyResponse, error) {
	m.hit("TwoFactorVerify")
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, body)
	}
	return models.TwoFactorVerifyResponse{}, nil
}

func (m *MockGateway) TwoFactorDisable(
	ctx context.Context,
	body models.TwoFactorDisableBody,
) (models.MessageResponse, error) {
	m.hit("TwoFactorDisable")
	if m.DisableFn != nil {
		return m.DisableFn(ctx, body)
	}
	return models.MessageResponse{}, nil
}

func (m *MockGateway) TwoFactorLoginVerify(
	ctx context.Context,
	body models.TwoFactorLoginBody,
) (models.TwoFactorLoginResponse, error) {
	m.hit("TwoFactorLoginVerify")
	if m.LoginVerifyFn != nil {
		return m.LoginVerifyFn(ctx, body)
	}
	return models.TwoFactorLoginResponse{}, nil
}

var _ gateway.IGateway = (*MockGateway)(nil)

// gate holds a mocked call until released, so a test can interleave other calls with it.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

// wait is called from the mocked method.
func (g *gate) wait() {
	close(g.entered)
	<-g.release
}

// open lets the held call return.
func (g *gate) open() {
	close(g.release)
}

const (
	testSecret  = "JBSWY3DPEHPK3PXP"
	testQRImage = "data:image/png;base64,iVBORw0KGgo="
)

var testBackupCodes = []string{"A1B2C3D4", "E5F6A7B8"}

func setupResponse() models.TwoFactorSetup {
	return models.TwoFactorSetup{Secret: testSecret, QRCode: testQRImage, BackupCodes: testBackupCodes}
}

// newSQLiteStore returns a database-backed credential store holding token. Unlike the memory store it
// honours context cancellation.
func newSQLiteStore(t *testing.T, token string) *credentials.SQLStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "credentials.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := credentials.NewSQLStore(db, "authToken")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Set(context.Background(), token))
	return store
}
