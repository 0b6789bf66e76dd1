package models

// TwoFactorPhase is the position of the enrollment state machine.
type TwoFactorPhase string

const (
	PhaseIdle                 TwoFactorPhase = "idle"
	PhaseSettingUp            TwoFactorPhase = "setting_up"
	PhaseAwaitingVerification TwoFactorPhase = "awaiting_verification"
	PhaseVerified             TwoFactorPhase = "verified"
	PhaseDisabling            TwoFactorPhase = "disabling"
)

// TwoFactorState is owned by the 2FA controller; consumers receive copies.
type TwoFactorState struct {
	Enabled        bool   `json:"enabled"`
	HasBackupCodes bool   `json:"has_backup_codes"`
	PendingSecret  string `json:"pending_secret,omitempty"`
	PendingQRImage string `json:"pending_qr_image,omitempty"`
	// PendingBackupCodes are issued with the setup material and only become BackupCodes once verified.
	PendingBackupCodes []string       `json:"pending_backup_codes,omitempty"`
	BackupCodes        []string       `json:"backup_codes"`
	Phase              TwoFactorPhase `json:"phase"`
}

// Clone returns a deep copy of the state.
func (s TwoFactorState) Clone() TwoFactorState {
	c := s
	c.PendingBackupCodes = append([]string(nil), s.PendingBackupCodes...)
	c.BackupCodes = append([]string(nil), s.BackupCodes...)
	return c
}

type TwoFactorStatus struct {
	Enabled        bool `json:"twoFactorEnabled"`
	HasBackupCodes bool `json:"hasBackupCodes"`
}

type TwoFactorSetup struct {
	Secret      string   `json:"secret"`
	QRCode      string   `json:"qrCode"`
	BackupCodes []string `json:"backupCodes"`
}

type TwoFactorVerifyBody struct {
	Code string `json:"token" validate:"required,len=6,numeric"`
}

type TwoFactorVerifyResponse struct {
	Message     string   `json:"message"`
	BackupCodes []string `json:"backupCodes"`
}

type TwoFactorDisableBody struct {
	Password string `json:"password" validate:"required"`
}

// LoginCodeMode selects which code format the login challenge accepts.
type LoginCodeMode string

const (
	LoginModeTOTP   LoginCodeMode = "totp"
	LoginModeBackup LoginCodeMode = "backup"
)

type TwoFactorLoginBody struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Code  string `json:"token" validate:"required"`
}

type TwoFactorLoginResponse struct {
	Verified bool   `json:"verified"`
	Token    string `json:"token"`
	Message  string `json:"message,omitempty"`
}
