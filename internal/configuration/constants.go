package configuration

import "time"

const AppName = "easyinjection"

// CredentialTokenKey is the well-known key holding the session token. Absence means unauthenticated.
const CredentialTokenKey = "authToken"

// Gateway endpoints, relative to the configured base URL.
const (
	EndpointProfile         = "api/user/profile"
	EndpointChangePassword  = "api/user/change-password"
	EndpointDeleteAccount   = "api/user/account"
	EndpointLogout          = "api/user/logout"
	EndpointSessions        = "api/sessions"
	EndpointSession         = "api/sessions/{id}"
	EndpointTwoFactorStatus = "api/2fa/status"
	EndpointTwoFactorSetup  = "api/2fa/setup"
	EndpointTwoFactorVerify = "api/2fa/verify"
	EndpointTwoFactorOff    = "api/2fa/disable"
	EndpointTwoFactorLogin  = "api/2fa/verify-login"
)

const RequestIDHeader = "X-Request-ID"

// TwoFactorDisabledMarker is the substring the server embeds in a password change message when the
// change forced 2FA off. Only consulted when the response carries no structured flag.
const TwoFactorDisabledMarker = "2FA ha sido deshabilitado"

const (
	// NotificationTTL is how long a notification stays visible on its channel.
	NotificationTTL = 5 * time.Second
	// TOTPCodeLength is the number of digits of a TOTP code.
	TOTPCodeLength = 6
	// BackupCodeLength is the number of hex characters of a backup code.
	BackupCodeLength = 8
	// PasswordMinLength is the minimum length of a new password.
	PasswordMinLength = 8
)

// BackupCodesFilePattern is formatted with the product name.
const BackupCodesFilePattern = "%s_backup_codes.txt"

// Credential store types.
const (
	StoreMemory     = "memory"
	StoreFilesystem = "filesystem"
	StoreRedis      = "redis"
	StoreSQLite     = "sqlite"
	StorePostgres   = "postgres"
)

// Export storage types.
const (
	ExportFilesystem = "filesystem"
	ExportS3         = "s3"
)

const (
	TopicSnapshots     = "account_security.snapshots"
	TopicNotifications = "account_security.notifications"
)

var ConfigFileSearchPaths = []string{
	"./config.yaml",
	"templates/config.yaml",
}

var ArrayConfigFields = []string{
	"credentials.redis.hosts",
}
