package models

type UserProfile struct {
	AvatarID string `json:"avatarId"`
}

// User is the account record returned by the profile endpoints.
type User struct {
	ID            string      `json:"_id"`
	Username      string      `json:"username"`
	Email         string      `json:"email"`
	RegisteredAt  string      `json:"fecha_registro"`
	LastLogin     string      `json:"ultimo_login"`
	AccountStatus string      `json:"estado_cuenta"`
	EmailVerified bool        `json:"email_verificado"`
	Profile       UserProfile `json:"perfil"`
}

type UserResponse struct {
	User User `json:"user"`
}

type ProfileUpdateBody struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	AvatarID string `json:"avatarId" validate:"omitempty,max=50"`
}

type PasswordChangeBody struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,password_strength"`
}

// PasswordChangeResponse carries an optional structured flag; older servers only signal the
// forced 2FA disable inside Message.
type PasswordChangeResponse struct {
	Message           string `json:"message"`
	TwoFactorDisabled *bool  `json:"twoFactorDisabled,omitempty"`
}

type PasswordChangeResult struct {
	Message                string `json:"message"`
	ForcedTwoFactorDisable bool   `json:"forced_two_factor_disable"`
}

type AccountDeleteBody struct {
	Password string `json:"password" validate:"required"`
}
