package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is an independent notification stream with its own auto-dismiss timer.
type Channel string

const (
	ChannelProfile       Channel = "profile"
	ChannelPassword      Channel = "password"
	ChannelDeleteAccount Channel = "delete_account"
	ChannelTwoFactor     Channel = "two_factor"
	ChannelSessions      Channel = "sessions"
	ChannelLogin         Channel = "login"
)

var Channels = []Channel{
	ChannelProfile,
	ChannelPassword,
	ChannelDeleteAccount,
	ChannelTwoFactor,
	ChannelSessions,
	ChannelLogin,
}

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Channel   Channel          `json:"channel"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

// Operation names a user-initiated action on the account security surface.
type Operation string

const (
	OpLoad             Operation = "load"
	OpUpdateProfile    Operation = "update_profile"
	OpDeleteAccount    Operation = "delete_account"
	OpChangePassword   Operation = "change_password"
	OpListSessions     Operation = "list_sessions"
	OpCloseSession     Operation = "close_session"
	OpCloseAllSessions Operation = "close_all_sessions"
	OpLogout           Operation = "logout"
	OpTwoFactorStatus  Operation = "two_factor_status"
	OpTwoFactorSetup   Operation = "two_factor_setup"
	OpTwoFactorVerify  Operation = "two_factor_verify"
	OpTwoFactorDisable Operation = "two_factor_disable"
	OpTwoFactorCancel  Operation = "two_factor_cancel"
	OpExportCodes      Operation = "export_backup_codes"
	OpLoginVerify      Operation = "login_verify"

	OpTwoFactorAcknowledge  Operation = "two_factor_acknowledge"
	OpTwoFactorStartDisable Operation = "two_factor_start_disable"
)

type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeError     OutcomeStatus = "error"
	OutcomeBlocked   OutcomeStatus = "blocked"
	OutcomeCancelled OutcomeStatus = "cancelled"
	OutcomeIgnored   OutcomeStatus = "ignored"
)

// Outcome is the discriminated result of one attempt of an Operation.
type Outcome struct {
	ID        uuid.UUID     `json:"id"`
	Operation Operation     `json:"operation"`
	Status    OutcomeStatus `json:"status"`
	Channel   Channel       `json:"channel"`
	Message   string        `json:"message"`
	Kind      string        `json:"kind,omitempty"`
	At        time.Time     `json:"at"`
}

// AccountSecuritySnapshot is the read-only composite handed to the presentation layer.
type AccountSecuritySnapshot struct {
	Authenticated    bool                     `json:"authenticated"`
	Profile          *User                    `json:"profile,omitempty"`
	Sessions         []Session                `json:"sessions"`
	CurrentSessionID string                   `json:"current_session_id,omitempty"`
	TokenExpiresAt   *time.Time               `json:"token_expires_at,omitempty"`
	TwoFactor        TwoFactorState           `json:"two_factor"`
	LastOutcome      *Outcome                 `json:"last_outcome,omitempty"`
	InFlight         map[Operation]bool       `json:"in_flight"`
	Notifications    map[Channel]Notification `json:"notifications"`
}
