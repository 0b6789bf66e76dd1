package apierrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the controllers. Callers branch on Kind, never on Message.
type Kind string

const (
	// KindNetwork is a transport failure: no response was received.
	KindNetwork Kind = "network"
	// KindValidation is a client-side constraint violation. The gateway was never called.
	KindValidation Kind = "validation"
	// KindServerRejection is an error payload returned by the gateway.
	KindServerRejection Kind = "server_rejection"
	KindInvalidCode     Kind = "invalid_code"
	KindInvalidPassword Kind = "invalid_password"
	// KindInvalidState is an operation attempted from a phase that does not allow it.
	KindInvalidState Kind = "invalid_state"
	// KindStale is a response superseded by a newer request or by a phase change.
	KindStale Kind = "stale"
)

type APIError struct {
	Kind       Kind
	Code       string
	Message    string
	StatusCode int
	Fields     map[string]string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches on Kind and Code so sentinel errors can be compared with errors.Is.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func NewAPIError(kind Kind, code string) *APIError {
	return &APIError{Kind: kind, Code: code}
}

func NewNetworkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, Code: "NETWORK_ERROR", Message: err.Error(), Err: err}
}

func NewValidationError(fields map[string]string) *APIError {
	return &APIError{Kind: KindValidation, Code: "VALIDATION_FAILED", Fields: fields}
}

// NewServerRejection builds a rejection carrying the server's user-facing message.
func NewServerRejection(kind Kind, statusCode int, message string) *APIError {
	return &APIError{Kind: kind, Code: "SERVER_REJECTION", StatusCode: statusCode, Message: message}
}

// KindOf returns the Kind of err, or an empty Kind for foreign errors.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// UserMessage returns the server message carried by err, or fallback when there is none.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind != KindNetwork && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

var (
	ErrSetupNotAllowed      = NewAPIError(KindInvalidState, "TWO_FACTOR_SETUP_NOT_ALLOWED")
	ErrNoPendingSetup       = NewAPIError(KindInvalidState, "TWO_FACTOR_NO_PENDING_SETUP")
	ErrTwoFactorBusy        = NewAPIError(KindInvalidState, "TWO_FACTOR_FLOW_IN_PROGRESS")
	ErrNotDisabling         = NewAPIError(KindInvalidState, "TWO_FACTOR_NOT_DISABLING")
	ErrTwoFactorNotEnabled  = NewAPIError(KindInvalidState, "TWO_FACTOR_NOT_ENABLED")
	ErrNothingToAcknowledge = NewAPIError(KindInvalidState, "TWO_FACTOR_NOT_VERIFIED")
	ErrNoBackupCodes        = NewAPIError(KindInvalidState, "NO_BACKUP_CODES")
	ErrStaleResponse        = NewAPIError(KindStale, "STALE_RESPONSE")
	ErrNotConfirmed         = NewAPIError(KindValidation, "NOT_CONFIRMED")
	ErrNotAuthenticated     = NewAPIError(KindValidation, "NOT_AUTHENTICATED")
	ErrMissingToken         = NewAPIError(KindServerRejection, "MISSING_TOKEN")
)

// ErrPasswordMismatch is returned when the new password and its confirmation differ.
var ErrPasswordMismatch = &APIError{
	Kind:   KindValidation,
	Code:   "PASSWORD_MISMATCH",
	Fields: map[string]string{"confirmNewPassword": "eqfield"},
}
