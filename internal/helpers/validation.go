package helpers

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"accountsec/internal/configuration"
	apierrors "accountsec/internal/errors"
	"accountsec/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	totpCodePattern   = regexp.MustCompile(`^\d{6}$`)
	backupCodePattern = regexp.MustCompile(`^[A-F0-9]{8}$`)
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return v
}

// ValidateBody checks body against its validate tags and returns a validation APIError listing the
// failed fields, keyed by their JSON name.
func ValidateBody(body any) error {
	err := validate.Struct(body)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apierrors.NewValidationError(map[string]string{"body": err.Error()})
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}
	return apierrors.NewValidationError(fields)
}

// IsStrongPassword requires the minimum length plus a lowercase letter, an uppercase letter and a digit.
func IsStrongPassword(password string) bool {
	if len(password) < configuration.PasswordMinLength {
		return false
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// ConfirmMatches is the confirmation-field predicate of the password form.
func ConfirmMatches(a, b string) bool {
	return a == b
}

func IsTOTPCode(code string) bool {
	return totpCodePattern.MatchString(code)
}

func IsBackupCode(code string) bool {
	return backupCodePattern.MatchString(code)
}

// ValidateLoginCode applies the pattern of the selected mode only. The two patterns are mutually
// exclusive, so a TOTP code is rejected in backup mode and vice versa.
func ValidateLoginCode(mode models.LoginCodeMode, code string) error {
	var ok bool
	switch mode {
	case models.LoginModeBackup:
		ok = IsBackupCode(code)
	default:
		ok = IsTOTPCode(code)
	}
	if !ok {
		return apierrors.NewValidationError(map[string]string{"token": "pattern"})
	}
	return nil
}
