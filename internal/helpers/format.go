package helpers

import (
	"fmt"
	"strings"
	"time"

	"accountsec/internal/configuration"
)

// FormatLastActivity renders a session's last activity relative to now.
func FormatLastActivity(last time.Time, now time.Time) string {
	if last.IsZero() {
		return "Desconocida"
	}

	elapsed := now.Sub(last)
	switch {
	case elapsed < time.Minute:
		return "Ahora mismo"
	case elapsed < time.Hour:
		return plural(int(elapsed/time.Minute), "minuto")
	case elapsed < 24*time.Hour:
		return plural(int(elapsed/time.Hour), "hora")
	case elapsed < 30*24*time.Hour:
		return plural(int(elapsed/(24*time.Hour)), "día")
	default:
		return last.Format("02/01/2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("Hace 1 %s", unit)
	}
	return fmt.Sprintf("Hace %d %ss", n, unit)
}

// BackupCodesFilename returns the export filename for a product.
func BackupCodesFilename(product string) string {
	if product == "" {
		product = configuration.AppName
	}
	return fmt.Sprintf(configuration.BackupCodesFilePattern, product)
}

// BackupCodesContent joins codes with newlines, preserving order, without a trailing newline.
func BackupCodesContent(codes []string) []byte {
	return []byte(strings.Join(codes, "\n"))
}
