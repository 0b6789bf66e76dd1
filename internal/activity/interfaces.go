package activity

import "accountsec/internal/models"

// IActivityLogger records the outcome of every account security attempt.
type IActivityLogger interface {
	Send(outcome models.Outcome) error
	// Search returns the newest outcomes matching every criterion; several values for one field are OR-ed.
	Search(criteria map[string][]string, limit int) ([]models.Outcome, error)
	CountByStatus(criteria map[string][]string) (map[models.OutcomeStatus]int, error)
	Close() error
}
