package database

import (
	"database/sql"
	"fmt"

	"github.com/seasonaldecor/booking-backend/internal/models"
)

// AccountRepository is the read-only adapter over the account directory.
// Account management lives in another service; this core only resolves
// identity and the provider flag.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID fetches an account; returns (nil, nil) when absent
func (r *AccountRepository) GetByID(accountID int64) (*models.Account, error) {
	query := `
		SELECT id, email, first_name, last_name, is_provider, created_at
		FROM accounts
		WHERE id = $1`

	var a models.Account
	err := r.db.Get(&a, query, accountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}

	return &a, nil
}

// AccountExists reports whether the account id resolves
func (r *AccountRepository) AccountExists(accountID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`

	if err := r.db.Get(&exists, query, accountID); err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}

	return exists, nil
}

// IsProvider reports whether the account is flagged as an active provider
func (r *AccountRepository) IsProvider(accountID int64) (bool, error) {
	var isProvider bool
	query := `SELECT is_provider FROM accounts WHERE id = $1`

	err := r.db.Get(&isProvider, query, accountID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check provider flag: %w", err)
	}

	return isProvider, nil
}
