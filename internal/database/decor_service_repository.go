package database

import (
	"database/sql"
	"fmt"

	"github.com/seasonaldecor/booking-backend/internal/models"
)

// DecorServiceRepository is the read-only adapter over the decor service
// catalog. Catalog CRUD is out of scope; bookings only need the service
// and its owning account.
type DecorServiceRepository struct {
	db DB
}

// NewDecorServiceRepository creates a new decor service repository
func NewDecorServiceRepository(db DB) *DecorServiceRepository {
	return &DecorServiceRepository{db: db}
}

// GetByID fetches a decor service; returns (nil, nil) when absent
func (r *DecorServiceRepository) GetByID(serviceID int64) (*models.DecorService, error) {
	query := `
		SELECT id, account_id, style, description, base_price, created_at
		FROM decor_services
		WHERE id = $1`

	var s models.DecorService
	err := r.db.Get(&s, query, serviceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch decor service: %w", err)
	}

	return &s, nil
}

// GetOwner resolves the account that owns a decor service. The found flag
// is false when the service does not exist.
func (r *DecorServiceRepository) GetOwner(serviceID int64) (int64, bool, error) {
	var accountID int64
	query := `SELECT account_id FROM decor_services WHERE id = $1`

	err := r.db.Get(&accountID, query, serviceID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch service owner: %w", err)
	}

	return accountID, true, nil
}
