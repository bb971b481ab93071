package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/seasonaldecor/booking-backend/internal/models"
)

// PaymentPhaseRepository handles payment phase database operations.
// The unique (booking_id, phase) constraint plus ON CONFLICT upserts
// guarantee at most one row per phase type without a query-then-write race.
type PaymentPhaseRepository struct {
	db DB
}

// NewPaymentPhaseRepository creates a new payment phase repository
func NewPaymentPhaseRepository(db DB) *PaymentPhaseRepository {
	return &PaymentPhaseRepository{db: db}
}

const phaseColumns = `id, booking_id, phase, scheduled_amount, order_code, description, payment_date, created_at, updated_at`

// Upsert inserts the phase row or, when one already exists for
// (booking_id, phase), overwrites its scheduled amount, order code and
// description in place. payment_date is never reset by an upsert.
func (r *PaymentPhaseRepository) Upsert(phase *models.PaymentPhase) (*models.PaymentPhase, error) {
	now := time.Now()
	query := `
		INSERT INTO payment_phases (
			booking_id, phase, scheduled_amount, order_code, description,
			created_at, updated_at
		) VALUES ($1, $2::payment_phase_type, $3, $4, $5, $6, $6)
		ON CONFLICT (booking_id, phase) DO UPDATE SET
			scheduled_amount = EXCLUDED.scheduled_amount,
			order_code = EXCLUDED.order_code,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + phaseColumns

	var stored models.PaymentPhase
	err := r.db.Get(
		&stored,
		query,
		phase.BookingID,
		phase.Phase,
		phase.ScheduledAmount,
		phase.OrderCode,
		phase.Description,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert payment phase: %w", err)
	}

	return &stored, nil
}

// GetByBookingAndType fetches the phase for a booking; returns (nil, nil)
// when the phase has never been requested
func (r *PaymentPhaseRepository) GetByBookingAndType(bookingID int64, phaseType models.PaymentPhaseType) (*models.PaymentPhase, error) {
	query := `
		SELECT ` + phaseColumns + `
		FROM payment_phases
		WHERE booking_id = $1 AND phase = $2::payment_phase_type`

	var phase models.PaymentPhase
	err := r.db.Get(&phase, query, bookingID, phaseType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment phase: %w", err)
	}

	return &phase, nil
}

// GetByOrderCode fetches the phase carrying a gateway order code; returns
// (nil, nil) when unknown. Used by webhook processing.
func (r *PaymentPhaseRepository) GetByOrderCode(orderCode int64) (*models.PaymentPhase, error) {
	query := `
		SELECT ` + phaseColumns + `
		FROM payment_phases
		WHERE order_code = $1`

	var phase models.PaymentPhase
	err := r.db.Get(&phase, query, orderCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment phase by order code: %w", err)
	}

	return &phase, nil
}

// MarkPaid sets the payment date on a phase
func (r *PaymentPhaseRepository) MarkPaid(phaseID int64, when time.Time) error {
	query := `
		UPDATE payment_phases
		SET payment_date = $1, updated_at = $1
		WHERE id = $2`

	result, err := r.db.Exec(query, when, phaseID)
	if err != nil {
		return fmt.Errorf("failed to mark phase paid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("payment phase %d not found", phaseID)
	}

	return nil
}

// ListByBooking returns every phase of a booking, deposit first
func (r *PaymentPhaseRepository) ListByBooking(bookingID int64) ([]models.PaymentPhase, error) {
	query := `
		SELECT ` + phaseColumns + `
		FROM payment_phases
		WHERE booking_id = $1
		ORDER BY phase`

	var phases []models.PaymentPhase
	if err := r.db.Select(&phases, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list payment phases: %w", err)
	}

	return phases, nil
}
