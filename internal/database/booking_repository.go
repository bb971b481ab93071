package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/seasonaldecor/booking-backend/internal/models"
)

// BookingRepository handles booking database operations
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, booking_code, total_price, status, account_id, decor_service_id, voucher_id, created_at, updated_at`

// Insert creates a new booking row and fills generated fields
func (r *BookingRepository) Insert(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			booking_code, total_price, status,
			account_id, decor_service_id, voucher_id,
			created_at, updated_at
		) VALUES ($1, $2, $3::booking_status, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRow(
		query,
		booking.BookingCode,
		booking.TotalPrice,
		booking.Status,
		booking.AccountID,
		booking.DecorServiceID,
		booking.VoucherID,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Scan(&booking.ID)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID fetches a booking by id; returns (nil, nil) when absent
func (r *BookingRepository) GetByID(bookingID int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking models.Booking
	err := r.db.Get(&booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}

	return &booking, nil
}

// UpdateStatus moves a booking to the given status
func (r *BookingRepository) UpdateStatus(bookingID int64, status models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1::booking_status, updated_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, status, time.Now(), bookingID)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %d not found", bookingID)
	}

	return nil
}

// UpdateStatusAndTotal moves a booking to the given status and records the
// recomputed total price in the same statement
func (r *BookingRepository) UpdateStatusAndTotal(bookingID int64, status models.BookingStatus, totalPrice float64) error {
	query := `
		UPDATE bookings
		SET status = $1::booking_status, total_price = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.Exec(query, status, totalPrice, time.Now(), bookingID)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %d not found", bookingID)
	}

	return nil
}

// CompleteWithPhase commits the final-payment confirmation as a single unit:
// the phase is marked paid and the booking moves to completed with its
// recomputed total. Both succeed or both roll back.
func (r *BookingRepository) CompleteWithPhase(bookingID int64, totalPrice float64, phaseID int64, paidAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE payment_phases SET payment_date = $1, updated_at = $1 WHERE id = $2`,
		paidAt, phaseID,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to mark phase paid: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE bookings SET status = $1::booking_status, total_price = $2, updated_at = $3 WHERE id = $4`,
		models.BookingStatusCompleted, totalPrice, paidAt, bookingID,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to complete booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	return nil
}

// ListByAccount returns all bookings owned by the account, newest first
func (r *BookingRepository) ListByAccount(accountID int64) ([]*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE account_id = $1
		ORDER BY created_at DESC`

	var bookings []*models.Booking
	if err := r.db.Select(&bookings, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, nil
}
