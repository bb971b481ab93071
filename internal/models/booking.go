package models

import (
	"fmt"
	"time"
)

// BookingStatus represents the lifecycle phase of a booking
// Matches PostgreSQL ENUM: booking_status
type BookingStatus string

const (
	BookingStatusPending     BookingStatus = "pending"     // Customer created the booking
	BookingStatusConfirmed   BookingStatus = "confirmed"   // Provider accepted the booking
	BookingStatusSurveying   BookingStatus = "surveying"   // Provider survey in progress
	BookingStatusProcuring   BookingStatus = "procuring"   // Deposit paid, materials being prepared
	BookingStatusProgressing BookingStatus = "progressing" // Decoration work in progress
	BookingStatusCompleted   BookingStatus = "completed"   // Final payment done
	BookingStatusCancelled   BookingStatus = "cancelled"   // Booking cancelled
)

// IsTerminal reports whether no forward transition exists from this status
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Booking represents a customer's request for a decor service, tracked
// through an ordered operational lifecycle
type Booking struct {
	ID             int64         `json:"id" db:"id"`
	BookingCode    string        `json:"booking_code" db:"booking_code"`
	TotalPrice     float64       `json:"total_price" db:"total_price"`
	Status         BookingStatus `json:"status" db:"status"`
	AccountID      int64         `json:"account_id" db:"account_id"`
	DecorServiceID int64         `json:"decor_service_id" db:"decor_service_id"`
	VoucherID      *int64        `json:"voucher_id,omitempty" db:"voucher_id"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// GenerateBookingCode builds the opaque display code for a new booking
func GenerateBookingCode(now time.Time) string {
	return fmt.Sprintf("BKG-%d", now.UnixNano())
}
