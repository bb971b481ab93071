package models

import "time"

// PaymentPhaseType identifies which scheduled partial payment a phase
// represents. Matches PostgreSQL ENUM: payment_phase_type
type PaymentPhaseType string

const (
	PhaseDeposit      PaymentPhaseType = "deposit"       // Material preparation deposit
	PhaseFinalPayment PaymentPhaseType = "final_payment" // Payment on completed work
)

// PaymentPhase is a scheduled partial payment tied to one booking.
// At most one row exists per (booking_id, phase) - enforced by a unique
// constraint and upsert semantics.
type PaymentPhase struct {
	ID              int64            `json:"id" db:"id"`
	BookingID       int64            `json:"booking_id" db:"booking_id"`
	Phase           PaymentPhaseType `json:"phase" db:"phase"`
	ScheduledAmount float64          `json:"scheduled_amount" db:"scheduled_amount"`
	OrderCode       int64            `json:"order_code" db:"order_code"`
	Description     string           `json:"description" db:"description"`
	PaymentDate     *time.Time       `json:"payment_date,omitempty" db:"payment_date"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// IsPaid reports whether the checkout request for this phase succeeded
func (p *PaymentPhase) IsPaid() bool {
	return p != nil && p.PaymentDate != nil
}
