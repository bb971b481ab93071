package services

import (
	"context"
	"time"

	"github.com/seasonaldecor/booking-backend/internal/models"
	"github.com/seasonaldecor/booking-backend/pkg/payos"
)

// AccountDirectory resolves accounts and their provider flag.
// Account management lives outside this service.
type AccountDirectory interface {
	AccountExists(accountID int64) (bool, error)
	IsProvider(accountID int64) (bool, error)
}

// DecorServiceCatalog resolves decor services to their owning account.
// The found flag is false when the service does not exist.
type DecorServiceCatalog interface {
	GetOwner(serviceID int64) (ownerID int64, found bool, err error)
}

// BookingStore persists bookings
type BookingStore interface {
	Insert(booking *models.Booking) error
	GetByID(bookingID int64) (*models.Booking, error)
	UpdateStatus(bookingID int64, status models.BookingStatus) error
	UpdateStatusAndTotal(bookingID int64, status models.BookingStatus, totalPrice float64) error
	// CompleteWithPhase marks the phase paid and completes the booking as
	// one atomic commit.
	CompleteWithPhase(bookingID int64, totalPrice float64, phaseID int64, paidAt time.Time) error
	ListByAccount(accountID int64) ([]*models.Booking, error)
}

// PhaseStore persists payment phases with at most one row per
// (booking, phase type)
type PhaseStore interface {
	Upsert(phase *models.PaymentPhase) (*models.PaymentPhase, error)
	GetByBookingAndType(bookingID int64, phaseType models.PaymentPhaseType) (*models.PaymentPhase, error)
	GetByOrderCode(orderCode int64) (*models.PaymentPhase, error)
	MarkPaid(phaseID int64, when time.Time) error
	ListByBooking(bookingID int64) ([]models.PaymentPhase, error)
}

// PaymentGateway creates checkout links with the external payment
// provider. Implementations make a single attempt per call.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, req payos.CheckoutRequest) (*payos.CheckoutData, error)
}

// AuditLog records payment gateway events
type AuditLog interface {
	Log(audit *models.PaymentAudit) error
}
