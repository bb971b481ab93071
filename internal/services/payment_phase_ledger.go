package services

import (
	"fmt"
	"time"

	"github.com/seasonaldecor/booking-backend/internal/models"
	"github.com/seasonaldecor/booking-backend/pkg/payos"
	"github.com/sirupsen/logrus"
)

// Description templates sent to the gateway. Kept short because payOS
// caps descriptions at 25 characters.
const (
	depositDescriptionFormat = "DatCocNGLieuID#%d"
	finalDescriptionFormat   = "ThanhToanThiCong#%d"
)

// PaymentPhaseLedger encapsulates the upsert-by-(booking, phase type)
// operation, order-code generation and description templating used
// identically by the deposit and final-payment paths.
type PaymentPhaseLedger struct {
	phases PhaseStore
	logger *logrus.Logger
}

// NewPaymentPhaseLedger creates a new ledger over the phase store
func NewPaymentPhaseLedger(phases PhaseStore, logger *logrus.Logger) *PaymentPhaseLedger {
	return &PaymentPhaseLedger{
		phases: phases,
		logger: logger,
	}
}

// BuildDescription renders the gateway description for a phase,
// hard-truncated to the gateway's 25-character cap
func BuildDescription(phaseType models.PaymentPhaseType, bookingID int64) string {
	var description string
	switch phaseType {
	case models.PhaseFinalPayment:
		description = fmt.Sprintf(finalDescriptionFormat, bookingID)
	default:
		description = fmt.Sprintf(depositDescriptionFormat, bookingID)
	}
	if len(description) > payos.MaxDescriptionLength {
		description = description[:payos.MaxDescriptionLength]
	}
	return description
}

// ResolveOrderCode returns the explicit gateway code when one was
// supplied, otherwise the time-derived fallback
func ResolveOrderCode(explicit int64, now time.Time) int64 {
	if explicit > 0 {
		return explicit
	}
	return now.Unix()
}

// UpsertPhase creates the phase row for (bookingID, phaseType) or, when
// one exists, overwrites its scheduled amount, order code and description
// in place. Repeated requests for the same phase never produce a second
// row, and a phase's payment date survives re-requests.
func (l *PaymentPhaseLedger) UpsertPhase(bookingID int64, phaseType models.PaymentPhaseType, scheduledAmount float64, explicitOrderCode int64) (*models.PaymentPhase, error) {
	phase := &models.PaymentPhase{
		BookingID:       bookingID,
		Phase:           phaseType,
		ScheduledAmount: scheduledAmount,
		OrderCode:       ResolveOrderCode(explicitOrderCode, time.Now()),
		Description:     BuildDescription(phaseType, bookingID),
	}

	stored, err := l.phases.Upsert(phase)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"booking_id":       bookingID,
		"phase":            phaseType,
		"scheduled_amount": scheduledAmount,
		"order_code":       stored.OrderCode,
	}).Info("Payment phase upserted")

	return stored, nil
}

// MarkPaid sets the payment date on a phase
func (l *PaymentPhaseLedger) MarkPaid(phaseID int64, when time.Time) error {
	return l.phases.MarkPaid(phaseID, when)
}

// GetPhase fetches the phase for a booking; (nil, nil) when the phase has
// never been requested
func (l *PaymentPhaseLedger) GetPhase(bookingID int64, phaseType models.PaymentPhaseType) (*models.PaymentPhase, error) {
	return l.phases.GetByBookingAndType(bookingID, phaseType)
}

// GetPhaseByOrderCode resolves a gateway order code back to its phase
func (l *PaymentPhaseLedger) GetPhaseByOrderCode(orderCode int64) (*models.PaymentPhase, error) {
	return l.phases.GetByOrderCode(orderCode)
}

// ListPhases returns every phase of a booking
func (l *PaymentPhaseLedger) ListPhases(bookingID int64) ([]models.PaymentPhase, error) {
	return l.phases.ListByBooking(bookingID)
}
