package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/seasonaldecor/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry.
// Gateway events must always be recorded; failures here are surfaced, not
// swallowed.
func (r *PaymentAuditRepository) Log(audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, phase_id, order_code,
			event_type, event_source,
			expected_amount, received_amount, amounts_match,
			payment_link_id, gateway_code,
			request_payload, response_payload, raw_body,
			error_message,
			ip_address, user_agent, device_info,
			created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9,
			$10, $11,
			$12, $13, $14,
			$15,
			$16, $17, $18,
			$19
		)`

	_, err := r.db.Exec(query,
		audit.ID, audit.BookingID, audit.PhaseID, audit.OrderCode,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.AmountsMatch,
		audit.PaymentLinkID, audit.GatewayCode,
		audit.RequestPayload, audit.ResponsePayload, audit.RawBody,
		audit.ErrorMessage,
		audit.IPAddress, audit.UserAgent, audit.DeviceInfo,
		audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"order_code": audit.OrderCode,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"order_code": audit.OrderCode,
	}).Debug("Payment audit logged")

	return nil
}

// GetByOrderCode retrieves all audit entries for a gateway order code
func (r *PaymentAuditRepository) GetByOrderCode(orderCode int64) ([]*models.PaymentAudit, error) {
	query := `
		SELECT id, booking_id, phase_id, order_code,
		       event_type, event_source,
		       expected_amount, received_amount, amounts_match,
		       payment_link_id, gateway_code,
		       request_payload, response_payload, raw_body,
		       error_message,
		       ip_address, user_agent, device_info,
		       created_at
		FROM payment_audits
		WHERE order_code = $1
		ORDER BY created_at ASC`

	return r.selectAudits(query, orderCode)
}

// GetByBookingID retrieves all audit entries for a booking
func (r *PaymentAuditRepository) GetByBookingID(bookingID int64) ([]*models.PaymentAudit, error) {
	query := `
		SELECT id, booking_id, phase_id, order_code,
		       event_type, event_source,
		       expected_amount, received_amount, amounts_match,
		       payment_link_id, gateway_code,
		       request_payload, response_payload, raw_body,
		       error_message,
		       ip_address, user_agent, device_info,
		       created_at
		FROM payment_audits
		WHERE booking_id = $1
		ORDER BY created_at ASC`

	return r.selectAudits(query, bookingID)
}

// GetAmountMismatches retrieves audits where the webhook amount did not
// match the scheduled amount. Reconciliation input.
func (r *PaymentAuditRepository) GetAmountMismatches(limit int) ([]*models.PaymentAudit, error) {
	query := `
		SELECT id, booking_id, phase_id, order_code,
		       event_type, event_source,
		       expected_amount, received_amount, amounts_match,
		       payment_link_id, gateway_code,
		       request_payload, response_payload, raw_body,
		       error_message,
		       ip_address, user_agent, device_info,
		       created_at
		FROM payment_audits
		WHERE amounts_match = FALSE
		ORDER BY created_at DESC
		LIMIT $1`

	return r.selectAudits(query, limit)
}

func (r *PaymentAuditRepository) selectAudits(query string, args ...interface{}) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	if err := r.db.Select(&audits, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query payment audits: %w", err)
	}

	return audits, nil
}
