package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSONB is a custom type for handling JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface.
// Returns JSON as string for compatibility with pgx simple protocol mode.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventLinkRequested   PaymentEventType = "link_requested"   // Checkout link creation sent to PayOS
	PaymentEventLinkCreated     PaymentEventType = "link_created"     // PayOS returned a checkout URL
	PaymentEventLinkFailed      PaymentEventType = "link_failed"      // PayOS call failed or returned no result
	PaymentEventWebhookReceived PaymentEventType = "webhook_received" // Raw webhook arrived
	PaymentEventPaymentSuccess  PaymentEventType = "payment_success"  // Webhook confirmed funds received
	PaymentEventPaymentFailed   PaymentEventType = "payment_failed"   // Webhook reported a failed payment
	PaymentEventAmountMismatch  PaymentEventType = "amount_mismatch"  // Webhook amount differs from scheduled
	PaymentEventError           PaymentEventType = "error"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend      PaymentEventSource = "backend"
	PaymentSourcePayOSAPI     PaymentEventSource = "payos_api"
	PaymentSourcePayOSWebhook PaymentEventSource = "payos_webhook"
	PaymentSourceUser         PaymentEventSource = "user"
)

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BookingID *int64    `json:"booking_id,omitempty" db:"booking_id"`
	PhaseID   *int64    `json:"phase_id,omitempty" db:"phase_id"`
	OrderCode *int64    `json:"order_code,omitempty" db:"order_code"`

	// Event info
	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	// Gateway correlation
	PaymentLinkID *string `json:"payment_link_id,omitempty" db:"payment_link_id"`
	GatewayCode   *string `json:"gateway_code,omitempty" db:"gateway_code"`

	// Raw payloads, kept for debugging and reconciliation
	RequestPayload  JSONB   `json:"request_payload,omitempty" db:"request_payload"`
	ResponsePayload JSONB   `json:"response_payload,omitempty" db:"response_payload"`
	RawBody         *string `json:"raw_body,omitempty" db:"raw_body"`

	// Error tracking
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	// Metadata
	IPAddress  *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string `json:"user_agent,omitempty" db:"user_agent"`
	DeviceInfo JSONB   `json:"device_info,omitempty" db:"device_info"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetBooking sets the booking the event belongs to
func (pa *PaymentAudit) SetBooking(bookingID int64) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetPhase sets the payment phase the event belongs to
func (pa *PaymentAudit) SetPhase(phaseID int64) *PaymentAudit {
	pa.PhaseID = &phaseID
	return pa
}

// SetOrderCode sets the gateway-facing order code
func (pa *PaymentAudit) SetOrderCode(code int64) *PaymentAudit {
	pa.OrderCode = &code
	return pa
}

// SetAmounts records expected vs received amounts and whether they match
func (pa *PaymentAudit) SetAmounts(expected, received float64) *PaymentAudit {
	match := expected == received
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.AmountsMatch = &match
	return pa
}

// SetExpectedAmount records the amount we asked the gateway to collect
func (pa *PaymentAudit) SetExpectedAmount(expected float64) *PaymentAudit {
	pa.ExpectedAmount = &expected
	return pa
}

// SetRawBody keeps the unparsed webhook body for reconciliation
func (pa *PaymentAudit) SetRawBody(body string) *PaymentAudit {
	if body != "" {
		pa.RawBody = &body
	}
	return pa
}

// SetError records a failure message
func (pa *PaymentAudit) SetError(err error) *PaymentAudit {
	if err != nil {
		msg := err.Error()
		pa.ErrorMessage = &msg
	}
	return pa
}

// SetClient records request metadata for webhook events
func (pa *PaymentAudit) SetClient(ip, userAgent string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	return pa
}
