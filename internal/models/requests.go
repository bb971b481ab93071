package models

import "fmt"

// CreateBookingRequest is the body for POST /bookings. Vouchers are
// attached later in the flow; a new booking always starts without one.
type CreateBookingRequest struct {
	DecorServiceID int64 `json:"decor_service_id" binding:"required"`
}

// Validate checks the request fields
func (r *CreateBookingRequest) Validate() error {
	if r.DecorServiceID <= 0 {
		return fmt.Errorf("decor_service_id is required")
	}
	return nil
}

// PaymentRequest carries the scheduled amount for a deposit or final
// payment request
type PaymentRequest struct {
	Total     float64 `json:"total" binding:"required"`
	OrderCode int64   `json:"order_code,omitempty"` // Optional explicit gateway code
	CancelURL string  `json:"cancel_url,omitempty"`
	ReturnURL string  `json:"return_url,omitempty"`
}

// Validate checks the request fields
func (r *PaymentRequest) Validate() error {
	if r.Total <= 0 {
		return fmt.Errorf("total must be positive")
	}
	return nil
}

// CreatePaymentLinkRequest is the body for the raw checkout-link endpoint
type CreatePaymentLinkRequest struct {
	BookingID   int64             `json:"booking_id"`
	OrderCode   int64             `json:"order_code" binding:"required"`
	Amount      float64           `json:"amount" binding:"required"`
	Description string            `json:"description" binding:"required"`
	Items       []PaymentLinkItem `json:"items"`
	CancelURL   string            `json:"cancel_url,omitempty"`
	ReturnURL   string            `json:"return_url,omitempty"`
}

// PaymentLinkItem is one line item on a checkout link
type PaymentLinkItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}
