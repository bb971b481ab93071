package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seasonaldecor/booking-backend/internal/models"
	"github.com/seasonaldecor/booking-backend/internal/services"
	"github.com/seasonaldecor/booking-backend/internal/utils"
	"github.com/seasonaldecor/booking-backend/pkg/payos"
	"github.com/sirupsen/logrus"
)

var errUnknownOrderCode = errors.New("no payment phase carries this order code")

// PaymentHandler handles payment gateway HTTP requests: raw checkout link
// creation and the payOS webhook.
type PaymentHandler struct {
	gateway *payos.Client
	ledger  *services.PaymentPhaseLedger
	audit   services.AuditLog
	logger  *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(gateway *payos.Client, ledger *services.PaymentPhaseLedger, audit services.AuditLog, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		gateway: gateway,
		ledger:  ledger,
		audit:   audit,
		logger:  logger,
	}
}

// CreatePaymentLink handles POST /api/v1/payments/link
func (h *PaymentHandler) CreatePaymentLink(c *gin.Context) {
	var req models.CreatePaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
			Details: []string{err.Error()},
		})
		return
	}

	items := make([]payos.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, payos.Item{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    int(item.Price),
		})
	}

	checkout, err := h.gateway.CreatePaymentLink(c.Request.Context(), payos.CheckoutRequest{
		OrderCode:   req.OrderCode,
		Amount:      int(req.Amount),
		Description: req.Description,
		Items:       items,
		CancelURL:   req.CancelURL,
		ReturnURL:   req.ReturnURL,
	})
	if err != nil {
		h.logger.WithError(err).WithField("order_code", req.OrderCode).Error("Checkout link creation failed")
		h.logAudit(models.NewPaymentAudit(models.PaymentEventLinkFailed, models.PaymentSourcePayOSAPI).
			SetOrderCode(req.OrderCode).
			SetExpectedAmount(req.Amount).
			SetError(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "gateway_error",
			Message: "Failed to create payment link",
		})
		return
	}

	audit := models.NewPaymentAudit(models.PaymentEventLinkCreated, models.PaymentSourcePayOSAPI).
		SetOrderCode(req.OrderCode).
		SetExpectedAmount(req.Amount)
	if req.BookingID > 0 {
		audit.SetBooking(req.BookingID)
	}
	h.logAudit(audit)

	c.JSON(http.StatusOK, gin.H{
		"checkout_url":    checkout.CheckoutURL,
		"payment_link_id": checkout.PaymentLinkID,
		"order_code":      checkout.OrderCode,
	})
}

// HandleWebhook handles POST /api/v1/payments/webhook.
// The endpoint always responds 200 to verified payloads so payOS does not
// retry; processing problems are recorded on the audit trail instead.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to read request body",
		})
		return
	}

	payload, err := h.gateway.VerifyWebhook(body)
	if err != nil {
		h.logger.WithError(err).Warn("Webhook verification failed")
		raw := string(body)
		h.logAudit(h.clientAudit(c, models.NewPaymentAudit(models.PaymentEventError, models.PaymentSourcePayOSWebhook)).
			SetError(err).
			SetRawBody(raw))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_signature",
			Message: "Webhook verification failed",
		})
		return
	}

	received := h.clientAudit(c, models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourcePayOSWebhook)).
		SetOrderCode(payload.Data.OrderCode).
		SetRawBody(string(body))
	h.logAudit(received)

	phase, err := h.ledger.GetPhaseByOrderCode(payload.Data.OrderCode)
	if err != nil {
		h.logger.WithError(err).WithField("order_code", payload.Data.OrderCode).Error("Failed to resolve webhook order code")
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	if phase == nil {
		h.logger.WithField("order_code", payload.Data.OrderCode).Warn("Webhook for unknown order code")
		h.logAudit(h.clientAudit(c, models.NewPaymentAudit(models.PaymentEventError, models.PaymentSourcePayOSWebhook)).
			SetOrderCode(payload.Data.OrderCode).
			SetError(errUnknownOrderCode))
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	if !h.gateway.IsPaid(payload) {
		h.logAudit(h.clientAudit(c, models.NewPaymentAudit(models.PaymentEventPaymentFailed, models.PaymentSourcePayOSWebhook)).
			SetBooking(phase.BookingID).
			SetPhase(phase.ID).
			SetOrderCode(payload.Data.OrderCode))
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	receivedAmount := float64(payload.Data.Amount)
	if receivedAmount != phase.ScheduledAmount {
		h.logger.WithFields(logrus.Fields{
			"order_code": payload.Data.OrderCode,
			"expected":   phase.ScheduledAmount,
			"received":   receivedAmount,
		}).Warn("Webhook amount mismatch")
		h.logAudit(h.clientAudit(c, models.NewPaymentAudit(models.PaymentEventAmountMismatch, models.PaymentSourcePayOSWebhook)).
			SetBooking(phase.BookingID).
			SetPhase(phase.ID).
			SetOrderCode(payload.Data.OrderCode).
			SetAmounts(phase.ScheduledAmount, receivedAmount))
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	// Reconcile: confirm the phase if the checkout-time confirmation was
	// missed.
	if !phase.IsPaid() {
		if err := h.ledger.MarkPaid(phase.ID, time.Now()); err != nil {
			h.logger.WithError(err).WithField("phase_id", phase.ID).Error("Failed to mark phase paid from webhook")
		}
	}

	h.logAudit(h.clientAudit(c, models.NewPaymentAudit(models.PaymentEventPaymentSuccess, models.PaymentSourcePayOSWebhook)).
		SetBooking(phase.BookingID).
		SetPhase(phase.ID).
		SetOrderCode(payload.Data.OrderCode).
		SetAmounts(phase.ScheduledAmount, receivedAmount))

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// clientAudit attaches request metadata to an audit entry
func (h *PaymentHandler) clientAudit(c *gin.Context, audit *models.PaymentAudit) *models.PaymentAudit {
	userAgent := utils.GetUserAgent(c)
	audit.SetClient(utils.GetRealIP(c), userAgent)
	if userAgent != "" {
		audit.DeviceInfo = models.JSONB(utils.ParseUserAgent(userAgent).ToMap())
	}
	return audit
}

func (h *PaymentHandler) logAudit(audit *models.PaymentAudit) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Log(audit); err != nil {
		h.logger.WithError(err).WithField("event_type", audit.EventType).
			Warn("Failed to record payment audit")
	}
}
