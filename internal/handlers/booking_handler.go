package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/seasonaldecor/booking-backend/internal/middleware"
	"github.com/seasonaldecor/booking-backend/internal/models"
	"github.com/seasonaldecor/booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// BookingHandler handles booking lifecycle HTTP requests
type BookingHandler struct {
	bookings *services.BookingService
	logger   *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

// statusForKind maps service error kinds to HTTP status codes
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrNotFound:
		return http.StatusNotFound
	case models.ErrNotAllowed:
		return http.StatusForbidden
	case models.ErrInvalidState:
		return http.StatusBadRequest
	case models.ErrUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respond(c *gin.Context, result *models.OperationResult, successStatus int) {
	if result.Success {
		c.JSON(successStatus, result)
		return
	}
	c.JSON(statusForKind(result.Kind), result)
}

func parseBookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid booking ID format",
		})
		return 0, false
	}
	return id, true
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	accountCtx, ok := middleware.GetAccountContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Account context not found",
		})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
			Details: []string{err.Error()},
		})
		return
	}

	result := h.bookings.CreateBooking(accountCtx.AccountID, &req)
	respond(c, result, http.StatusCreated)
}

// AdvanceBooking handles PUT /api/v1/bookings/:id/advance
func (h *BookingHandler) AdvanceBooking(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	result := h.bookings.AdvanceBookingPhase(bookingID)
	respond(c, result, http.StatusOK)
}

// RequestDeposit handles POST /api/v1/bookings/:id/deposit
func (h *BookingHandler) RequestDeposit(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
			Details: []string{err.Error()},
		})
		return
	}

	result := h.bookings.ApproveSurveyAndRequestDeposit(c.Request.Context(), bookingID, &req)
	respond(c, result, http.StatusOK)
}

// CompleteBooking handles POST /api/v1/bookings/:id/complete
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
			Details: []string{err.Error()},
		})
		return
	}

	result := h.bookings.CompleteBooking(c.Request.Context(), bookingID, &req)
	respond(c, result, http.StatusOK)
}

// CancelBooking handles PUT /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	result := h.bookings.CancelBooking(bookingID)
	respond(c, result, http.StatusOK)
}

// GetBookingHistory handles GET /api/v1/bookings/history
func (h *BookingHandler) GetBookingHistory(c *gin.Context) {
	accountCtx, ok := middleware.GetAccountContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Account context not found",
		})
		return
	}

	result := h.bookings.GetBookingHistory(accountCtx.AccountID)
	respond(c, result, http.StatusOK)
}
