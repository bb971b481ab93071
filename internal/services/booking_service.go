package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/seasonaldecor/booking-backend/internal/models"
	"github.com/seasonaldecor/booking-backend/pkg/payos"
	"github.com/sirupsen/logrus"
)

// CancelPolicy controls which statuses allow cancellation
type CancelPolicy string

const (
	// CancelAny allows cancelling from every status, terminal ones
	// included. Matches the historical behaviour of the API.
	CancelAny CancelPolicy = "any"
	// CancelNonTerminal rejects cancellation of completed or already
	// cancelled bookings.
	CancelNonTerminal CancelPolicy = "non_terminal"
)

// BookingServiceConfig holds configuration for the lifecycle manager
type BookingServiceConfig struct {
	CancelPolicy    CancelPolicy
	GatewayTimeout  time.Duration // Per-call budget for payOS requests
	DepositItemName string        // Line item label on deposit checkout links
	FinalItemName   string        // Line item label on final checkout links
}

// DefaultBookingServiceConfig returns default configuration
func DefaultBookingServiceConfig() BookingServiceConfig {
	return BookingServiceConfig{
		CancelPolicy:    CancelAny,
		GatewayTimeout:  30 * time.Second,
		DepositItemName: "Dat coc chuan bi nguyen lieu",
		FinalItemName:   "Thanh toan thi cong trang tri",
	}
}

// BookingService drives the booking lifecycle: creation, phase
// advancement, deposit and final payment checkout, cancellation and
// history. All mutation of bookings and payment phases goes through here,
// serialised per booking id.
type BookingService struct {
	bookings BookingStore
	ledger   *PaymentPhaseLedger
	accounts AccountDirectory
	catalog  DecorServiceCatalog
	gateway  PaymentGateway
	audit    AuditLog
	locks    *bookingLocks
	config   BookingServiceConfig
	logger   *logrus.Logger
}

// NewBookingService creates a new booking lifecycle service
func NewBookingService(
	bookings BookingStore,
	ledger *PaymentPhaseLedger,
	accounts AccountDirectory,
	catalog DecorServiceCatalog,
	gateway PaymentGateway,
	audit AuditLog,
	config BookingServiceConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		ledger:   ledger,
		accounts: accounts,
		catalog:  catalog,
		gateway:  gateway,
		audit:    audit,
		locks:    newBookingLocks(),
		config:   config,
		logger:   logger,
	}
}

// ============================================================================
// STATE MACHINE
// ============================================================================

// transition describes one forward step of the lifecycle. A nil guard is
// unconditional; a failing guard leaves all state untouched.
type transition struct {
	next  models.BookingStatus
	guard func(s *BookingService, bookingID int64) (ok bool, reason string, err error)
}

func guardPhasePaid(phaseType models.PaymentPhaseType, reason string) func(*BookingService, int64) (bool, string, error) {
	return func(s *BookingService, bookingID int64) (bool, string, error) {
		phase, err := s.ledger.GetPhase(bookingID, phaseType)
		if err != nil {
			return false, "", err
		}
		if !phase.IsPaid() {
			return false, reason, nil
		}
		return true, "", nil
	}
}

// transitions maps each status to its single next step. Statuses absent
// from the table (completed, cancelled) permit no further advancement.
var transitions = map[models.BookingStatus]transition{
	models.BookingStatusPending:   {next: models.BookingStatusConfirmed},
	models.BookingStatusConfirmed: {next: models.BookingStatusSurveying},
	models.BookingStatusSurveying: {
		next:  models.BookingStatusProcuring,
		guard: guardPhasePaid(models.PhaseDeposit, "Cannot advance to Procuring: Deposit payment not completed."),
	},
	models.BookingStatusProcuring: {next: models.BookingStatusProgressing},
	models.BookingStatusProgressing: {
		next:  models.BookingStatusCompleted,
		guard: guardPhasePaid(models.PhaseFinalPayment, "Cannot advance to Completed: Final payment not completed."),
	},
}

// ============================================================================
// CREATE
// ============================================================================

// CreateBooking creates a booking in Pending status. Only customer
// accounts may book, and never a service their own account owns.
func (s *BookingService) CreateBooking(accountID int64, req *models.CreateBookingRequest) *models.OperationResult {
	if err := req.Validate(); err != nil {
		return models.Fail(models.ErrInvalidState, err.Error())
	}

	exists, err := s.accounts.AccountExists(accountID)
	if err != nil {
		return s.unexpected("Booking creation failed.", err)
	}
	if !exists {
		return models.Fail(models.ErrNotFound, "Account not found.")
	}

	isProvider, err := s.accounts.IsProvider(accountID)
	if err != nil {
		return s.unexpected("Booking creation failed.", err)
	}
	if isProvider {
		return models.Fail(models.ErrNotAllowed, "Providers are not allowed to book services.")
	}

	ownerID, found, err := s.catalog.GetOwner(req.DecorServiceID)
	if err != nil {
		return s.unexpected("Booking creation failed.", err)
	}
	if !found {
		return models.Fail(models.ErrNotFound, "DecorService not found.")
	}
	if ownerID == accountID {
		return models.Fail(models.ErrNotAllowed, "Service creator cannot book their own service.")
	}

	now := time.Now()
	booking := &models.Booking{
		BookingCode:    models.GenerateBookingCode(now),
		Status:         models.BookingStatusPending,
		AccountID:      accountID,
		DecorServiceID: req.DecorServiceID,
		VoucherID:      nil,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.bookings.Insert(booking); err != nil {
		return s.unexpected("Booking creation failed.", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"account_id":   accountID,
		"service_id":   req.DecorServiceID,
	}).Info("Booking created")

	return models.OK("Booking created successfully (Pending).", booking)
}

// ============================================================================
// ADVANCE
// ============================================================================

// AdvanceBookingPhase moves a booking one step forward along the
// lifecycle. Guarded steps require the corresponding payment phase to be
// paid and fail closed otherwise.
func (s *BookingService) AdvanceBookingPhase(bookingID int64) *models.OperationResult {
	release := s.locks.Acquire(bookingID)
	defer release()

	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return s.unexpected("Error advancing booking phase.", err)
	}
	if booking == nil {
		return models.Fail(models.ErrNotFound, "Booking not found.")
	}

	step, ok := transitions[booking.Status]
	if !ok {
		return models.Fail(models.ErrInvalidState, "No further advancement possible.")
	}

	if step.guard != nil {
		passed, reason, err := step.guard(s, bookingID)
		if err != nil {
			return s.unexpected("Error advancing booking phase.", err)
		}
		if !passed {
			return models.Fail(models.ErrInvalidState, reason)
		}
	}

	if step.next == models.BookingStatusCompleted {
		total, err := s.sumScheduledAmounts(bookingID)
		if err != nil {
			return s.unexpected("Error advancing booking phase.", err)
		}
		if err := s.bookings.UpdateStatusAndTotal(bookingID, step.next, total); err != nil {
			return s.unexpected("Error advancing booking phase.", err)
		}
		booking.TotalPrice = total
	} else {
		if err := s.bookings.UpdateStatus(bookingID, step.next); err != nil {
			return s.unexpected("Error advancing booking phase.", err)
		}
	}
	booking.Status = step.next

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"status":     booking.Status,
	}).Info("Booking advanced")

	return models.OK(fmt.Sprintf("Booking advanced to %s.", booking.Status), booking)
}

// sumScheduledAmounts recomputes the booking total from its phases,
// treating a missing phase as zero
func (s *BookingService) sumScheduledAmounts(bookingID int64) (float64, error) {
	var total float64
	for _, phaseType := range []models.PaymentPhaseType{models.PhaseDeposit, models.PhaseFinalPayment} {
		phase, err := s.ledger.GetPhase(bookingID, phaseType)
		if err != nil {
			return 0, err
		}
		if phase != nil {
			total += phase.ScheduledAmount
		}
	}
	return total, nil
}

// ============================================================================
// DEPOSIT
// ============================================================================

// ApproveSurveyAndRequestDeposit records the agreed deposit after the
// survey and creates its checkout link. The ledger row is committed first,
// then the gateway is called, then the phase is marked paid; a gateway
// failure leaves the phase unpaid and the booking status untouched.
func (s *BookingService) ApproveSurveyAndRequestDeposit(ctx context.Context, bookingID int64, req *models.PaymentRequest) *models.OperationResult {
	return s.requestPhasePayment(ctx, bookingID, req, phasePaymentFlow{
		phaseType:      models.PhaseDeposit,
		requiredStatus: models.BookingStatusSurveying,
		statusMessage:  "Booking must be in Surveying status for deposit.",
		failureMessage: "Error processing deposit payment.",
		successMessage: "Deposit payment link created; please complete payment via the provided link.",
		itemName:       s.config.DepositItemName,
	})
}

// ============================================================================
// COMPLETE
// ============================================================================

// CompleteBooking records the final payment when the work is done and
// creates its checkout link. On gateway success the phase is marked paid
// and the booking moves to Completed with its total recomputed, as one
// atomic commit; on failure nothing changes.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID int64, req *models.PaymentRequest) *models.OperationResult {
	return s.requestPhasePayment(ctx, bookingID, req, phasePaymentFlow{
		phaseType:      models.PhaseFinalPayment,
		requiredStatus: models.BookingStatusProgressing,
		statusMessage:  "Booking must be in Progressing status to complete.",
		failureMessage: "Error processing final payment.",
		successMessage: "Final payment processed; booking completed.",
		itemName:       s.config.FinalItemName,
		completes:      true,
	})
}

// phasePaymentFlow parameterises the shared deposit / final-payment path
type phasePaymentFlow struct {
	phaseType      models.PaymentPhaseType
	requiredStatus models.BookingStatus
	statusMessage  string
	failureMessage string
	successMessage string
	itemName       string
	completes      bool // Final payment also completes the booking
}

func (s *BookingService) requestPhasePayment(ctx context.Context, bookingID int64, req *models.PaymentRequest, flow phasePaymentFlow) *models.OperationResult {
	if err := req.Validate(); err != nil {
		return models.Fail(models.ErrInvalidState, err.Error())
	}

	release := s.locks.Acquire(bookingID)
	defer release()

	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return s.unexpected(flow.failureMessage, err)
	}
	if booking == nil {
		return models.Fail(models.ErrNotFound, "Booking not found.")
	}
	if booking.Status != flow.requiredStatus {
		return models.Fail(models.ErrInvalidState, flow.statusMessage)
	}

	// 1. Commit the ledger row before talking to the gateway
	phase, err := s.ledger.UpsertPhase(bookingID, flow.phaseType, req.Total, req.OrderCode)
	if err != nil {
		return s.unexpected(flow.failureMessage, err)
	}

	// 2. Single gateway attempt under a timeout
	amount := int(math.Round(req.Total))
	gatewayCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	checkout, err := s.gateway.CreatePaymentLink(gatewayCtx, payos.CheckoutRequest{
		OrderCode:   phase.OrderCode,
		Amount:      amount,
		Description: phase.Description,
		Items:       []payos.Item{{Name: flow.itemName, Quantity: 1, Price: amount}},
		CancelURL:   req.CancelURL,
		ReturnURL:   req.ReturnURL,
	})
	if err != nil || checkout == nil {
		if err == nil {
			err = fmt.Errorf("payment gateway returned no result")
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"phase":      flow.phaseType,
			"order_code": phase.OrderCode,
		}).Error("Checkout link creation failed")
		s.recordAudit(models.NewPaymentAudit(models.PaymentEventLinkFailed, models.PaymentSourcePayOSAPI).
			SetBooking(bookingID).
			SetPhase(phase.ID).
			SetOrderCode(phase.OrderCode).
			SetExpectedAmount(req.Total).
			SetError(err))
		return models.Fail(models.ErrUpstreamFailure, flow.failureMessage, err.Error())
	}

	// 3. Only a successful gateway response marks the phase paid
	now := time.Now()
	if flow.completes {
		deposit, err := s.ledger.GetPhase(bookingID, models.PhaseDeposit)
		if err != nil {
			return s.unexpected(flow.failureMessage, err)
		}
		var depositAmount float64
		if deposit != nil {
			depositAmount = deposit.ScheduledAmount
		}
		total := depositAmount + req.Total

		if err := s.bookings.CompleteWithPhase(bookingID, total, phase.ID, now); err != nil {
			return s.unexpected(flow.failureMessage, err)
		}
		booking.Status = models.BookingStatusCompleted
		booking.TotalPrice = total
	} else {
		if err := s.ledger.MarkPaid(phase.ID, now); err != nil {
			return s.unexpected(flow.failureMessage, err)
		}
	}
	phase.PaymentDate = &now

	s.recordAudit(models.NewPaymentAudit(models.PaymentEventLinkCreated, models.PaymentSourcePayOSAPI).
		SetBooking(bookingID).
		SetPhase(phase.ID).
		SetOrderCode(phase.OrderCode).
		SetExpectedAmount(req.Total))

	s.logger.WithFields(logrus.Fields{
		"booking_id":   bookingID,
		"phase":        flow.phaseType,
		"order_code":   phase.OrderCode,
		"checkout_url": checkout.CheckoutURL,
	}).Info("Checkout link created")

	return models.OK(flow.successMessage, &models.CheckoutResult{
		CheckoutURL: checkout.CheckoutURL,
		Booking:     booking,
		OrderCode:   phase.OrderCode,
	})
}

// ============================================================================
// CANCEL
// ============================================================================

// CancelBooking sets the booking to Cancelled. Which statuses may be
// cancelled is policy; payment phases are never adjusted.
func (s *BookingService) CancelBooking(bookingID int64) *models.OperationResult {
	release := s.locks.Acquire(bookingID)
	defer release()

	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return s.unexpected("Error cancelling booking.", err)
	}
	if booking == nil {
		return models.Fail(models.ErrNotFound, "Booking not found.")
	}

	if s.config.CancelPolicy == CancelNonTerminal && booking.Status.IsTerminal() {
		return models.Fail(models.ErrInvalidState,
			fmt.Sprintf("Cannot cancel a %s booking.", booking.Status))
	}

	if err := s.bookings.UpdateStatus(bookingID, models.BookingStatusCancelled); err != nil {
		return s.unexpected("Error cancelling booking.", err)
	}
	booking.Status = models.BookingStatusCancelled

	s.logger.WithField("booking_id", bookingID).Info("Booking cancelled")

	return models.OK("Booking cancelled successfully.", booking)
}

// ============================================================================
// HISTORY
// ============================================================================

// GetBookingHistory returns the account's completed bookings that carry
// both a paid deposit and a paid final payment. Totals are recomputed from
// the phases rather than trusted from storage.
func (s *BookingService) GetBookingHistory(accountID int64) *models.OperationResult {
	bookings, err := s.bookings.ListByAccount(accountID)
	if err != nil {
		return s.unexpected("Error retrieving booking history.", err)
	}

	history := make([]models.BookingHistoryEntry, 0)
	for _, booking := range bookings {
		if booking.Status != models.BookingStatusCompleted {
			continue
		}

		phases, err := s.ledger.ListPhases(booking.ID)
		if err != nil {
			return s.unexpected("Error retrieving booking history.", err)
		}

		var deposit, final *models.PaymentPhase
		for i := range phases {
			switch phases[i].Phase {
			case models.PhaseDeposit:
				deposit = &phases[i]
			case models.PhaseFinalPayment:
				final = &phases[i]
			}
		}
		if !deposit.IsPaid() || !final.IsPaid() {
			continue
		}

		booking.TotalPrice = deposit.ScheduledAmount + final.ScheduledAmount
		history = append(history, models.BookingHistoryEntry{
			Booking: booking,
			Phases:  phases,
		})
	}

	return models.OK("Booking history retrieved.", history)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *BookingService) recordAudit(audit *models.PaymentAudit) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(audit); err != nil {
		s.logger.WithError(err).WithField("event_type", audit.EventType).
			Warn("Failed to record payment audit")
	}
}

func (s *BookingService) unexpected(message string, err error) *models.OperationResult {
	s.logger.WithError(err).Error(message)
	return models.Fail(models.ErrUnexpected, message, err.Error())
}
