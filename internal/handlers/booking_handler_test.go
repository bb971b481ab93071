package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seasonaldecor/booking-backend/internal/middleware"
	"github.com/seasonaldecor/booking-backend/internal/models"
	"github.com/seasonaldecor/booking-backend/internal/services"
	"github.com/seasonaldecor/booking-backend/pkg/jwt"
	"github.com/seasonaldecor/booking-backend/pkg/payos"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory port implementations backing the HTTP tests.

type memBookingStore struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*models.Booking
	phases   *memPhaseStore
}

func newMemBookingStore(phases *memPhaseStore) *memBookingStore {
	return &memBookingStore{nextID: 1, bookings: make(map[int64]*models.Booking), phases: phases}
}

func (m *memBookingStore) Insert(b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.nextID
	m.nextID++
	clone := *b
	m.bookings[b.ID] = &clone
	return nil
}

func (m *memBookingStore) GetByID(id int64) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	clone := *b
	return &clone, nil
}

func (m *memBookingStore) UpdateStatus(id int64, status models.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d not found", id)
	}
	b.Status = status
	return nil
}

func (m *memBookingStore) UpdateStatusAndTotal(id int64, status models.BookingStatus, total float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d not found", id)
	}
	b.Status = status
	b.TotalPrice = total
	return nil
}

func (m *memBookingStore) CompleteWithPhase(id int64, total float64, phaseID int64, paidAt time.Time) error {
	if err := m.phases.MarkPaid(phaseID, paidAt); err != nil {
		return err
	}
	return m.UpdateStatusAndTotal(id, models.BookingStatusCompleted, total)
}

func (m *memBookingStore) ListByAccount(accountID int64) ([]*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Booking
	for _, b := range m.bookings {
		if b.AccountID == accountID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

type memAccounts struct {
	providers map[int64]bool
}

func (m *memAccounts) AccountExists(accountID int64) (bool, error) {
	_, ok := m.providers[accountID]
	return ok, nil
}

func (m *memAccounts) IsProvider(accountID int64) (bool, error) {
	return m.providers[accountID], nil
}

type memCatalog struct {
	owners map[int64]int64
}

func (m *memCatalog) GetOwner(serviceID int64) (int64, bool, error) {
	owner, ok := m.owners[serviceID]
	return owner, ok, nil
}

type gatewayFunc func(req payos.CheckoutRequest) (*payos.CheckoutData, error)

func (f gatewayFunc) CreatePaymentLink(_ context.Context, req payos.CheckoutRequest) (*payos.CheckoutData, error) {
	return f(req)
}

type bookingFixture struct {
	router   *gin.Engine
	bookings *memBookingStore
	phases   *memPhaseStore
	token    string
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	phases := newMemPhaseStore()
	bookings := newMemBookingStore(phases)
	accounts := &memAccounts{providers: map[int64]bool{1: false, 2: true}}
	catalog := &memCatalog{owners: map[int64]int64{10: 2}}

	// Fake gateway that always succeeds
	gateway := gatewayFunc(func(req payos.CheckoutRequest) (*payos.CheckoutData, error) {
		return &payos.CheckoutData{
			OrderCode:   req.OrderCode,
			Amount:      req.Amount,
			CheckoutURL: "https://pay.payos.vn/web/test",
		}, nil
	})

	svc := services.NewBookingService(
		bookings,
		services.NewPaymentPhaseLedger(phases, logger),
		accounts,
		catalog,
		gateway,
		&memAuditLog{},
		services.DefaultBookingServiceConfig(),
		logger,
	)

	jwtService := jwt.NewService("test-secret", time.Hour)
	token, err := jwtService.GenerateAccessToken(1, "customer@example.com", []string{"customer"})
	require.NoError(t, err)

	handler := NewBookingHandler(svc, logger)
	router := gin.New()
	api := router.Group("/api/v1", middleware.AuthMiddleware(jwtService, logger))
	api.POST("/bookings", handler.CreateBooking)
	api.GET("/bookings/history", handler.GetBookingHistory)
	api.PUT("/bookings/:id/advance", handler.AdvanceBooking)
	api.POST("/bookings/:id/deposit", handler.RequestDeposit)
	api.POST("/bookings/:id/complete", handler.CompleteBooking)
	api.PUT("/bookings/:id/cancel", handler.CancelBooking)

	return &bookingFixture{router: router, bookings: bookings, phases: phases, token: token}
}

func (f *bookingFixture) request(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	f.router.ServeHTTP(w, req)
	return w
}

func TestBookingHandlerCreate(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := newBookingFixture(t)

		w := f.request(t, http.MethodPost, "/api/v1/bookings", `{"decor_service_id":10}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "Booking created successfully (Pending).")
	})

	t.Run("Unknown Service Is 404", func(t *testing.T) {
		f := newBookingFixture(t)

		w := f.request(t, http.MethodPost, "/api/v1/bookings", `{"decor_service_id":999}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Missing Body Is 400", func(t *testing.T) {
		f := newBookingFixture(t)

		w := f.request(t, http.MethodPost, "/api/v1/bookings", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("No Token Is 401", func(t *testing.T) {
		f := newBookingFixture(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader([]byte(`{"decor_service_id":10}`)))
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestBookingHandlerAdvance(t *testing.T) {
	t.Run("Advances", func(t *testing.T) {
		f := newBookingFixture(t)
		f.request(t, http.MethodPost, "/api/v1/bookings", `{"decor_service_id":10}`)

		w := f.request(t, http.MethodPut, "/api/v1/bookings/1/advance", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "confirmed")
	})

	t.Run("Guard Failure Is 400", func(t *testing.T) {
		f := newBookingFixture(t)
		f.request(t, http.MethodPost, "/api/v1/bookings", `{"decor_service_id":10}`)
		f.request(t, http.MethodPut, "/api/v1/bookings/1/advance", "")
		f.request(t, http.MethodPut, "/api/v1/bookings/1/advance", "")

		// Surveying without a paid deposit
		w := f.request(t, http.MethodPut, "/api/v1/bookings/1/advance", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Deposit payment not completed")
	})

	t.Run("Unknown Booking Is 404", func(t *testing.T) {
		f := newBookingFixture(t)

		w := f.request(t, http.MethodPut, "/api/v1/bookings/404/advance", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Bad ID Is 400", func(t *testing.T) {
		f := newBookingFixture(t)

		w := f.request(t, http.MethodPut, "/api/v1/bookings/abc/advance", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBookingHandlerDepositAndComplete(t *testing.T) {
	f := newBookingFixture(t)

	// create -> confirmed -> surveying
	f.request(t, http.MethodPost, "/api/v1/bookings", `{"decor_service_id":10}`)
	f.request(t, http.MethodPut, "/api/v1/bookings/1/advance", "")
	f.request(t, http.MethodPut, "/api/v1/bookings/1/advance", "")

	w := f.request(t, http.MethodPost, "/api/v1/bookings/1/deposit", `{"total":500}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checkout_url")

	// deposit unlocks procuring, then progressing
	require.Equal(t, http.StatusOK, f.request(t, http.MethodPut, "/api/v1/bookings/1/advance", "").Code)
	require.Equal(t, http.StatusOK, f.request(t, http.MethodPut, "/api/v1/bookings/1/advance", "").Code)

	w = f.request(t, http.MethodPost, "/api/v1/bookings/1/complete", `{"total":1500}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "booking completed")

	stored, err := f.bookings.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, stored.Status)
	assert.Equal(t, 2000.0, stored.TotalPrice)

	// completed booking with both phases paid shows in history
	w = f.request(t, http.MethodGet, "/api/v1/bookings/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BKG-")
}

func TestBookingHandlerCancel(t *testing.T) {
	f := newBookingFixture(t)
	f.request(t, http.MethodPost, "/api/v1/bookings", `{"decor_service_id":10}`)

	w := f.request(t, http.MethodPut, "/api/v1/bookings/1/cancel", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Booking cancelled successfully.")
}
