package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seasonaldecor/booking-backend/internal/models"
	"github.com/seasonaldecor/booking-backend/internal/services"
	"github.com/seasonaldecor/booking-backend/pkg/payos"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChecksumKey = "test-checksum-key"

// memPhaseStore is a minimal in-memory phase store for webhook tests
type memPhaseStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.PaymentPhase
}

func newMemPhaseStore() *memPhaseStore {
	return &memPhaseStore{nextID: 1, rows: make(map[int64]*models.PaymentPhase)}
}

func (m *memPhaseStore) Upsert(phase *models.PaymentPhase) (*models.PaymentPhase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *phase
	clone.ID = m.nextID
	m.nextID++
	m.rows[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (m *memPhaseStore) GetByBookingAndType(bookingID int64, phaseType models.PaymentPhaseType) (*models.PaymentPhase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.BookingID == bookingID && row.Phase == phaseType {
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memPhaseStore) GetByOrderCode(orderCode int64) (*models.PaymentPhase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.OrderCode == orderCode {
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memPhaseStore) MarkPaid(phaseID int64, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[phaseID]
	if !ok {
		return fmt.Errorf("phase %d not found", phaseID)
	}
	row.PaymentDate = &when
	return nil
}

func (m *memPhaseStore) ListByBooking(bookingID int64) ([]models.PaymentPhase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentPhase
	for _, row := range m.rows {
		if row.BookingID == bookingID {
			out = append(out, *row)
		}
	}
	return out, nil
}

type memAuditLog struct {
	mu     sync.Mutex
	events []*models.PaymentAudit
}

func (m *memAuditLog) Log(audit *models.PaymentAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, audit)
	return nil
}

func (m *memAuditLog) byType(eventType models.PaymentEventType) []*models.PaymentAudit {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PaymentAudit
	for _, e := range m.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type paymentFixture struct {
	router *gin.Engine
	phases *memPhaseStore
	audit  *memAuditLog
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	gateway := payos.NewClient(payos.Config{
		ClientID:    "test-client",
		APIKey:      "test-key",
		ChecksumKey: testChecksumKey,
	}, logger)

	phases := newMemPhaseStore()
	audit := &memAuditLog{}
	ledger := services.NewPaymentPhaseLedger(phases, logger)
	handler := NewPaymentHandler(gateway, ledger, audit, logger)

	router := gin.New()
	router.POST("/api/v1/payments/webhook", handler.HandleWebhook)

	return &paymentFixture{router: router, phases: phases, audit: audit}
}

// signWebhook reproduces the payOS webhook signature: the data object's
// keys sorted alphabetically and joined as key=value pairs, HMAC-SHA256
// with the checksum key.
func signWebhook(t *testing.T, data map[string]interface{}) string {
	t.Helper()
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		var value string
		switch v := data[k].(type) {
		case string:
			value = v
		default:
			b, err := json.Marshal(v)
			require.NoError(t, err)
			value = string(b)
		}
		pairs = append(pairs, k+"="+value)
	}

	mac := hmac.New(sha256.New, []byte(testChecksumKey))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookBody(t *testing.T, data map[string]interface{}, signature string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"code":      "00",
		"desc":      "success",
		"success":   true,
		"data":      data,
		"signature": signature,
	})
	require.NoError(t, err)
	return body
}

func (f *paymentFixture) post(t *testing.T, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Chrome/125.0")
	f.router.ServeHTTP(w, req)
	return w
}

func TestHandleWebhook(t *testing.T) {
	t.Run("Valid Payment Confirms Phase", func(t *testing.T) {
		f := newPaymentFixture(t)

		phase, err := f.phases.Upsert(&models.PaymentPhase{
			BookingID:       42,
			Phase:           models.PhaseDeposit,
			ScheduledAmount: 500,
			OrderCode:       777,
		})
		require.NoError(t, err)

		data := map[string]interface{}{
			"orderCode": 777,
			"amount":    500,
			"code":      "00",
			"desc":      "success",
		}
		w := f.post(t, webhookBody(t, data, signWebhook(t, data)))

		assert.Equal(t, http.StatusOK, w.Code)

		stored, err := f.phases.GetByOrderCode(777)
		require.NoError(t, err)
		assert.True(t, stored.IsPaid())
		assert.Equal(t, phase.ID, stored.ID)

		require.Len(t, f.audit.byType(models.PaymentEventWebhookReceived), 1)
		success := f.audit.byType(models.PaymentEventPaymentSuccess)
		require.Len(t, success, 1)
		require.NotNil(t, success[0].AmountsMatch)
		assert.True(t, *success[0].AmountsMatch)
		assert.NotNil(t, success[0].IPAddress)
		assert.NotNil(t, success[0].DeviceInfo)
	})

	t.Run("Tampered Signature Rejected", func(t *testing.T) {
		f := newPaymentFixture(t)

		data := map[string]interface{}{
			"orderCode": 777,
			"amount":    500,
			"code":      "00",
			"desc":      "success",
		}
		w := f.post(t, webhookBody(t, data, "deadbeef"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_signature")
		require.Len(t, f.audit.byType(models.PaymentEventError), 1)
	})

	t.Run("Amount Mismatch Audited Without Paying", func(t *testing.T) {
		f := newPaymentFixture(t)

		_, err := f.phases.Upsert(&models.PaymentPhase{
			BookingID:       42,
			Phase:           models.PhaseDeposit,
			ScheduledAmount: 500,
			OrderCode:       777,
		})
		require.NoError(t, err)

		data := map[string]interface{}{
			"orderCode": 777,
			"amount":    100,
			"code":      "00",
			"desc":      "success",
		}
		w := f.post(t, webhookBody(t, data, signWebhook(t, data)))

		assert.Equal(t, http.StatusOK, w.Code)

		stored, _ := f.phases.GetByOrderCode(777)
		assert.False(t, stored.IsPaid())

		mismatches := f.audit.byType(models.PaymentEventAmountMismatch)
		require.Len(t, mismatches, 1)
		require.NotNil(t, mismatches[0].AmountsMatch)
		assert.False(t, *mismatches[0].AmountsMatch)
		assert.Empty(t, f.audit.byType(models.PaymentEventPaymentSuccess))
	})

	t.Run("Failed Payment Not Confirmed", func(t *testing.T) {
		f := newPaymentFixture(t)

		_, err := f.phases.Upsert(&models.PaymentPhase{
			BookingID:       42,
			Phase:           models.PhaseDeposit,
			ScheduledAmount: 500,
			OrderCode:       777,
		})
		require.NoError(t, err)

		data := map[string]interface{}{
			"orderCode": 777,
			"amount":    500,
			"code":      "01",
			"desc":      "failed",
		}
		w := f.post(t, webhookBody(t, data, signWebhook(t, data)))

		assert.Equal(t, http.StatusOK, w.Code)

		stored, _ := f.phases.GetByOrderCode(777)
		assert.False(t, stored.IsPaid())
		require.Len(t, f.audit.byType(models.PaymentEventPaymentFailed), 1)
	})

	t.Run("Unknown Order Code Acknowledged", func(t *testing.T) {
		f := newPaymentFixture(t)

		data := map[string]interface{}{
			"orderCode": 999,
			"amount":    500,
			"code":      "00",
			"desc":      "success",
		}
		w := f.post(t, webhookBody(t, data, signWebhook(t, data)))

		// Acknowledged so payOS stops retrying; recorded as an error event
		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, f.audit.byType(models.PaymentEventError), 1)
	})

	t.Run("Malformed Body Rejected", func(t *testing.T) {
		f := newPaymentFixture(t)

		w := f.post(t, []byte("{not json"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
