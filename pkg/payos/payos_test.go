package payos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(Config{
		BaseURL:     baseURL,
		ClientID:    "client-id",
		APIKey:      "api-key",
		ChecksumKey: "checksum-key",
		ReturnURL:   "https://decor.example.com/payment-success",
		CancelURL:   "https://decor.example.com/payment-cancel",
	}, logger)
}

func TestNewClient(t *testing.T) {
	client := testClient("")

	assert.NotNil(t, client)
	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.NotNil(t, client.client)
	assert.True(t, client.IsConfigured())
}

func TestCreatePaymentLink(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotBody CheckoutRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/payment-requests", r.URL.Path)
			assert.Equal(t, "client-id", r.Header.Get("x-client-id"))
			assert.Equal(t, "api-key", r.Header.Get("x-api-key"))

			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			fmt.Fprint(w, `{
				"code": "00",
				"desc": "success",
				"data": {
					"orderCode": 1700000000,
					"amount": 1000000,
					"paymentLinkId": "pl_123",
					"status": "PENDING",
					"checkoutUrl": "https://pay.payos.vn/web/pl_123"
				}
			}`)
		}))
		defer server.Close()

		client := testClient(server.URL)

		data, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{
			OrderCode:   1700000000,
			Amount:      1000000,
			Description: "DatCocNGLieuID#42",
			Items:       []Item{{Name: "Deposit", Quantity: 1, Price: 1000000}},
		})
		require.NoError(t, err)
		require.NotNil(t, data)

		assert.Equal(t, "https://pay.payos.vn/web/pl_123", data.CheckoutURL)
		assert.Equal(t, "pl_123", data.PaymentLinkID)
		assert.Equal(t, int64(1700000000), data.OrderCode)

		// Defaults applied and signature attached before sending
		assert.Equal(t, "https://decor.example.com/payment-cancel", gotBody.CancelURL)
		assert.Equal(t, "https://decor.example.com/payment-success", gotBody.ReturnURL)
		assert.NotEmpty(t, gotBody.Signature)
	})

	t.Run("Gateway Error Code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code": "231", "desc": "duplicate order code", "data": null}`)
		}))
		defer server.Close()

		client := testClient(server.URL)

		data, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{
			OrderCode:   42,
			Amount:      100,
			Description: "ThanhToanThiCong#42",
		})
		assert.Error(t, err)
		assert.Nil(t, data)
		assert.Contains(t, err.Error(), "duplicate order code")
	})

	t.Run("Missing Checkout URL", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code": "00", "desc": "success", "data": {"orderCode": 42, "checkoutUrl": ""}}`)
		}))
		defer server.Close()

		client := testClient(server.URL)

		data, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{
			OrderCode:   42,
			Amount:      100,
			Description: "x",
		})
		assert.Error(t, err)
		assert.Nil(t, data)
		assert.Contains(t, err.Error(), "no checkout URL")
	})

	t.Run("HTTP Error Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := testClient(server.URL)

		data, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{
			OrderCode:   42,
			Amount:      100,
			Description: "x",
		})
		assert.Error(t, err)
		assert.Nil(t, data)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("Description Too Long", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer server.Close()

		client := testClient(server.URL)

		data, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{
			OrderCode:   42,
			Amount:      100,
			Description: "this description is definitely longer than the gateway cap",
		})
		assert.Error(t, err)
		assert.Nil(t, data)
		assert.Zero(t, calls, "gateway must not be called for an invalid description")
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)
		client := NewClient(Config{}, logger)

		data, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{
			OrderCode:   42,
			Amount:      100,
			Description: "x",
		})
		assert.Error(t, err)
		assert.Nil(t, data)
		assert.Contains(t, err.Error(), "not configured")
	})
}

func TestSignRequest(t *testing.T) {
	client := testClient("")

	req := &CheckoutRequest{
		OrderCode:   1700000000,
		Amount:      1000000,
		Description: "DatCocNGLieuID#42",
		CancelURL:   "https://decor.example.com/payment-cancel",
		ReturnURL:   "https://decor.example.com/payment-success",
	}

	sig1 := client.signRequest(req)
	sig2 := client.signRequest(req)

	assert.Len(t, sig1, 64, "HMAC-SHA256 hex digest")
	assert.Equal(t, sig1, sig2, "signature must be deterministic")

	other := testClient("")
	other.config.ChecksumKey = "different-key"
	assert.NotEqual(t, sig1, other.signRequest(req))

	req.Amount = 2000000
	assert.NotEqual(t, sig1, client.signRequest(req), "signature must cover the amount")
}

func TestVerifyWebhook(t *testing.T) {
	client := testClient("")

	buildBody := func(t *testing.T, dataJSON string, signature string) []byte {
		if signature == "" {
			sig, err := client.signWebhookData(json.RawMessage(dataJSON))
			require.NoError(t, err)
			signature = sig
		}
		return []byte(fmt.Sprintf(
			`{"code":"00","desc":"success","success":true,"data":%s,"signature":"%s"}`,
			dataJSON, signature,
		))
	}

	dataJSON := `{"orderCode":1700000000,"amount":1000000,"description":"DatCocNGLieuID#42","reference":"FT123","code":"00","desc":"success","currency":"VND","paymentLinkId":"pl_123"}`

	t.Run("Valid Signature", func(t *testing.T) {
		payload, err := client.VerifyWebhook(buildBody(t, dataJSON, ""))
		require.NoError(t, err)
		require.NotNil(t, payload)

		assert.Equal(t, int64(1700000000), payload.Data.OrderCode)
		assert.Equal(t, 1000000, payload.Data.Amount)
		assert.True(t, client.IsPaid(payload))
	})

	t.Run("Tampered Amount", func(t *testing.T) {
		sig, err := client.signWebhookData(json.RawMessage(dataJSON))
		require.NoError(t, err)

		tampered := `{"orderCode":1700000000,"amount":9000000,"description":"DatCocNGLieuID#42","reference":"FT123","code":"00","desc":"success","currency":"VND","paymentLinkId":"pl_123"}`
		payload, err := client.VerifyWebhook(buildBody(t, tampered, sig))
		assert.Error(t, err)
		assert.Nil(t, payload)
		assert.Contains(t, err.Error(), "signature mismatch")
	})

	t.Run("Missing Signature", func(t *testing.T) {
		body := []byte(`{"code":"00","desc":"success","data":{"orderCode":42}}`)
		payload, err := client.VerifyWebhook(body)
		assert.Error(t, err)
		assert.Nil(t, payload)
	})

	t.Run("Missing Order Code", func(t *testing.T) {
		payload, err := client.VerifyWebhook([]byte(`{"code":"00","data":{},"signature":"abc"}`))
		assert.Error(t, err)
		assert.Nil(t, payload)
	})

	t.Run("Failed Payment Not Paid", func(t *testing.T) {
		failed := `{"orderCode":1700000000,"amount":1000000,"code":"01","desc":"failed"}`
		payload, err := client.VerifyWebhook(buildBody(t, failed, ""))
		require.NoError(t, err)
		assert.False(t, client.IsPaid(payload))
	})
}
