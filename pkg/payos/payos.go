// Package payos implements a client for the payOS checkout-link API
// (api-merchant.payos.vn). One invocation makes exactly one attempt against
// the gateway; retry policy belongs to callers.
package payos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the production payOS merchant API endpoint
const DefaultBaseURL = "https://api-merchant.payos.vn"

// MaxDescriptionLength is the gateway's hard cap on checkout descriptions
const MaxDescriptionLength = 25

// Config holds payOS merchant credentials and callback defaults
type Config struct {
	BaseURL     string // Defaults to DefaultBaseURL
	ClientID    string // x-client-id header
	APIKey      string // x-api-key header
	ChecksumKey string // HMAC key for request/webhook signatures (SECRET)
	ReturnURL   string // Default redirect after successful payment
	CancelURL   string // Default redirect after cancelled payment
}

// Client talks to the payOS payment gateway
type Client struct {
	config Config
	logger *logrus.Logger
	client *http.Client
}

// NewClient creates a new payOS client
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Item is one line item on a checkout link
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"`
}

// CheckoutRequest describes one checkout link to create. Amount is an
// integer in whole currency units, already rounded by the caller.
type CheckoutRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int    `json:"amount"`
	Description string `json:"description"`
	Items       []Item `json:"items"`
	CancelURL   string `json:"cancelUrl"`
	ReturnURL   string `json:"returnUrl"`
	Signature   string `json:"signature"`
}

// CheckoutData is the payment-link payload returned by payOS
type CheckoutData struct {
	Bin           string `json:"bin"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	Amount        int    `json:"amount"`
	Description   string `json:"description"`
	OrderCode     int64  `json:"orderCode"`
	Currency      string `json:"currency"`
	PaymentLinkID string `json:"paymentLinkId"`
	Status        string `json:"status"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
}

type envelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// signRequest computes the HMAC-SHA256 signature payOS requires on
// payment-request creation: the five core fields in alphabetical key order.
func (c *Client) signRequest(req *CheckoutRequest) string {
	data := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount,
		req.CancelURL,
		req.Description,
		req.OrderCode,
		req.ReturnURL,
	)
	mac := hmac.New(sha256.New, []byte(c.config.ChecksumKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePaymentLink creates one checkout link. It makes a single attempt;
// a transport error, non-success code, or missing checkout URL is returned
// to the caller as-is.
func (c *Client) CreatePaymentLink(ctx context.Context, req CheckoutRequest) (*CheckoutData, error) {
	if c.config.ClientID == "" || c.config.APIKey == "" || c.config.ChecksumKey == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing merchant credentials")
	}
	if len(req.Description) > MaxDescriptionLength {
		return nil, fmt.Errorf("description exceeds %d characters", MaxDescriptionLength)
	}
	if req.CancelURL == "" {
		req.CancelURL = c.config.CancelURL
	}
	if req.ReturnURL == "" {
		req.ReturnURL = c.config.ReturnURL
	}

	req.Signature = c.signRequest(&req)

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpointURL := c.config.BaseURL + "/v2/payment-requests"

	c.logger.WithFields(logrus.Fields{
		"order_code": req.OrderCode,
		"amount":     req.Amount,
		"endpoint":   endpointURL,
	}).Info("Creating payOS checkout link")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.config.ClientID)
	httpReq.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.WithError(err).Error("Failed to call payOS endpoint")
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.WithFields(logrus.Fields{
			"body":  string(body),
			"error": err.Error(),
		}).Error("Failed to parse payOS response")
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if env.Code != "00" {
		errMsg := env.Desc
		if errMsg == "" {
			errMsg = fmt.Sprintf("code=%s, raw=%s", env.Code, string(body))
		}
		return nil, fmt.Errorf("checkout link creation failed: %s", errMsg)
	}

	var data CheckoutData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse checkout data: %w", err)
	}

	if data.CheckoutURL == "" {
		return nil, fmt.Errorf("checkout link creation failed: no checkout URL returned")
	}

	c.logger.WithFields(logrus.Fields{
		"order_code":      data.OrderCode,
		"payment_link_id": data.PaymentLinkID,
		"checkout_url":    data.CheckoutURL,
	}).Info("payOS checkout link created")

	return &data, nil
}

// IsConfigured returns true if merchant credentials are present
func (c *Client) IsConfigured() bool {
	return c.config.ClientID != "" && c.config.APIKey != "" && c.config.ChecksumKey != ""
}
