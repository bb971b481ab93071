package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// WebhookData carries the transaction details of a payOS webhook
type WebhookData struct {
	OrderCode            int64  `json:"orderCode"`
	Amount               int    `json:"amount"`
	Description          string `json:"description"`
	AccountNumber        string `json:"accountNumber"`
	Reference            string `json:"reference"`
	TransactionDateTime  string `json:"transactionDateTime"`
	Currency             string `json:"currency"`
	PaymentLinkID        string `json:"paymentLinkId"`
	Code                 string `json:"code"`
	Desc                 string `json:"desc"`
	CounterAccountBankID string `json:"counterAccountBankId"`
	CounterAccountName   string `json:"counterAccountName"`
	CounterAccountNumber string `json:"counterAccountNumber"`
}

// WebhookPayload is the full webhook body sent by payOS
type WebhookPayload struct {
	Code      string      `json:"code"`
	Desc      string      `json:"desc"`
	Success   bool        `json:"success"`
	Data      WebhookData `json:"data"`
	Signature string      `json:"signature"`
}

// VerifyWebhook parses a webhook body and checks its HMAC signature
// against the checksum key. Returns the parsed payload only when the
// signature is authentic.
func (c *Client) VerifyWebhook(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	if payload.Signature == "" {
		return nil, fmt.Errorf("webhook missing signature")
	}
	if payload.Data.OrderCode == 0 {
		return nil, fmt.Errorf("webhook missing order code")
	}

	// The signature covers the raw data object, its keys sorted
	// alphabetically and joined as key=value pairs.
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	expected, err := c.signWebhookData(raw.Data)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(expected), []byte(payload.Signature)) {
		return nil, fmt.Errorf("webhook signature mismatch")
	}

	return &payload, nil
}

// IsPaid reports whether a verified webhook confirms a successful payment
func (c *Client) IsPaid(payload *WebhookPayload) bool {
	return payload != nil && payload.Code == "00" && payload.Data.Code == "00"
}

func (c *Client) signWebhookData(data json.RawMessage) (string, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return "", fmt.Errorf("invalid webhook data: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, canonicalValue(fields[k])))
	}

	mac := hmac.New(sha256.New, []byte(c.config.ChecksumKey))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// canonicalValue renders a webhook field the way payOS signs it:
// null becomes the empty string, everything else its JSON text.
func canonicalValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
