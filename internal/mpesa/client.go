// Package mpesa is the client for the mobile-money payment initiation gateway.
package mpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
)

const initiatePath = "/payments/initiate"

// Client sends STK push requests to the gateway. Initiation only: the
// outcome arrives later on the gateway callback.
type Client struct {
	baseURL     string
	callbackURL string
	httpClient  *http.Client
}

type InitiateRequest struct {
	PhoneNumber string
	Amount      float64
	SessionID   string
	AttemptID   string
}

type Initiation struct {
	Accepted          bool   `json:"accepted"`
	CheckoutReference string `json:"checkoutReference,omitempty"`
}

type initiatePayload struct {
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	CallbackURL string  `json:"callbackUrl,omitempty"`
}

type initiateResponse struct {
	Accepted          bool   `json:"accepted"`
	Status            string `json:"status"`
	CheckoutReference string `json:"checkoutReference"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	Message           string `json:"message"`
}

func NewClient(baseURL, callbackURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Initiate asks the gateway to prompt the phone for payment.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error) {
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, domain.ValidationError{Field: "phoneNumber"}
	}
	if c == nil || c.baseURL == "" {
		return nil, domain.NetworkError{Op: "initiate payment", Err: fmt.Errorf("gateway not configured")}
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(initiatePayload{
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
		CallbackURL: c.callbackFor(req.SessionID, req.AttemptID),
	})
	if err != nil {
		return nil, fmt.Errorf("encode payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+initiatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NetworkError{Op: "initiate payment", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.GatewayError{Reason: readReason(resp.Body, resp.StatusCode), StatusCode: resp.StatusCode}
	}

	var out initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NetworkError{Op: "decode payment response", Err: err}
	}

	accepted := out.Accepted || strings.EqualFold(out.Status, "pending")
	if !accepted {
		reason := out.Message
		if reason == "" {
			reason = "payment failed"
		}
		return nil, domain.GatewayError{Reason: reason}
	}

	ref := out.CheckoutReference
	if ref == "" {
		ref = out.CheckoutRequestID
	}
	return &Initiation{Accepted: true, CheckoutReference: ref}, nil
}

func (c *Client) callbackFor(sessionID, attemptID string) string {
	if c.callbackURL == "" {
		return ""
	}
	u, err := url.Parse(c.callbackURL)
	if err != nil {
		return c.callbackURL
	}
	q := u.Query()
	if sessionID != "" {
		q.Set("session", sessionID)
	}
	if attemptID != "" {
		q.Set("attempt", attemptID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func readReason(body io.Reader, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return http.StatusText(status)
}
