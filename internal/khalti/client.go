package khalti

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"bikeservice/internal/config"
)

// Lookup statuses reported by the gateway.
const (
	StatusCompleted         = "Completed"
	StatusPending           = "Pending"
	StatusInitiated         = "Initiated"
	StatusRefunded          = "Refunded"
	StatusExpired           = "Expired"
	StatusUserCanceled      = "User canceled"
	StatusPartiallyRefunded = "Partially Refunded"
)

var ErrNotConfigured = errors.New("khalti secret key is not configured")

// InitiateRequest is the body of epayment/initiate. Amount is in paisa.
type InitiateRequest struct {
	ReturnURL         string `json:"return_url"`
	WebsiteURL        string `json:"website_url"`
	Amount            int64  `json:"amount"`
	PurchaseOrderID   string `json:"purchase_order_id"`
	PurchaseOrderName string `json:"purchase_order_name"`
}

type InitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
	ExpiresIn  int    `json:"expires_in"`
}

type LookupResponse struct {
	Pidx          string  `json:"pidx"`
	TotalAmount   int64   `json:"total_amount"`
	Status        string  `json:"status"`
	TransactionID *string `json:"transaction_id"`
	Fee           int64   `json:"fee"`
	Refunded      bool    `json:"refunded"`
}

// Final reports whether the payment will not change state anymore.
func (r *LookupResponse) Final() bool {
	switch r.Status {
	case StatusPending, StatusInitiated:
		return false
	default:
		return true
	}
}

func (r *LookupResponse) Transaction() string {
	if r.TransactionID == nil {
		return ""
	}
	return *r.TransactionID
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("khalti: http %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	secretKey  string
	returnURL  string
	websiteURL string
	httpClient *http.Client
}

func NewClient(cfg config.KhaltiConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/",
		secretKey:  cfg.SecretKey,
		returnURL:  cfg.ReturnURL,
		websiteURL: cfg.WebsiteURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ToPaisa converts rupees to the gateway's minor unit.
func ToPaisa(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Initiate starts an e-payment. Empty return and website URLs take the configured defaults.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	if req.ReturnURL == "" {
		req.ReturnURL = c.returnURL
	}
	if req.WebsiteURL == "" {
		req.WebsiteURL = c.websiteURL
	}
	if req.Amount <= 0 {
		return nil, errors.New("khalti: amount must be positive")
	}

	var resp InitiateResponse
	if err := c.doPost(ctx, "epayment/initiate/", req, &resp); err != nil {
		return nil, err
	}
	if resp.Pidx == "" {
		return nil, errors.New("khalti: initiate returned empty pidx")
	}
	return &resp, nil
}

func (c *Client) Lookup(ctx context.Context, pidx string) (*LookupResponse, error) {
	var resp LookupResponse
	if err := c.doPost(ctx, "epayment/lookup/", map[string]string{"pidx": pidx}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doPost(ctx context.Context, path string, body any, out any) error {
	if c.secretKey == "" {
		return ErrNotConfigured
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.secretKey)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("khalti: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
