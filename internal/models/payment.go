package models

import "time"

type Payment struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	BookingIDs    []string  `json:"booking_ids"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	Status        string    `json:"status"` // pending, success, failed
	Pidx          string    `json:"pidx,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PaymentTask is a queued verification of a pending gateway payment.
type PaymentTask struct {
	ID          int64      `json:"id"`
	PaymentID   string     `json:"payment_id"`
	Pidx        string     `json:"pidx"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
