package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bikeservice/internal/models"

	"github.com/google/uuid"
)

const paymentColumns = `id, user_id, booking_ids, amount, method, status, pidx, transaction_id, created_at, updated_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var bookingIDs string
	err := row.Scan(&p.ID, &p.UserID, &bookingIDs, &p.Amount, &p.Method, &p.Status,
		&p.Pidx, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(bookingIDs), &p.BookingIDs); err != nil {
		return nil, fmt.Errorf("decode booking ids: %w", err)
	}
	return &p, nil
}

func (db *DB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	ids, err := json.Marshal(payment.BookingIDs)
	if err != nil {
		return fmt.Errorf("encode booking ids: %w", err)
	}

	now := time.Now()
	_, err = db.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.UserID,
		string(ids),
		payment.Amount,
		payment.Method,
		payment.Status,
		payment.Pidx,
		payment.TransactionID,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	payment.CreatedAt = now
	payment.UpdatedAt = now
	return nil
}

func (db *DB) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return db.queryPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

func (db *DB) GetPaymentByPidx(ctx context.Context, pidx string) (*models.Payment, error) {
	return db.queryPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE pidx = ?`, pidx)
}

func (db *DB) queryPayment(ctx context.Context, query string, args ...interface{}) (*models.Payment, error) {
	p, err := scanPayment(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (db *DB) SetPaymentPidx(ctx context.Context, id, pidx string) error {
	result, err := db.ExecContext(ctx, `UPDATE payments SET pidx = ?, updated_at = ? WHERE id = ?`, pidx, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set payment pidx: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) UpdatePaymentStatus(ctx context.Context, id, status, transactionID string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE payments SET status = ?, transaction_id = ?, updated_at = ? WHERE id = ?`,
		status, transactionID, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}
