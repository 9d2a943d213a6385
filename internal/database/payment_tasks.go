package database

import (
	"context"
	"fmt"
	"time"

	"bikeservice/internal/models"
)

const paymentTaskColumns = `id, payment_id, pidx, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) CreatePaymentTask(ctx context.Context, task *models.PaymentTask) error {
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	query := `INSERT INTO payment_tasks (payment_id, pidx, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		task.PaymentID,
		task.Pidx,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now

	return nil
}

// GetPendingPaymentTasks returns due pending or retry tasks, oldest first.
func (db *DB) GetPendingPaymentTasks(ctx context.Context, limit int) ([]models.PaymentTask, error) {
	query := `SELECT ` + paymentTaskColumns + ` FROM payment_tasks
              WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC, id ASC LIMIT ?`
	return db.queryPaymentTasks(ctx, query, models.TaskStatusPending, models.TaskStatusRetry, time.Now(), limit)
}

func (db *DB) GetFailedPaymentTasks(ctx context.Context) ([]models.PaymentTask, error) {
	query := `SELECT ` + paymentTaskColumns + ` FROM payment_tasks WHERE status = ? ORDER BY created_at DESC, id DESC`
	return db.queryPaymentTasks(ctx, query, models.TaskStatusFailed)
}

func (db *DB) UpdatePaymentTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now()

	switch status {
	case models.TaskStatusRetry:
		query = `UPDATE payment_tasks SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	case models.TaskStatusCompleted, models.TaskStatusFailed:
		query = `UPDATE payment_tasks SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, &now, id}
	default:
		query = `UPDATE payment_tasks SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update payment task status: %w", err)
	}
	return nil
}

func (db *DB) queryPaymentTasks(ctx context.Context, query string, args ...interface{}) ([]models.PaymentTask, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.PaymentTask
	for rows.Next() {
		var t models.PaymentTask
		err := rows.Scan(
			&t.ID, &t.PaymentID, &t.Pidx, &t.Status, &t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
