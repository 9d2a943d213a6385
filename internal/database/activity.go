package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bikeservice/internal/models"

	"github.com/google/uuid"
)

func (db *DB) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	result, err := db.ExecContext(ctx, `INSERT INTO activity_logs (
				user_id, username, url, method, role, status, time, device, ip_address
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Username, entry.URL, entry.Method, entry.Role,
		entry.Status, entry.Time, entry.Device, entry.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}
	entry.ID, _ = result.LastInsertId()
	return nil
}

// GetActivityLogs returns a page of logs, newest first, with the total count.
func (db *DB) GetActivityLogs(ctx context.Context, limit, offset int) ([]*models.ActivityLog, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count activity logs: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT id, user_id, username, url, method, role, status, time, device, ip_address
              FROM activity_logs ORDER BY time DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get activity logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.ActivityLog, 0)
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Username, &l.URL, &l.Method, &l.Role,
			&l.Status, &l.Time, &l.Device, &l.IPAddress); err != nil {
			return nil, 0, fmt.Errorf("failed to scan activity log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, total, rows.Err()
}

func (db *DB) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	now := time.Now()
	_, err := db.ExecContext(ctx,
		`INSERT INTO feedback (id, user_id, subject, message, rating, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		feedback.ID, feedback.UserID, feedback.Subject, feedback.Message, feedback.Rating, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	feedback.CreatedAt = now
	return nil
}

// GetAllFeedback returns feedback newest first with the author attached.
func (db *DB) GetAllFeedback(ctx context.Context) ([]*models.Feedback, error) {
	rows, err := db.QueryContext(ctx, `SELECT f.id, f.user_id, f.subject, f.message, f.rating, f.created_at,
	                 u.id, u.full_name, u.email, u.phone
              FROM feedback f LEFT JOIN users u ON u.id = f.user_id
              ORDER BY f.created_at DESC, f.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Feedback, 0)
	for rows.Next() {
		var f models.Feedback
		var uid, name, email, phone sql.NullString
		if err := rows.Scan(&f.ID, &f.UserID, &f.Subject, &f.Message, &f.Rating, &f.CreatedAt,
			&uid, &name, &email, &phone); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		if uid.Valid {
			f.User = &models.UserSummary{ID: uid.String, FullName: name.String, Email: email.String, Phone: phone.String}
		}
		list = append(list, &f)
	}
	return list, rows.Err()
}

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications (id, receiver, message, is_read, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Receiver, n.Message, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (db *DB) GetNotifications(ctx context.Context, receiver string) ([]*models.Notification, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, receiver, message, is_read, created_at
              FROM notifications WHERE receiver = ? ORDER BY created_at DESC, id DESC`, receiver)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Receiver, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (db *DB) MarkNotificationRead(ctx context.Context, id, receiver string) error {
	result, err := db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND receiver = ?`, id, receiver)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}
