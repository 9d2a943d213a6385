package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bikeservice/internal/models"

	"github.com/google/uuid"
)

const messageColumns = `m.id, m.sender_id, m.receiver_id, m.message, m.type, m.created_at,
	                 s.id, s.full_name, s.email, s.phone,
	                 r.id, r.full_name, r.email, r.phone
              FROM messages m
              LEFT JOIN users s ON s.id = m.sender_id
              LEFT JOIN users r ON r.id = m.receiver_id`

func (db *DB) CreateMessage(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Type == "" {
		m.Type = models.MessageTypeText
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, message, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.SenderID, m.ReceiverID, m.Message, m.Type, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetMessage returns a message with sender and receiver attached.
func (db *DB) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	m, err := scanMessage(db.QueryRowContext(ctx, `SELECT `+messageColumns+` WHERE m.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

// GetConversation returns messages exchanged between two users in either
// direction, newest first.
func (db *DB) GetConversation(ctx context.Context, userA, userB string, limit, offset int) ([]*models.Message, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+messageColumns+`
              WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
              ORDER BY m.created_at DESC, m.rowid DESC LIMIT ? OFFSET ?`,
		userA, userB, userB, userA, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var m models.Message
	var sid, sname, semail, sphone sql.NullString
	var rid, rname, remail, rphone sql.NullString
	if err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Message, &m.Type, &m.CreatedAt,
		&sid, &sname, &semail, &sphone, &rid, &rname, &remail, &rphone); err != nil {
		return nil, err
	}
	if sid.Valid {
		m.Sender = &models.UserSummary{ID: sid.String, FullName: sname.String, Email: semail.String, Phone: sphone.String}
	}
	if rid.Valid {
		m.Receiver = &models.UserSummary{ID: rid.String, FullName: rname.String, Email: remail.String, Phone: rphone.String}
	}
	return &m, nil
}
