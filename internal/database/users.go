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

const userColumns = `id, full_name, email, phone, password_hash, is_admin, failed_login_attempts,
	lock_until, password_changed_at, otp_hash, otp_purpose, otp_expires_at, otp_attempts, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.FullName, &u.Email, &u.Phone, &u.PasswordHash, &u.IsAdmin, &u.FailedLoginAttempts,
		&u.LockUntil, &u.PasswordChangedAt, &u.OTPHash, &u.OTPPurpose, &u.OTPExpiresAt, &u.OTPAttempts, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts the user and seeds the password history with the initial hash.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	if user.PasswordChangedAt.IsZero() {
		user.PasswordChangedAt = now
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO users (
				id, full_name, email, phone, password_hash, is_admin,
				password_changed_at, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.FullName, user.Email, user.Phone, user.PasswordHash, user.IsAdmin,
		user.PasswordChangedAt, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO password_history (user_id, password_hash, created_at) VALUES (?, ?, ?)`,
		user.ID, user.PasswordHash, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record password history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (db *DB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone)
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) UpdateUserProfile(ctx context.Context, user *models.User) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, phone = ?, updated_at = ? WHERE id = ?`,
		user.FullName, user.Phone, now, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

// UpdateLoginState stores the failed-attempt counter and lock deadline.
func (db *DB) UpdateLoginState(ctx context.Context, id string, failedAttempts int, lockUntil *time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET failed_login_attempts = ?, lock_until = ?, updated_at = ? WHERE id = ?`,
		failedAttempts, lockUntil, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update login state: %w", err)
	}
	return nil
}

// SetUserOTP stores a one-time code hash and resets the attempt counter; an empty hash clears it.
func (db *DB) SetUserOTP(ctx context.Context, id, otpHash, purpose string, expiresAt *time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET otp_hash = ?, otp_purpose = ?, otp_expires_at = ?, otp_attempts = 0, updated_at = ? WHERE id = ?`,
		otpHash, purpose, expiresAt, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set otp: %w", err)
	}
	return nil
}

// RecordOTPFailure bumps the failed attempt counter of the pending OTP and returns the new count.
func (db *DB) RecordOTPFailure(ctx context.Context, id string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET otp_attempts = otp_attempts + 1, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to record otp failure: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return 0, ErrNotFound
	}

	var attempts int
	if err := tx.QueryRowContext(ctx, `SELECT otp_attempts FROM users WHERE id = ?`, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("failed to read otp attempts: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return attempts, nil
}

// UpdatePassword replaces the hash, clears any OTP and keeps the newest historySize hashes.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string, historySize int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `UPDATE users SET
				password_hash = ?, password_changed_at = ?, otp_hash = '', otp_purpose = '',
				otp_expires_at = NULL, otp_attempts = 0, failed_login_attempts = 0, lock_until = NULL, updated_at = ?
			WHERE id = ?`,
		passwordHash, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO password_history (user_id, password_hash, created_at) VALUES (?, ?, ?)`,
		id, passwordHash, now,
	); err != nil {
		return fmt.Errorf("failed to record password history: %w", err)
	}

	if historySize > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM password_history WHERE user_id = ? AND id NOT IN (
				SELECT id FROM password_history WHERE user_id = ? ORDER BY id DESC LIMIT ?
			)`, id, id, historySize)
		if err != nil {
			return fmt.Errorf("failed to trim password history: %w", err)
		}
	}

	return tx.Commit()
}

// GetPasswordHistory returns the newest hashes first.
func (db *DB) GetPasswordHistory(ctx context.Context, id string, limit int) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT password_hash FROM password_history WHERE user_id = ? ORDER BY id DESC LIMIT ?`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get password history: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
