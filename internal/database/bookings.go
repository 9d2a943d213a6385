package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bikeservice/internal/domain"
	"bikeservice/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `b.id, b.user_id, b.bike_id, b.chasis_number, b.description, b.bike_number,
	b.address, b.scheduled_at, b.total, b.status, b.created_at, b.updated_at, b.version`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner, extra ...interface{}) (*models.Booking, error) {
	var b models.Booking
	var scheduledAt int64
	dest := []interface{}{
		&b.ID, &b.UserID, &b.BikeID, &b.ChasisNumber, &b.Description, &b.BikeNumber,
		&b.Address, &scheduledAt, &b.Total, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	b.ScheduledAt = time.UnixMilli(scheduledAt).UTC()
	return &b, nil
}

func insertBooking(ctx context.Context, ex execer, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}
	query := `INSERT INTO bookings (
				id, user_id, bike_id, chasis_number, description, bike_number,
				address, scheduled_at, total, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := ex.ExecContext(ctx, query,
		booking.ID,
		booking.UserID,
		booking.BikeID,
		booking.ChasisNumber,
		booking.Description,
		booking.BikeNumber,
		booking.Address,
		booking.ScheduledAt.UnixMilli(),
		booking.Total,
		booking.Status,
		now,
		now,
		1,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func slotFilter(slot domain.SlotQuery) (string, []interface{}) {
	where := `b.scheduled_at >= ? AND b.scheduled_at <= ?`
	args := []interface{}{slot.From.UnixMilli(), slot.To.UnixMilli()}
	if slot.BikeID != "" {
		where += ` AND b.bike_id = ?`
		args = append(args, slot.BikeID)
	}
	return where, args
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if err := insertBooking(ctx, db, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// CreateBookingWithLock re-runs the slot and duplicate checks inside an immediate
// transaction and inserts only when both pass.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking, slot domain.SlotQuery) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	where, args := slotFilter(slot)
	var taken int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings b WHERE `+where, args...).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if taken > 0 {
		return ErrSlotTaken
	}

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = ? AND bike_number = ? AND status = ?`,
		booking.UserID, booking.BikeNumber, models.StatusPending,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to check active bookings in tx: %w", err)
	}
	if active > 0 {
		return ErrDuplicateActive
	}

	if err := insertBooking(ctx, tx, booking); err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// FindBookingsInSlot returns bookings of any status scheduled inside the slot, bounds included.
func (db *DB) FindBookingsInSlot(ctx context.Context, slot domain.SlotQuery) ([]*models.Booking, error) {
	where, args := slotFilter(slot)
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE ` + where + ` ORDER BY b.scheduled_at ASC, b.id ASC`
	return db.queryBookings(ctx, query, args...)
}

func (db *DB) HasPendingBooking(ctx context.Context, userID, bikeNumber string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = ? AND bike_number = ? AND status = ?`,
		userID, bikeNumber, models.StatusPending,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check pending bookings: %w", err)
	}
	return count > 0, nil
}

// ListBookingDetails returns bookings joined with their bike and owner.
// Dangling references leave Bike or User nil.
func (db *DB) ListBookingDetails(ctx context.Context, filter domain.BookingFilter) ([]*models.BookingDetails, error) {
	var conds []string
	var args []interface{}
	if filter.UserID != "" {
		conds = append(conds, "b.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conds = append(conds, "b.status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + bookingColumns + `,
	                 k.id, k.name, k.model, k.price, k.image, k.description,
	                 u.id, u.full_name, u.email, u.phone
	          FROM bookings b
	          LEFT JOIN bikes k ON k.id = b.bike_id
	          LEFT JOIN users u ON u.id = b.user_id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY b.scheduled_at ASC, b.id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	result := make([]*models.BookingDetails, 0)
	for rows.Next() {
		var bikeID, bikeName, bikeModel, bikeImage, bikeDesc sql.NullString
		var bikePrice sql.NullFloat64
		var userID, userName, userEmail, userPhone sql.NullString

		b, err := scanBooking(rows,
			&bikeID, &bikeName, &bikeModel, &bikePrice, &bikeImage, &bikeDesc,
			&userID, &userName, &userEmail, &userPhone,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}

		details := &models.BookingDetails{Booking: *b}
		if bikeID.Valid {
			details.Bike = &models.Bike{
				ID:          bikeID.String,
				Name:        bikeName.String,
				Model:       bikeModel.String,
				Price:       bikePrice.Float64,
				Image:       bikeImage.String,
				Description: bikeDesc.String,
			}
		}
		if userID.Valid {
			details.User = &models.UserSummary{
				ID:       userID.String,
				FullName: userName.String,
				Email:    userEmail.String,
				Phone:    userPhone.String,
			}
		}
		result = append(result, details)
	}
	return result, rows.Err()
}

// GetUserBookings returns the user's bookings among ids; foreign bookings are skipped.
func (db *DB) GetUserBookings(ctx context.Context, userID string, ids []string) ([]*models.Booking, error) {
	if len(ids) == 0 {
		return []*models.Booking{}, nil
	}
	args := []interface{}{userID}
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings b
              WHERE b.user_id = ? AND b.id IN (` + placeholders(len(ids)) + `)
              ORDER BY b.scheduled_at ASC, b.id ASC`
	return db.queryBookings(ctx, query, args...)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return db.FindBookingsInSlot(ctx, domain.SlotQuery{From: start, To: end})
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// UpdateUserBookingsStatus sets status on every booking of the user and returns the count.
func (db *DB) UpdateUserBookingsStatus(ctx context.Context, userID, status string) (int64, error) {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE user_id = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to update user bookings: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return nil
}

func (db *DB) CountBookingsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
