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

const bikeColumns = `id, name, model, price, image, description, created_at, updated_at`

func scanBike(row rowScanner) (*models.Bike, error) {
	var b models.Bike
	err := row.Scan(&b.ID, &b.Name, &b.Model, &b.Price, &b.Image, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) CreateBike(ctx context.Context, bike *models.Bike) error {
	if bike.ID == "" {
		bike.ID = uuid.NewString()
	}
	query := `INSERT INTO bikes (` + bikeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		bike.ID,
		bike.Name,
		bike.Model,
		bike.Price,
		bike.Image,
		bike.Description,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create bike: %w", err)
	}
	bike.CreatedAt = now
	bike.UpdatedAt = now
	return nil
}

func (db *DB) GetBikeByID(ctx context.Context, id string) (*models.Bike, error) {
	bike, err := scanBike(db.QueryRowContext(ctx, `SELECT `+bikeColumns+` FROM bikes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bike: %w", err)
	}
	return bike, nil
}

func (db *DB) GetBikes(ctx context.Context) ([]*models.Bike, error) {
	return db.queryBikes(ctx, `SELECT `+bikeColumns+` FROM bikes ORDER BY name ASC, model ASC, id ASC`)
}

func (db *DB) GetBikesByName(ctx context.Context, name string) ([]*models.Bike, error) {
	return db.queryBikes(ctx, `SELECT `+bikeColumns+` FROM bikes WHERE name = ? ORDER BY model ASC, id ASC`, name)
}

func (db *DB) GetBikeModels(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT model FROM bikes ORDER BY model ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get bike models: %w", err)
	}
	defer rows.Close()

	modelNames := make([]string, 0)
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		modelNames = append(modelNames, m)
	}
	return modelNames, rows.Err()
}

func (db *DB) CountBikes(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bikes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count bikes: %w", err)
	}
	return n, nil
}

func (db *DB) UpdateBike(ctx context.Context, bike *models.Bike) error {
	query := `UPDATE bikes SET name = ?, model = ?, price = ?, image = ?, description = ?, updated_at = ? WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, bike.Name, bike.Model, bike.Price, bike.Image, bike.Description, now, bike.ID)
	if err != nil {
		return fmt.Errorf("failed to update bike: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	bike.UpdatedAt = now
	return nil
}

func (db *DB) DeleteBike(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bikes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bike: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedBikes inserts the catalog seed when the bikes table is empty.
func (db *DB) SeedBikes(ctx context.Context, bikes []models.Bike) (int, error) {
	count, err := db.CountBikes(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	for i := range bikes {
		if err := db.CreateBike(ctx, &bikes[i]); err != nil {
			return i, fmt.Errorf("seed bike %q: %w", bikes[i].Name, err)
		}
	}
	db.logger.Info().Int("count", len(bikes)).Msg("Bike catalog seeded")
	return len(bikes), nil
}

func (db *DB) queryBikes(ctx context.Context, query string, args ...interface{}) ([]*models.Bike, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bikes: %w", err)
	}
	defer rows.Close()

	bikes := make([]*models.Bike, 0)
	for rows.Next() {
		b, err := scanBike(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bike: %w", err)
		}
		bikes = append(bikes, b)
	}
	return bikes, rows.Err()
}
