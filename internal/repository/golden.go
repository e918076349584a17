package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"golden-dice-bot/internal/model"
)

// Common errors for golden number operations.
var (
	ErrGoldenNotFound = errors.New("golden number not found")
)

// GoldenRepository handles golden number persistence. Rows are immutable
// once created except for the announced flag; an admin-forced regeneration
// simply inserts a newer row for the same date.
type GoldenRepository struct {
	db Querier
}

// NewGoldenRepository creates a new GoldenRepository instance.
func NewGoldenRepository(db Querier) *GoldenRepository {
	return &GoldenRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *GoldenRepository) WithTx(tx pgx.Tx) *GoldenRepository {
	return &GoldenRepository{db: tx}
}

const goldenColumns = `id, number, valid_date, source, announced, created_at`

func scanGolden(row pgx.Row) (*model.GoldenNumber, error) {
	var g model.GoldenNumber
	err := row.Scan(
		&g.ID,
		&g.Number,
		&g.ValidDate,
		&g.Source,
		&g.Announced,
		&g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Create persists a new golden number for the given date.
func (r *GoldenRepository) Create(ctx context.Context, number, source string, validDate time.Time) (*model.GoldenNumber, error) {
	const query = `
		INSERT INTO golden_numbers (number, valid_date, source, announced, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		RETURNING ` + goldenColumns

	g, err := scanGolden(r.db.QueryRow(ctx, query, number, validDate, source))
	if err != nil {
		return nil, fmt.Errorf("failed to create golden number: %w", err)
	}
	return g, nil
}

// GetByID retrieves a golden number by its ID.
func (r *GoldenRepository) GetByID(ctx context.Context, id int64) (*model.GoldenNumber, error) {
	const query = `SELECT ` + goldenColumns + ` FROM golden_numbers WHERE id = $1`

	g, err := scanGolden(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoldenNotFound
		}
		return nil, fmt.Errorf("failed to get golden number: %w", err)
	}
	return g, nil
}

// ForDate retrieves the latest golden number valid for the given date.
// Returns ErrGoldenNotFound if none exists for that date.
func (r *GoldenRepository) ForDate(ctx context.Context, date time.Time) (*model.GoldenNumber, error) {
	const query = `
		SELECT ` + goldenColumns + `
		FROM golden_numbers
		WHERE valid_date = $1
		ORDER BY id DESC
		LIMIT 1
	`

	g, err := scanGolden(r.db.QueryRow(ctx, query, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoldenNotFound
		}
		return nil, fmt.Errorf("failed to get golden number for date: %w", err)
	}
	return g, nil
}

// Latest retrieves the most recently created golden number.
func (r *GoldenRepository) Latest(ctx context.Context) (*model.GoldenNumber, error) {
	const query = `
		SELECT ` + goldenColumns + `
		FROM golden_numbers
		ORDER BY id DESC
		LIMIT 1
	`

	g, err := scanGolden(r.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoldenNotFound
		}
		return nil, fmt.Errorf("failed to get latest golden number: %w", err)
	}
	return g, nil
}

// MarkAnnounced sets the announced flag. Idempotent: marking an already
// announced number has no effect.
func (r *GoldenRepository) MarkAnnounced(ctx context.Context, id int64) error {
	const query = `UPDATE golden_numbers SET announced = TRUE WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark golden number announced: %w", err)
	}
	return nil
}
