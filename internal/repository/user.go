package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"golden-dice-bot/internal/model"
)

// Common errors for user operations.
var (
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository handles user data persistence: profile fields, wallet
// address and the current balance.
type UserRepository struct {
	db Querier
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = `telegram_id, username, first_name, last_name, balance, wallet_address, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Balance,
		&user.WalletAddress,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert creates a user on first contact or refreshes the display fields of
// an existing one. New users start with the given initial balance.
func (r *UserRepository) Upsert(ctx context.Context, telegramID int64, username, firstName, lastName string, initialBalance int64) (*model.User, error) {
	const query = `
		INSERT INTO users (telegram_id, username, first_name, last_name, balance, wallet_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '', NOW(), NOW())
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = $2, first_name = $3, last_name = $4, updated_at = NOW()
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, telegramID, username, firstName, lastName, initialBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, telegramID int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetBalance retrieves a user's current balance.
func (r *UserRepository) GetBalance(ctx context.Context, telegramID int64) (int64, error) {
	const query = `SELECT balance FROM users WHERE telegram_id = $1`

	var balance int64
	err := r.db.QueryRow(ctx, query, telegramID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// AddBalance adjusts a user's balance by the given amount, which may be
// negative. The balance is floored at zero on decrement.
func (r *UserRepository) AddBalance(ctx context.Context, telegramID int64, amount int64) (*model.User, error) {
	const query = `
		UPDATE users
		SET balance = GREATEST(balance + $2, 0), updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, telegramID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return user, nil
}

// SetWalletAddress records the user's withdrawal wallet address. The address
// is an opaque string used only for manual off-system settlement.
func (r *UserRepository) SetWalletAddress(ctx context.Context, telegramID int64, address string) error {
	const query = `
		UPDATE users
		SET wallet_address = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.db.Exec(ctx, query, telegramID, address)
	if err != nil {
		return fmt.Errorf("failed to set wallet address: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListIDs returns the Telegram IDs of all known users, used for
// announcement fan-out.
func (r *UserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT telegram_id FROM users ORDER BY telegram_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ids: %w", err)
	}
	return ids, nil
}

// GetLowestBalances retrieves the N users with the lowest balance.
func (r *UserRepository) GetLowestBalances(ctx context.Context, limit int) ([]*model.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY balance ASC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get lowest balances: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(
			&user.TelegramID,
			&user.Username,
			&user.FirstName,
			&user.LastName,
			&user.Balance,
			&user.WalletAddress,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
