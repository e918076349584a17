package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"golden-dice-bot/internal/model"
)

// Common errors for ledger operations.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

// TransactionRepository handles the append-only ledger of monetary
// movements. Entries are never edited after creation except for status
// transitions on withdrawal rows.
type TransactionRepository struct {
	db Querier
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(db Querier) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *TransactionRepository) WithTx(tx pgx.Tx) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

const txColumns = `id, user_id, type, amount, golden_id, session_id, description, status, created_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Type,
		&tx.Amount,
		&tx.GoldenID,
		&tx.SessionID,
		&tx.Description,
		&tx.Status,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create appends a ledger entry. Amount must be non-negative; the balance
// effect direction is implied by the entry type.
func (r *TransactionRepository) Create(ctx context.Context, userID int64, txType string, amount int64, goldenID, sessionID *int64, description, status string) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (user_id, type, amount, golden_id, session_id, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + txColumns

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, userID, txType, amount, goldenID, sessionID, description, status))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// GetByID retrieves a ledger entry by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	const query = `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// GetByUser retrieves a user's ledger entries, newest first.
func (r *TransactionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// GetBySession retrieves the ledger entries of one session in creation order.
func (r *TransactionRepository) GetBySession(ctx context.Context, sessionID int64) ([]*model.Transaction, error) {
	const query = `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE session_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// TransitionStatus moves a ledger entry from one status to another. The
// prior status is part of the predicate, so of two concurrent resolutions
// only one can win the row. Returns false when no row was in the expected
// status. Only withdrawal entries go through status transitions; all other
// entries stay completed.
func (r *TransactionRepository) TransitionStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	const query = `UPDATE transactions SET status = $3 WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// TotalByType sums the completed entries of one type for a user.
func (r *TransactionRepository) TotalByType(ctx context.Context, userID int64, txType string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND type = $2 AND status = $3
	`

	var total int64
	err := r.db.QueryRow(ctx, query, userID, txType, model.TxStatusCompleted).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to total transactions: %w", err)
	}
	return total, nil
}

// CountByType counts the completed entries of one type for a user.
func (r *TransactionRepository) CountByType(ctx context.Context, userID int64, txType string) (int64, error) {
	const query = `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = $1 AND type = $2 AND status = $3
	`

	var count int64
	err := r.db.QueryRow(ctx, query, userID, txType, model.TxStatusCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetPendingWithdrawals retrieves unresolved withdrawal requests, oldest
// first.
func (r *TransactionRepository) GetPendingWithdrawals(ctx context.Context) ([]*model.Transaction, error) {
	const query = `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE type = $1 AND status = $2
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, model.TxTypeWithdraw, model.TxStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending withdrawals: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// GetLeaderboardByWins aggregates completed win/loss entries into the
// wins leaderboard, ordered by total won amount.
func (r *TransactionRepository) GetLeaderboardByWins(ctx context.Context, limit int) ([]*model.WinsRank, error) {
	const query = `
		SELECT
			t.user_id,
			u.username,
			u.first_name,
			u.last_name,
			u.balance,
			SUM(CASE WHEN t.type = 'win' THEN t.amount ELSE 0 END) AS total_wins,
			COUNT(*) FILTER (WHERE t.type = 'win') AS win_count,
			COUNT(*) FILTER (WHERE t.type = 'loss') AS loss_count
		FROM transactions t
		JOIN users u ON t.user_id = u.telegram_id
		WHERE t.status = $1 AND t.type IN ('win', 'loss')
		GROUP BY t.user_id, u.username, u.first_name, u.last_name, u.balance
		ORDER BY total_wins DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, model.TxStatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get wins leaderboard: %w", err)
	}
	defer rows.Close()

	var ranks []*model.WinsRank
	for rows.Next() {
		var rank model.WinsRank
		err := rows.Scan(
			&rank.UserID,
			&rank.Username,
			&rank.FirstName,
			&rank.LastName,
			&rank.Balance,
			&rank.TotalWins,
			&rank.WinCount,
			&rank.LossCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		ranks = append(ranks, &rank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}
	return ranks, nil
}

func collectTransactions(rows pgx.Rows) ([]*model.Transaction, error) {
	var transactions []*model.Transaction
	for rows.Next() {
		var tx model.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Type,
			&tx.Amount,
			&tx.GoldenID,
			&tx.SessionID,
			&tx.Description,
			&tx.Status,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}
