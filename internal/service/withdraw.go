package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"golden-dice-bot/internal/model"
	"golden-dice-bot/internal/pkg/db"
	"golden-dice-bot/internal/repository"
)

// Withdrawal errors.
var (
	ErrWithdrawBelowMinimum = errors.New("balance below withdrawal minimum")
	ErrWithdrawNoWallet     = errors.New("no wallet address on file")
	ErrWithdrawNotPending   = errors.New("withdrawal is not pending")
	ErrInvalidAmount        = errors.New("amount must be positive")
)

// WithdrawService implements the optimistic-debit withdrawal workflow:
// the balance is debited the moment the request is accepted, and refunded
// only if an operator rejects it.
type WithdrawService struct {
	pool     *db.Pool
	users    *repository.UserRepository
	ledger   *repository.TransactionRepository
	settings *repository.SettingsStore
}

// NewWithdrawService creates a new WithdrawService instance.
func NewWithdrawService(
	pool *db.Pool,
	users *repository.UserRepository,
	ledger *repository.TransactionRepository,
	settings *repository.SettingsStore,
) *WithdrawService {
	return &WithdrawService{
		pool:     pool,
		users:    users,
		ledger:   ledger,
		settings: settings,
	}
}

// MinBalance returns the balance threshold a user must reach before
// withdrawals are allowed.
func (s *WithdrawService) MinBalance(ctx context.Context) int64 {
	return s.settings.GetInt(ctx, repository.SettingWithdrawMinBalance, 1001)
}

// CreateRequest debits the requested amount and records a pending
// withdrawal, both in one transaction. Requires a wallet address on file,
// a balance over the configured minimum and enough coins to cover the
// amount.
func (s *WithdrawService) CreateRequest(ctx context.Context, userID, amount int64) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.WalletAddress == "" {
		return nil, ErrWithdrawNoWallet
	}

	minBalance := s.MinBalance(ctx)
	if user.Balance < minBalance {
		return nil, ErrWithdrawBelowMinimum
	}
	if amount > user.Balance {
		return nil, ErrInsufficientBalance
	}

	var request *model.Transaction
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		users := s.users.WithTx(tx)

		balance, err := users.GetBalance(ctx, userID)
		if err != nil {
			return err
		}
		// The balance may have moved since the pre-check.
		if balance < minBalance {
			return ErrWithdrawBelowMinimum
		}
		if amount > balance {
			return ErrInsufficientBalance
		}

		if _, err := users.AddBalance(ctx, userID, -amount); err != nil {
			return err
		}

		desc := fmt.Sprintf("Withdrawal to %s", user.WalletAddress)
		created, err := s.ledger.WithTx(tx).Create(ctx, userID, model.TxTypeWithdraw, amount, nil, nil, desc, model.TxStatusPending)
		if err != nil {
			return err
		}
		request = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", userID).
		Int64("tx_id", request.ID).
		Int64("amount", amount).
		Msg("Withdrawal requested")
	return request, nil
}

// Approve marks a pending withdrawal completed. The debit already happened
// at request time, so no balance change occurs.
func (s *WithdrawService) Approve(ctx context.Context, txID int64) (*model.Transaction, error) {
	return s.resolve(ctx, txID, true)
}

// Reject marks a pending withdrawal failed and refunds the debited amount,
// recording a matching refund ledger entry, all in one transaction.
func (s *WithdrawService) Reject(ctx context.Context, txID int64) (*model.Transaction, error) {
	return s.resolve(ctx, txID, false)
}

func (s *WithdrawService) resolve(ctx context.Context, txID int64, approve bool) (*model.Transaction, error) {
	request, err := s.ledger.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if request.Type != model.TxTypeWithdraw || request.Status != model.TxStatusPending {
		return nil, ErrWithdrawNotPending
	}

	status := model.TxStatusCompleted
	if !approve {
		status = model.TxStatusFailed
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		ledger := s.ledger.WithTx(tx)

		// The pre-check above raced with other resolutions; the guarded
		// transition decides who actually owns the row. The refund leg only
		// runs for the winner, so a double rejection refunds once.
		moved, err := ledger.TransitionStatus(ctx, txID, model.TxStatusPending, status)
		if err != nil {
			return err
		}
		if !moved {
			return ErrWithdrawNotPending
		}
		if approve {
			return nil
		}

		if _, err := s.users.WithTx(tx).AddBalance(ctx, request.UserID, request.Amount); err != nil {
			return err
		}
		desc := fmt.Sprintf("Refund for rejected withdrawal #%d", txID)
		_, err = ledger.Create(ctx, request.UserID, model.TxTypeRefund, request.Amount, nil, nil, desc, model.TxStatusCompleted)
		return err
	})
	if err != nil {
		return nil, err
	}

	request.Status = status

	log.Info().
		Int64("tx_id", txID).
		Int64("user_id", request.UserID).
		Int64("amount", request.Amount).
		Str("status", status).
		Msg("Withdrawal resolved")
	return request, nil
}

// PendingRequests lists withdrawals awaiting operator review.
func (s *WithdrawService) PendingRequests(ctx context.Context) ([]*model.Transaction, error) {
	return s.ledger.GetPendingWithdrawals(ctx)
}

// RecordDeposit credits a manual deposit and records its ledger entry in
// one transaction.
func (s *WithdrawService) RecordDeposit(ctx context.Context, userID, amount int64, description string) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var entry *model.Transaction
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := s.users.WithTx(tx).AddBalance(ctx, userID, amount); err != nil {
			return err
		}
		created, err := s.ledger.WithTx(tx).Create(ctx, userID, model.TxTypeDeposit, amount, nil, nil, description, model.TxStatusCompleted)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", userID).
		Int64("amount", amount).
		Msg("Deposit recorded")
	return entry, nil
}
