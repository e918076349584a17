package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"golden-dice-bot/internal/model"
	"golden-dice-bot/internal/pkg/db"
	"golden-dice-bot/internal/repository"
)

// ErrInvalidWalletAddress is returned for a wallet address that cannot be
// stored.
var ErrInvalidWalletAddress = errors.New("invalid wallet address")

// UserService handles registration and profile updates.
type UserService struct {
	pool     *db.Pool
	users    *repository.UserRepository
	ledger   *repository.TransactionRepository
	settings *repository.SettingsStore
}

// NewUserService creates a new UserService instance.
func NewUserService(
	pool *db.Pool,
	users *repository.UserRepository,
	ledger *repository.TransactionRepository,
	settings *repository.SettingsStore,
) *UserService {
	return &UserService{
		pool:     pool,
		users:    users,
		ledger:   ledger,
		settings: settings,
	}
}

// EnsureUser registers the user on first contact, granting the starting
// balance with its bonus ledger entry in one transaction. Known users just
// get their display fields refreshed.
func (s *UserService) EnsureUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	_, err := s.users.GetByID(ctx, telegramID)
	if err == nil {
		return s.users.Upsert(ctx, telegramID, username, firstName, lastName, 0)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	startCoins := s.settings.GetInt(ctx, repository.SettingStartCoins, 1000)

	var user *model.User
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		created, err := s.users.WithTx(tx).Upsert(ctx, telegramID, username, firstName, lastName, startCoins)
		if err != nil {
			return err
		}
		user = created

		desc := fmt.Sprintf("Welcome bonus: %d coins", startCoins)
		_, err = s.ledger.WithTx(tx).Create(ctx, telegramID, model.TxTypeBonus, startCoins, nil, nil, desc, model.TxStatusCompleted)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", telegramID).
		Int64("start_coins", startCoins).
		Msg("New user registered")
	return user, nil
}

// GetUser returns the user's profile.
func (s *UserService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByID(ctx, telegramID)
}

// SetWalletAddress stores the user's payout address.
func (s *UserService) SetWalletAddress(ctx context.Context, telegramID int64, address string) error {
	address = strings.TrimSpace(address)
	if len(address) < 10 || len(address) > 128 || strings.ContainsAny(address, " \t\n") {
		return ErrInvalidWalletAddress
	}
	return s.users.SetWalletAddress(ctx, telegramID, address)
}
