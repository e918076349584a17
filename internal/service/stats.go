package service

import (
	"context"

	"golden-dice-bot/internal/model"
	"golden-dice-bot/internal/repository"
)

// UserStats aggregates a user's play history from the ledger.
type UserStats struct {
	Balance    int64
	Wins       int64
	Losses     int64
	TotalWon   int64
	Withdrawn  int64
	GamesTotal int64
	WinRate    float64
}

// StatsService serves read-only aggregates: personal stats and the
// leaderboards.
type StatsService struct {
	users  *repository.UserRepository
	ledger *repository.TransactionRepository
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(users *repository.UserRepository, ledger *repository.TransactionRepository) *StatsService {
	return &StatsService{users: users, ledger: ledger}
}

// UserStats computes a user's aggregate stats from their completed ledger
// entries.
func (s *StatsService) UserStats(ctx context.Context, userID int64) (*UserStats, error) {
	balance, err := s.users.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	wins, err := s.ledger.CountByType(ctx, userID, model.TxTypeWin)
	if err != nil {
		return nil, err
	}
	losses, err := s.ledger.CountByType(ctx, userID, model.TxTypeLoss)
	if err != nil {
		return nil, err
	}
	totalWon, err := s.ledger.TotalByType(ctx, userID, model.TxTypeWin)
	if err != nil {
		return nil, err
	}
	withdrawn, err := s.ledger.TotalByType(ctx, userID, model.TxTypeWithdraw)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		Balance:    balance,
		Wins:       wins,
		Losses:     losses,
		TotalWon:   totalWon,
		Withdrawn:  withdrawn,
		GamesTotal: wins + losses,
	}
	if stats.GamesTotal > 0 {
		stats.WinRate = float64(wins) / float64(stats.GamesTotal) * 100
	}
	return stats, nil
}

// History returns the user's most recent ledger entries, newest first.
func (s *StatsService) History(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	return s.ledger.GetByUser(ctx, userID, limit)
}

// leaderboardSize is how many entries each board shows.
const leaderboardSize = 7

// Winners ranks users by total win amount.
func (s *StatsService) Winners(ctx context.Context) ([]*model.WinsRank, error) {
	return s.ledger.GetLeaderboardByWins(ctx, leaderboardSize)
}

// Losers lists the users with the lowest balances.
func (s *StatsService) Losers(ctx context.Context) ([]*model.User, error) {
	return s.users.GetLowestBalances(ctx, leaderboardSize)
}
