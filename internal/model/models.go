// Package model defines the data models for the Golden Dice bot.
package model

import "time"

// GoldenDigits is the number of digits in a golden number and the number
// of rolls in a session.
const GoldenDigits = 7

// User represents a Telegram user account in the game system.
type User struct {
	TelegramID    int64     `db:"telegram_id"`
	Username      string    `db:"username"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	Balance       int64     `db:"balance"`
	WalletAddress string    `db:"wallet_address"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// DisplayName returns the best available human-readable name for a user.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		if u.LastName != "" {
			return u.FirstName + " " + u.LastName
		}
		return u.FirstName
	}
	return ""
}

// GoldenNumber is the day's target digit sequence users try to match.
// Immutable once created except for the Announced flag.
type GoldenNumber struct {
	ID        int64     `db:"id"`
	Number    string    `db:"number"`
	ValidDate time.Time `db:"valid_date"`
	Source    string    `db:"source"`
	Announced bool      `db:"announced"`
	CreatedAt time.Time `db:"created_at"`
}

// Golden number source tags.
const (
	GoldenSourceGenerated = "openai"   // Candidate produced by the text generator
	GoldenSourceFallback  = "fallback" // Local uniform random fallback
)

// GameSession is one user's bounded attempt at matching the golden number.
type GameSession struct {
	ID              int64      `db:"id"`
	UserID          int64      `db:"user_id"`
	GoldenID        int64      `db:"golden_id"`
	RollsCount      int        `db:"rolls_count"`
	ThrowsRemaining int        `db:"throws_remaining"`
	ResultDigits    string     `db:"result_digits"`
	Finished        bool       `db:"finished"`
	Paused          bool       `db:"paused"`
	ScoreAwarded    int64      `db:"score_awarded"`
	PausedAt        *time.Time `db:"paused_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Roll is one dice outcome within a session. Append-only.
type Roll struct {
	ID        int64     `db:"id"`
	SessionID int64     `db:"session_id"`
	UserID    int64     `db:"user_id"`
	Result    int       `db:"result"`
	StepIndex int       `db:"step_index"`
	Cost      int64     `db:"cost"`
	CreatedAt time.Time `db:"created_at"`
}

// Transaction represents a ledger entry. Append-only except for status
// transitions on withdrawal entries. Amount is always stored non-negative;
// the sign of the balance effect is implied by Type.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Type        string    `db:"type"`
	Amount      int64     `db:"amount"`
	GoldenID    *int64    `db:"golden_id"`
	SessionID   *int64    `db:"session_id"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing ledger entries.
const (
	TxTypeWin      = "win"      // Session award
	TxTypeLoss     = "loss"     // Fees and zero-award session results
	TxTypeDeposit  = "deposit"  // Manually recorded deposit
	TxTypeWithdraw = "withdraw" // Withdrawal request (pending until resolved)
	TxTypeBonus    = "bonus"    // Administrative bonus
	TxTypeRefund   = "refund"   // Credit back for a failed withdrawal
)

// Transaction statuses.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// IsCreditType reports whether entries of the given type credit the balance.
func IsCreditType(txType string) bool {
	switch txType {
	case TxTypeWin, TxTypeDeposit, TxTypeBonus, TxTypeRefund:
		return true
	}
	return false
}

// WinsRank is a leaderboard row aggregated from completed win/loss entries.
type WinsRank struct {
	UserID    int64  `db:"user_id"`
	Username  string `db:"username"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Balance   int64  `db:"balance"`
	TotalWins int64  `db:"total_wins"`
	WinCount  int64  `db:"win_count"`
	LossCount int64  `db:"loss_count"`
}

// DisplayName returns the best available human-readable name for a
// leaderboard row.
func (r *WinsRank) DisplayName() string {
	u := User{Username: r.Username, FirstName: r.FirstName, LastName: r.LastName}
	if name := u.DisplayName(); name != "" {
		return name
	}
	return "anonymous"
}
