// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"golden-dice-bot/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = runMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// runMigrations applies the database schema
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0,
			wallet_address VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS golden_numbers (
			id BIGSERIAL PRIMARY KEY,
			number VARCHAR(16) NOT NULL,
			valid_date DATE NOT NULL,
			source VARCHAR(32) NOT NULL,
			announced BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_sessions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			golden_id BIGINT NOT NULL REFERENCES golden_numbers(id),
			rolls_count INT NOT NULL DEFAULT 0,
			throws_remaining INT NOT NULL,
			result_digits VARCHAR(16) NOT NULL DEFAULT '',
			finished BOOLEAN NOT NULL DEFAULT FALSE,
			paused BOOLEAN NOT NULL DEFAULT FALSE,
			score_awarded BIGINT NOT NULL DEFAULT 0,
			paused_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rolls (
			id BIGSERIAL PRIMARY KEY,
			session_id BIGINT NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			result INT NOT NULL,
			step_index INT NOT NULL,
			cost BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			type VARCHAR(50) NOT NULL,
			amount BIGINT NOT NULL CHECK (amount >= 0),
			golden_id BIGINT,
			session_id BIGINT,
			description TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'completed',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	return err
}

func testDate() time.Time {
	return time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	// First contact creates the user with the initial balance
	user, err := repo.Upsert(ctx, 12345, "alice", "Alice", "A", 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), user.TelegramID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, int64(1000), user.Balance)
	assert.False(t, user.CreatedAt.IsZero())

	// A later upsert refreshes display fields but never the balance
	user, err = repo.Upsert(ctx, 12345, "alice_renamed", "Alice", "A", 5000)
	require.NoError(t, err)
	assert.Equal(t, "alice_renamed", user.Username)
	assert.Equal(t, int64(1000), user.Balance)
}

func TestUserRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, 12345, "alice", "", "", 1000)
	require.NoError(t, err)

	user, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), user.TelegramID)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_AddBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, 12345, "alice", "", "", 100)
	require.NoError(t, err)

	user, err := repo.AddBalance(ctx, 12345, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.Balance)

	user, err = repo.AddBalance(ctx, 12345, -100)
	require.NoError(t, err)
	assert.Equal(t, int64(50), user.Balance)

	// Decrements floor at zero instead of going negative
	user, err = repo.AddBalance(ctx, 12345, -1000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Balance)

	_, err = repo.AddBalance(ctx, 99999, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_SetWalletAddress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, 12345, "alice", "", "", 0)
	require.NoError(t, err)

	require.NoError(t, repo.SetWalletAddress(ctx, 12345, "UQAbc123def456ghi"))

	user, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "UQAbc123def456ghi", user.WalletAddress)

	err = repo.SetWalletAddress(ctx, 99999, "UQAbc123def456ghi")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_ListIDs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		_, err := repo.Upsert(ctx, id, "u", "", "", 0)
		require.NoError(t, err)
	}

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

// ============================================================================
// GoldenRepository Tests
// ============================================================================

func TestGoldenRepository_ForDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGoldenRepository(pool)
	ctx := context.Background()

	_, err := repo.ForDate(ctx, testDate())
	assert.ErrorIs(t, err, ErrGoldenNotFound)

	first, err := repo.Create(ctx, "1234561", "fallback", testDate())
	require.NoError(t, err)

	got, err := repo.ForDate(ctx, testDate())
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "1234561", got.Number)
	assert.False(t, got.Announced)

	// A forced regeneration inserts a newer row; lookups return the newest
	second, err := repo.Create(ctx, "6543211", "openai", testDate())
	require.NoError(t, err)

	got, err = repo.ForDate(ctx, testDate())
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "6543211", got.Number)

	// Another date stays independent
	_, err = repo.ForDate(ctx, testDate().AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrGoldenNotFound)
}

func TestGoldenRepository_MarkAnnounced(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGoldenRepository(pool)
	ctx := context.Background()

	g, err := repo.Create(ctx, "1234561", "fallback", testDate())
	require.NoError(t, err)

	require.NoError(t, repo.MarkAnnounced(ctx, g.ID))
	// Marking twice is harmless
	require.NoError(t, repo.MarkAnnounced(ctx, g.ID))

	got, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.Announced)
}

// ============================================================================
// SessionRepository Tests
// ============================================================================

func seedUserAndGolden(t *testing.T, pool *pgxpool.Pool, userID int64) *model.GoldenNumber {
	t.Helper()
	ctx := context.Background()

	_, err := NewUserRepository(pool).Upsert(ctx, userID, "player", "", "", 1000)
	require.NoError(t, err)

	golden, err := NewGoldenRepository(pool).Create(ctx, "1234561", "fallback", testDate())
	require.NoError(t, err)
	return golden
}

func TestSessionRepository_CreateAndRoll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()
	golden := seedUserAndGolden(t, pool, 12345)

	session, err := repo.Create(ctx, 12345, golden.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, session.RollsCount)
	assert.Equal(t, model.GoldenDigits, session.ThrowsRemaining)
	assert.Empty(t, session.ResultDigits)
	assert.False(t, session.Finished)

	_, err = repo.InsertRoll(ctx, session.ID, 12345, 4, 1, 0)
	require.NoError(t, err)
	require.NoError(t, repo.ApplyRoll(ctx, session.ID, "4", 1, model.GoldenDigits-1))

	got, err := repo.GetByIDAndUser(ctx, session.ID, 12345)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RollsCount)
	assert.Equal(t, model.GoldenDigits-1, got.ThrowsRemaining)
	assert.Equal(t, "4", got.ResultDigits)

	rolls, err := repo.GetRolls(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, rolls, 1)
	assert.Equal(t, 4, rolls[0].Result)
	assert.Equal(t, 1, rolls[0].StepIndex)
}

func TestSessionRepository_GetActiveByUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()
	golden := seedUserAndGolden(t, pool, 12345)

	_, err := repo.GetActiveByUser(ctx, 12345)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session, err := repo.Create(ctx, 12345, golden.ID)
	require.NoError(t, err)

	active, err := repo.GetActiveByUser(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, session.ID, active.ID)

	// Finishing removes it from the active lookup
	require.NoError(t, repo.Finish(ctx, session.ID, 0))
	_, err = repo.GetActiveByUser(ctx, 12345)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepository_PauseResumeStop(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSessionRepository(pool)
	ctx := context.Background()
	golden := seedUserAndGolden(t, pool, 12345)

	session, err := repo.Create(ctx, 12345, golden.ID)
	require.NoError(t, err)

	ok, err := repo.Pause(ctx, session.ID, 12345)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByIDAndUser(ctx, session.ID, 12345)
	require.NoError(t, err)
	assert.True(t, got.Paused)
	assert.NotNil(t, got.PausedAt)

	ok, err = repo.Resume(ctx, session.ID, 12345)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = repo.GetByIDAndUser(ctx, session.ID, 12345)
	require.NoError(t, err)
	assert.False(t, got.Paused)

	ok, err = repo.Stop(ctx, session.ID, 12345)
	require.NoError(t, err)
	assert.True(t, ok)

	// A stopped session is finished with no award and refuses the next stop
	got, err = repo.GetByIDAndUser(ctx, session.ID, 12345)
	require.NoError(t, err)
	assert.True(t, got.Finished)
	assert.Equal(t, int64(0), got.ScoreAwarded)

	ok, err = repo.Stop(ctx, session.ID, 12345)
	require.NoError(t, err)
	assert.False(t, ok)

	// Someone else's session is invisible to these operations
	ok, err = repo.Pause(ctx, session.ID, 99999)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository_CreateAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewTransactionRepository(pool)
	ctx := context.Background()
	seedUserAndGolden(t, pool, 12345)

	_, err := repo.Create(ctx, 12345, model.TxTypeWin, 30, nil, nil, "won", model.TxStatusCompleted)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 12345, model.TxTypeWin, 10000, nil, nil, "jackpot", model.TxStatusCompleted)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 12345, model.TxTypeLoss, 0, nil, nil, "lost", model.TxStatusCompleted)
	require.NoError(t, err)

	total, err := repo.TotalByType(ctx, 12345, model.TxTypeWin)
	require.NoError(t, err)
	assert.Equal(t, int64(10030), total)

	count, err := repo.CountByType(ctx, 12345, model.TxTypeWin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	entries, err := repo.GetByUser(ctx, 12345, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	// Newest first
	assert.Equal(t, model.TxTypeLoss, entries[0].Type)
}

func TestTransactionRepository_WithdrawalLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewTransactionRepository(pool)
	ctx := context.Background()
	seedUserAndGolden(t, pool, 12345)

	w, err := repo.Create(ctx, 12345, model.TxTypeWithdraw, 2000, nil, nil, "payout", model.TxStatusPending)
	require.NoError(t, err)

	pending, err := repo.GetPendingWithdrawals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, w.ID, pending[0].ID)

	moved, err := repo.TransitionStatus(ctx, w.ID, model.TxStatusPending, model.TxStatusFailed)
	require.NoError(t, err)
	assert.True(t, moved)

	pending, err = repo.GetPendingWithdrawals(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusFailed, got.Status)
}

func TestTransactionRepository_TransitionStatusGuard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewTransactionRepository(pool)
	ctx := context.Background()
	seedUserAndGolden(t, pool, 12345)

	w, err := repo.Create(ctx, 12345, model.TxTypeWithdraw, 500, nil, nil, "payout", model.TxStatusPending)
	require.NoError(t, err)

	// First resolution wins the row.
	moved, err := repo.TransitionStatus(ctx, w.ID, model.TxStatusPending, model.TxStatusFailed)
	require.NoError(t, err)
	assert.True(t, moved)

	// A second resolution finds no pending row, whatever it targets.
	moved, err = repo.TransitionStatus(ctx, w.ID, model.TxStatusPending, model.TxStatusFailed)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = repo.TransitionStatus(ctx, w.ID, model.TxStatusPending, model.TxStatusCompleted)
	require.NoError(t, err)
	assert.False(t, moved)

	// A missing ID behaves the same as a lost race.
	moved, err = repo.TransitionStatus(ctx, w.ID+1000, model.TxStatusPending, model.TxStatusFailed)
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusFailed, got.Status)
}

func TestTransactionRepository_Leaderboard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	repo := NewTransactionRepository(pool)
	ctx := context.Background()

	_, err := users.Upsert(ctx, 1, "first", "", "", 0)
	require.NoError(t, err)
	_, err = users.Upsert(ctx, 2, "second", "", "", 0)
	require.NoError(t, err)

	_, err = repo.Create(ctx, 1, model.TxTypeWin, 100, nil, nil, "", model.TxStatusCompleted)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 1, model.TxTypeLoss, 0, nil, nil, "", model.TxStatusCompleted)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, model.TxTypeWin, 30, nil, nil, "", model.TxStatusCompleted)
	require.NoError(t, err)
	// Pending entries never count
	_, err = repo.Create(ctx, 2, model.TxTypeWin, 9999, nil, nil, "", model.TxStatusPending)
	require.NoError(t, err)

	ranks, err := repo.GetLeaderboardByWins(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ranks, 2)

	assert.Equal(t, int64(1), ranks[0].UserID)
	assert.Equal(t, int64(100), ranks[0].TotalWins)
	assert.Equal(t, int64(1), ranks[0].WinCount)
	assert.Equal(t, int64(1), ranks[0].LossCount)

	assert.Equal(t, int64(2), ranks[1].UserID)
	assert.Equal(t, int64(30), ranks[1].TotalWins)
}

// ============================================================================
// SettingsStore Tests
// ============================================================================

func TestSettingsStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSettingsStore(pool)
	ctx := context.Background()

	// Unset keys fall back to the caller's default
	assert.Equal(t, "23:00", store.Get(ctx, SettingQuietHoursStart, "23:00"))
	assert.Equal(t, int64(3000), store.GetInt(ctx, SettingSleepMsBetweenRolls, 3000))
	assert.False(t, store.GetBool(ctx, SettingQuietHoursActive, false))

	require.NoError(t, store.Set(ctx, SettingQuietHoursStart, "22:30"))
	assert.Equal(t, "22:30", store.Get(ctx, SettingQuietHoursStart, "23:00"))

	require.NoError(t, store.Set(ctx, SettingRollCost, "25"))
	assert.Equal(t, int64(25), store.GetInt(ctx, SettingRollCost, 0))

	require.NoError(t, store.Set(ctx, SettingQuietHoursActive, "1"))
	assert.True(t, store.GetBool(ctx, SettingQuietHoursActive, false))

	// Overwrite goes through the cache too
	require.NoError(t, store.Set(ctx, SettingRollCost, "50"))
	assert.Equal(t, int64(50), store.GetInt(ctx, SettingRollCost, 0))

	// Unparsable integers fall back to the default
	require.NoError(t, store.Set(ctx, SettingStartCoins, "plenty"))
	assert.Equal(t, int64(1000), store.GetInt(ctx, SettingStartCoins, 1000))
}
