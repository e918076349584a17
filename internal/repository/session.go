package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"golden-dice-bot/internal/model"
)

// Common errors for session operations.
var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepository handles game session and roll persistence.
type SessionRepository struct {
	db Querier
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db Querier) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

const sessionColumns = `id, user_id, golden_id, rolls_count, throws_remaining, result_digits, finished, paused, score_awarded, paused_at, created_at, updated_at`

func scanSession(row pgx.Row) (*model.GameSession, error) {
	var s model.GameSession
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.GoldenID,
		&s.RollsCount,
		&s.ThrowsRemaining,
		&s.ResultDigits,
		&s.Finished,
		&s.Paused,
		&s.ScoreAwarded,
		&s.PausedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a fresh session bound to the given golden number.
func (r *SessionRepository) Create(ctx context.Context, userID, goldenID int64) (*model.GameSession, error) {
	const query = `
		INSERT INTO game_sessions (user_id, golden_id, rolls_count, throws_remaining, result_digits, finished, paused, score_awarded, created_at, updated_at)
		VALUES ($1, $2, 0, $3, '', FALSE, FALSE, 0, NOW(), NOW())
		RETURNING ` + sessionColumns

	s, err := scanSession(r.db.QueryRow(ctx, query, userID, goldenID, model.GoldenDigits))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// GetByIDAndUser retrieves a session scoped by the (session id, user id)
// pair. A session owned by another user is reported as not found.
func (r *SessionRepository) GetByIDAndUser(ctx context.Context, sessionID, userID int64) (*model.GameSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM game_sessions WHERE id = $1 AND user_id = $2`

	s, err := scanSession(r.db.QueryRow(ctx, query, sessionID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetActiveByUser retrieves the user's most recent unfinished session.
// Returns ErrSessionNotFound if the user has no open session.
func (r *SessionRepository) GetActiveByUser(ctx context.Context, userID int64) (*model.GameSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM game_sessions
		WHERE user_id = $1 AND finished = FALSE
		ORDER BY id DESC
		LIMIT 1
	`

	s, err := scanSession(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, nil
}

// ApplyRoll records the progress of one roll: the grown digit string and the
// advanced counters.
func (r *SessionRepository) ApplyRoll(ctx context.Context, sessionID int64, resultDigits string, rollsCount, throwsRemaining int) error {
	const query = `
		UPDATE game_sessions
		SET result_digits = $2, rolls_count = $3, throws_remaining = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, sessionID, resultDigits, rollsCount, throwsRemaining)
	if err != nil {
		return fmt.Errorf("failed to apply roll: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Finish marks a session finished with the awarded score. The finished flag
// is terminal; a finished session is never updated again.
func (r *SessionRepository) Finish(ctx context.Context, sessionID int64, score int64) error {
	const query = `
		UPDATE game_sessions
		SET finished = TRUE, score_awarded = $2, updated_at = NOW()
		WHERE id = $1 AND finished = FALSE
	`

	result, err := r.db.Exec(ctx, query, sessionID, score)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Pause marks an unfinished session paused. Returns false if the session is
// finished, missing, or owned by another user.
func (r *SessionRepository) Pause(ctx context.Context, sessionID, userID int64) (bool, error) {
	const query = `
		UPDATE game_sessions
		SET paused = TRUE, paused_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND finished = FALSE
	`

	result, err := r.db.Exec(ctx, query, sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to pause session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Resume clears the paused flag of an unfinished session. Same no-op
// contract as Pause.
func (r *SessionRepository) Resume(ctx context.Context, sessionID, userID int64) (bool, error) {
	const query = `
		UPDATE game_sessions
		SET paused = FALSE, paused_at = NULL, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND finished = FALSE
	`

	result, err := r.db.Exec(ctx, query, sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to resume session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Stop forces an unfinished session into the finished state without scoring.
func (r *SessionRepository) Stop(ctx context.Context, sessionID, userID int64) (bool, error) {
	const query = `
		UPDATE game_sessions
		SET finished = TRUE, score_awarded = 0, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND finished = FALSE
	`

	result, err := r.db.Exec(ctx, query, sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to stop session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// InsertRoll appends a roll record, one row per dice outcome.
func (r *SessionRepository) InsertRoll(ctx context.Context, sessionID, userID int64, result, stepIndex int, cost int64) (*model.Roll, error) {
	const query = `
		INSERT INTO rolls (session_id, user_id, result, step_index, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, session_id, user_id, result, step_index, cost, created_at
	`

	var roll model.Roll
	err := r.db.QueryRow(ctx, query, sessionID, userID, result, stepIndex, cost).Scan(
		&roll.ID,
		&roll.SessionID,
		&roll.UserID,
		&roll.Result,
		&roll.StepIndex,
		&roll.Cost,
		&roll.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert roll: %w", err)
	}
	return &roll, nil
}

// GetRolls retrieves the rolls of a session in roll order.
func (r *SessionRepository) GetRolls(ctx context.Context, sessionID int64) ([]*model.Roll, error) {
	const query = `
		SELECT id, session_id, user_id, result, step_index, cost, created_at
		FROM rolls
		WHERE session_id = $1
		ORDER BY step_index ASC
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rolls: %w", err)
	}
	defer rows.Close()

	var rolls []*model.Roll
	for rows.Next() {
		var roll model.Roll
		err := rows.Scan(
			&roll.ID,
			&roll.SessionID,
			&roll.UserID,
			&roll.Result,
			&roll.StepIndex,
			&roll.Cost,
			&roll.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roll: %w", err)
		}
		rolls = append(rolls, &roll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rolls: %w", err)
	}
	return rolls, nil
}
