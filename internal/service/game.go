// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"golden-dice-bot/internal/game/quiet"
	"golden-dice-bot/internal/game/score"
	"golden-dice-bot/internal/generator"
	"golden-dice-bot/internal/model"
	"golden-dice-bot/internal/pkg/db"
	"golden-dice-bot/internal/repository"
)

// Common errors for game operations.
var (
	ErrQuietHours          = errors.New("new sessions are not allowed during quiet hours")
	ErrActiveSessionExists = errors.New("an unfinished session already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSessionFinished     = errors.New("session already finished")
	ErrSessionPaused       = errors.New("session is paused")
	ErrAllRollsDone        = errors.New("all rolls are already done")
)

// DiceRoller delivers one dice outcome into a chat. Implementations may
// fail; the engine surfaces the failure without retrying.
type DiceRoller interface {
	Roll(ctx context.Context, chatID int64) (int, error)
}

// RollResult is what one roll reports back to the presentation layer.
type RollResult struct {
	SessionID    int64
	GoldenID     int64
	Finished     bool
	LastRoll     int
	RollsCount   int
	ResultDigits string
	Award        int64
	Exact        bool
	MatchCount   int
	// GoldenNumber is revealed only once the session is finished.
	GoldenNumber string
}

// GameService owns the per-user session lifecycle and the golden number
// lifecycle. Every command mutates state inside a single database
// transaction so that a crash mid-command cannot leave a roll counted
// without its roll record, or an award granted without its ledger entry.
type GameService struct {
	pool     *db.Pool
	users    *repository.UserRepository
	goldens  *repository.GoldenRepository
	sessions *repository.SessionRepository
	ledger   *repository.TransactionRepository
	settings *repository.SettingsStore
	gen      generator.NumberGenerator
	dice     DiceRoller
}

// NewGameService creates a new GameService instance.
func NewGameService(
	pool *db.Pool,
	users *repository.UserRepository,
	goldens *repository.GoldenRepository,
	sessions *repository.SessionRepository,
	ledger *repository.TransactionRepository,
	settings *repository.SettingsStore,
	gen generator.NumberGenerator,
	dice DiceRoller,
) *GameService {
	return &GameService{
		pool:     pool,
		users:    users,
		goldens:  goldens,
		sessions: sessions,
		ledger:   ledger,
		settings: settings,
		gen:      gen,
		dice:     dice,
	}
}

// Location returns the configured game timezone, falling back to UTC.
func (s *GameService) Location(ctx context.Context) *time.Location {
	name := s.settings.Get(ctx, repository.SettingTimezone, "UTC")
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Str("timezone", name).Msg("Unknown timezone, falling back to UTC")
		return time.UTC
	}
	return loc
}

// today returns the current calendar date in the configured timezone,
// normalized to UTC midnight for DATE column comparisons.
func (s *GameService) today(ctx context.Context) time.Time {
	now := time.Now().In(s.Location(ctx))
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// QuietWindow builds the quiet-hours gate from settings.
func (s *GameService) QuietWindow(ctx context.Context) quiet.Window {
	return quiet.Window{
		Start:    s.settings.Get(ctx, repository.SettingQuietHoursStart, "23:00"),
		End:      s.settings.Get(ctx, repository.SettingQuietHoursEnd, "00:00"),
		Override: s.settings.GetBool(ctx, repository.SettingQuietHoursActive, false),
	}
}

// tiers builds the payout configuration from settings.
func (s *GameService) tiers(ctx context.Context) score.Tiers {
	return score.Tiers{
		Match3:       s.settings.GetInt(ctx, repository.SettingScoreMatch3, score.DefaultMatch3),
		Match5:       s.settings.GetInt(ctx, repository.SettingScoreMatch5, score.DefaultMatch5),
		AllUnordered: s.settings.GetInt(ctx, repository.SettingScoreAllUnordered, score.DefaultAllUnordered),
		ExactOrdered: s.settings.GetInt(ctx, repository.SettingScoreExactOrdered, score.DefaultExactOrdered),
	}
}

// GetOrCreateDailyGolden returns today's golden number, generating and
// persisting one if the day has none yet. Idempotent within a day: repeated
// calls return the same row.
func (s *GameService) GetOrCreateDailyGolden(ctx context.Context) (*model.GoldenNumber, error) {
	today := s.today(ctx)

	existing, err := s.goldens.ForDate(ctx, today)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrGoldenNotFound) {
		return nil, err
	}

	number, source := s.generateNumber(ctx)
	golden, err := s.goldens.Create(ctx, number, source, today)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("golden_id", golden.ID).
		Str("source", source).
		Time("valid_date", today).
		Msg("Golden number created")
	return golden, nil
}

// ForceCreateDailyGolden always generates and persists a new golden number
// for today, superseding any existing one. Used for admin-triggered
// regeneration; the admin is responsible for re-announcing.
func (s *GameService) ForceCreateDailyGolden(ctx context.Context) (*model.GoldenNumber, error) {
	today := s.today(ctx)

	number, source := s.generateNumber(ctx)
	golden, err := s.goldens.Create(ctx, number, source, today)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("golden_id", golden.ID).
		Str("source", source).
		Msg("Golden number force-created")
	return golden, nil
}

// generateNumber obtains a candidate from the generator and validates its
// shape. A malformed candidate is discarded wholesale, never repaired, so
// the persisted value always satisfies the digit alphabet invariant.
func (s *GameService) generateNumber(ctx context.Context) (number, source string) {
	if s.gen == nil {
		return generator.RandomNumber(), model.GoldenSourceFallback
	}

	genModel := s.settings.Get(ctx, repository.SettingOpenAIModel, "gpt-5")

	candidate, err := s.gen.GenerateCandidate(ctx, genModel)
	if err == nil && generator.ValidCandidate(candidate) {
		return candidate, model.GoldenSourceGenerated
	}
	if err != nil {
		log.Warn().Err(err).Msg("Golden number generation failed, using local randomness")
	} else {
		log.Warn().Str("candidate", candidate).Msg("Generated candidate malformed, using local randomness")
	}
	return generator.RandomNumber(), model.GoldenSourceFallback
}

// GetActiveSession returns the user's most recent unfinished session, or
// repository.ErrSessionNotFound.
func (s *GameService) GetActiveSession(ctx context.Context, userID int64) (*model.GameSession, error) {
	return s.sessions.GetActiveByUser(ctx, userID)
}

// StartSession opens a new session for the user against today's golden
// number. Refused during quiet hours and while an unfinished session
// exists. A configured start cost is debited atomically with the session
// row and its fee ledger entry; insufficient balance aborts before any
// mutation.
func (s *GameService) StartSession(ctx context.Context, userID int64) (*model.GameSession, error) {
	if s.QuietWindow(ctx).Active(time.Now().In(s.Location(ctx))) {
		return nil, ErrQuietHours
	}

	if _, err := s.sessions.GetActiveByUser(ctx, userID); err == nil {
		return nil, ErrActiveSessionExists
	} else if !errors.Is(err, repository.ErrSessionNotFound) {
		return nil, err
	}

	golden, err := s.GetOrCreateDailyGolden(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain golden number: %w", err)
	}

	startCost := s.settings.GetInt(ctx, repository.SettingGameStartCost, 0)

	var session *model.GameSession
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if startCost > 0 {
			if err := s.debitFee(ctx, tx, userID, startCost, golden.ID, nil,
				fmt.Sprintf("Game start fee: %d coins", startCost)); err != nil {
				return err
			}
		}

		created, err := s.sessions.WithTx(tx).Create(ctx, userID, golden.ID)
		if err != nil {
			return err
		}
		session = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", userID).
		Int64("session_id", session.ID).
		Int64("golden_id", golden.ID).
		Msg("Session started")
	return session, nil
}

// RollNext performs one roll of the session: charges the roll cost,
// delivers a dice outcome into the chat, records the roll, and finishes the
// session with scoring when the last slot is filled. All state mutations of
// the roll share one database transaction; the dice delivery and the
// pacing delay happen outside it.
func (s *GameService) RollNext(ctx context.Context, sessionID, userID, chatID int64) (*RollResult, error) {
	session, err := s.sessions.GetByIDAndUser(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Finished {
		return nil, ErrSessionFinished
	}
	if session.Paused {
		return nil, ErrSessionPaused
	}
	if session.RollsCount >= model.GoldenDigits {
		return nil, ErrAllRollsDone
	}

	// Abort before the dice leaves the cup so a failed charge never
	// consumes a roll slot.
	rollCost := s.settings.GetInt(ctx, repository.SettingRollCost, 0)
	if rollCost > 0 {
		balance, err := s.users.GetBalance(ctx, userID)
		if err != nil {
			return nil, err
		}
		if balance < rollCost {
			return nil, ErrInsufficientBalance
		}
	}

	value, err := s.dice.Roll(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("dice delivery failed: %w", err)
	}

	s.pacingDelay(ctx)

	step := session.RollsCount + 1
	digits := session.ResultDigits + string(rune('0'+value))
	finished := step >= model.GoldenDigits

	result := &RollResult{
		SessionID:    sessionID,
		GoldenID:     session.GoldenID,
		Finished:     finished,
		LastRoll:     value,
		RollsCount:   step,
		ResultDigits: digits,
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if rollCost > 0 {
			sessionRef := sessionID
			if err := s.debitFee(ctx, tx, userID, rollCost, session.GoldenID, &sessionRef,
				fmt.Sprintf("Roll fee: %d coins", rollCost)); err != nil {
				return err
			}
		}

		sessions := s.sessions.WithTx(tx)
		if _, err := sessions.InsertRoll(ctx, sessionID, userID, value, step, rollCost); err != nil {
			return err
		}
		if err := sessions.ApplyRoll(ctx, sessionID, digits, step, model.GoldenDigits-step); err != nil {
			return err
		}

		if finished {
			return s.settle(ctx, tx, session, digits, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// settle scores a completed session and posts exactly one ledger entry:
// a win carrying the award, or a zero-amount loss annotated with the match
// count. Runs inside the roll's transaction.
func (s *GameService) settle(ctx context.Context, tx pgx.Tx, session *model.GameSession, digits string, result *RollResult) error {
	golden, err := s.goldens.WithTx(tx).GetByID(ctx, session.GoldenID)
	if err != nil {
		return err
	}

	res := score.Compute(golden.Number, digits, s.tiers(ctx))
	result.Award = res.Award
	result.Exact = res.Exact
	result.MatchCount = res.MatchCount
	result.GoldenNumber = golden.Number

	sessions := s.sessions.WithTx(tx)
	if err := sessions.Finish(ctx, session.ID, res.Award); err != nil {
		return err
	}

	ledger := s.ledger.WithTx(tx)
	sessionRef := session.ID
	goldenRef := golden.ID
	if res.Award > 0 {
		if _, err := s.users.WithTx(tx).AddBalance(ctx, session.UserID, res.Award); err != nil {
			return err
		}
		desc := fmt.Sprintf("Won %d/%d digits match", res.MatchCount, model.GoldenDigits)
		if _, err := ledger.Create(ctx, session.UserID, model.TxTypeWin, res.Award, &goldenRef, &sessionRef, desc, model.TxStatusCompleted); err != nil {
			return err
		}
	} else {
		desc := fmt.Sprintf("Lost: %d/%d digits match", res.MatchCount, model.GoldenDigits)
		if _, err := ledger.Create(ctx, session.UserID, model.TxTypeLoss, 0, &goldenRef, &sessionRef, desc, model.TxStatusCompleted); err != nil {
			return err
		}
	}

	log.Info().
		Int64("user_id", session.UserID).
		Int64("session_id", session.ID).
		Int64("award", res.Award).
		Bool("exact", res.Exact).
		Int("match_count", res.MatchCount).
		Msg("Session finished")
	return nil
}

// debitFee charges a fee inside the transaction, recording the matching
// loss ledger entry. Fails with ErrInsufficientBalance before mutating
// anything if the balance cannot cover the fee.
func (s *GameService) debitFee(ctx context.Context, tx pgx.Tx, userID, amount, goldenID int64, sessionID *int64, description string) error {
	users := s.users.WithTx(tx)

	balance, err := users.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientBalance
	}

	if _, err := users.AddBalance(ctx, userID, -amount); err != nil {
		return err
	}

	goldenRef := goldenID
	_, err = s.ledger.WithTx(tx).Create(ctx, userID, model.TxTypeLoss, amount, &goldenRef, sessionID, description, model.TxStatusCompleted)
	return err
}

// pacingDelay waits the configured time between the dice delivery and the
// report, so the chat animation finishes before the result message lands.
func (s *GameService) pacingDelay(ctx context.Context) {
	sleepMs := s.settings.GetInt(ctx, repository.SettingSleepMsBetweenRolls, 3000)
	if sleepMs <= 0 {
		return
	}
	timer := time.NewTimer(time.Duration(sleepMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// PauseSession pauses an unfinished session. Returns false for a finished,
// missing, or foreign session.
func (s *GameService) PauseSession(ctx context.Context, sessionID, userID int64) (bool, error) {
	return s.sessions.Pause(ctx, sessionID, userID)
}

// ResumeSession clears a session's paused flag. Same no-op contract as
// PauseSession.
func (s *GameService) ResumeSession(ctx context.Context, sessionID, userID int64) (bool, error) {
	return s.sessions.Resume(ctx, sessionID, userID)
}

// StopSession abandons an unfinished session: finished with zero award,
// no scoring.
func (s *GameService) StopSession(ctx context.Context, sessionID, userID int64) (bool, error) {
	return s.sessions.Stop(ctx, sessionID, userID)
}
