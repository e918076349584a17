package repository

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// Recognized settings keys. All values are stored as strings; typed getters
// parse on the way out.
const (
	SettingDepositWalletAddress = "deposit_wallet_address"
	SettingSleepMsBetweenRolls  = "sleep_ms_between_rolls"
	SettingQuietHoursStart      = "quiet_hours_start"
	SettingQuietHoursEnd        = "quiet_hours_end"
	SettingQuietHoursActive     = "quiet_hours_active"
	SettingScoreMatch3          = "score_match_3"
	SettingScoreMatch5          = "score_match_5"
	SettingScoreAllUnordered    = "score_all_unordered"
	SettingScoreExactOrdered    = "score_exact_ordered"
	SettingStartCoins           = "start_coins"
	SettingWithdrawMinBalance   = "withdraw_min_balance"
	SettingGameStartCost        = "game_start_cost"
	SettingRollCost             = "roll_cost"
	SettingOpenAIModel          = "openai_model"
	SettingTimezone             = "timezone"
)

var knownSettingKeys = []string{
	SettingDepositWalletAddress,
	SettingSleepMsBetweenRolls,
	SettingQuietHoursStart,
	SettingQuietHoursEnd,
	SettingQuietHoursActive,
	SettingScoreMatch3,
	SettingScoreMatch5,
	SettingScoreAllUnordered,
	SettingScoreExactOrdered,
	SettingStartCoins,
	SettingWithdrawMinBalance,
	SettingGameStartCost,
	SettingRollCost,
	SettingOpenAIModel,
	SettingTimezone,
}

// KnownSettingKeys lists every recognized settings key.
func KnownSettingKeys() []string {
	keys := make([]string, len(knownSettingKeys))
	copy(keys, knownSettingKeys)
	return keys
}

// IsKnownSettingKey reports whether key is one of the recognized settings.
func IsKnownSettingKey(key string) bool {
	for _, k := range knownSettingKeys {
		if k == key {
			return true
		}
	}
	return false
}

// SettingsStore serves game-tunable settings from the settings table with a
// small in-process cache. It is injected into services explicitly; there is
// no package-level instance.
//
// Lookup failures fall back to the caller's default so a transient database
// error never breaks a command mid-flight.
type SettingsStore struct {
	db Querier

	mu    sync.RWMutex
	cache map[string]string
}

// NewSettingsStore creates a new SettingsStore instance.
func NewSettingsStore(db Querier) *SettingsStore {
	return &SettingsStore{
		db:    db,
		cache: make(map[string]string),
	}
}

// Get returns the value for key, or def if the key is unset or the lookup
// fails.
func (s *SettingsStore) Get(ctx context.Context, key, def string) string {
	s.mu.RLock()
	if v, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	const query = `SELECT value FROM settings WHERE key = $1`

	var value string
	if err := s.db.QueryRow(ctx, query, key).Scan(&value); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Settings lookup fell back to default")
		return def
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
	return value
}

// GetInt returns the integer value for key, or def on unset/unparsable.
func (s *SettingsStore) GetInt(ctx context.Context, key string, def int64) int64 {
	raw := s.Get(ctx, key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Setting is not an integer, using default")
		return def
	}
	return v
}

// GetBool interprets "1" and "true" as true, anything else as false.
func (s *SettingsStore) GetBool(ctx context.Context, key string, def bool) bool {
	raw := s.Get(ctx, key, "")
	if raw == "" {
		return def
	}
	return raw == "1" || raw == "true"
}

// Set writes a setting and refreshes the cache entry.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2
	`

	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
	return nil
}

// Invalidate drops the cached value for key, forcing the next Get to hit
// the database.
func (s *SettingsStore) Invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}
