package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"golden-dice-bot/internal/repository"
)

// Scheduler drives the daily clockwork: generating and announcing the
// golden number when quiet hours end, and broadcasting the notice when they
// start. It replaces external cron with an in-process loop.
type Scheduler struct {
	game     *GameService
	announce *Announcer
	settings *repository.SettingsStore

	lastGoldenDay string
	lastQuietDay  string
}

// NewScheduler creates a new Scheduler instance.
func NewScheduler(game *GameService, announce *Announcer, settings *repository.SettingsStore) *Scheduler {
	return &Scheduler{
		game:     game,
		announce: announce,
		settings: settings,
	}
}

// Run ticks once a minute until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Msg("Scheduler started")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().In(s.game.Location(ctx))
	clock := now.Format("15:04")
	day := now.Format("2006-01-02")

	quietStart := s.settings.Get(ctx, repository.SettingQuietHoursStart, "23:00")
	quietEnd := s.settings.Get(ctx, repository.SettingQuietHoursEnd, "00:00")

	// A fresh golden number greets the day when quiet hours end.
	if goldenDue(clock, quietEnd, day, s.lastGoldenDay) {
		s.lastGoldenDay = day
		if _, err := s.game.GetOrCreateDailyGolden(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled golden number generation failed")
			s.lastGoldenDay = ""
			return
		}
		if err := s.announce.AnnounceGolden(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled golden announcement failed")
		}
	}

	if quietNoticeDue(clock, quietStart, quietEnd, day, s.lastQuietDay) {
		s.lastQuietDay = day
		if err := s.announce.AnnounceQuietHours(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled quiet hours notice failed")
		}
	}
}

// goldenDue reports whether this tick should generate and announce the
// daily golden number.
func goldenDue(clock, quietEnd, day, lastDay string) bool {
	return clock >= quietEnd && day != lastDay
}

// quietNoticeDue reports whether this tick should broadcast the quiet-hours
// notice. Ticks are not aligned to wall-clock minutes, so the boundary
// compare is >= with a per-day latch rather than an exact-minute match.
// Equal bounds mean the quiet window is disabled, so no notice goes out.
func quietNoticeDue(clock, quietStart, quietEnd, day, lastDay string) bool {
	if quietStart == quietEnd {
		return false
	}
	return clock >= quietStart && day != lastDay
}
