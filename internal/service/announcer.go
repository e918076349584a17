package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"golden-dice-bot/internal/generator"
	"golden-dice-bot/internal/repository"
)

// MessageSender delivers a text message to a chat. Satisfied by the bot
// layer; kept minimal so broadcasts are testable without Telegram.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// fanOutPace spaces broadcast sends so the bot stays under the Telegram
// rate limit.
const fanOutPace = 50 * time.Millisecond

const (
	defaultAnnouncement = "🎲 A new golden number has been drawn! Roll the dice and match it to win. Send /startgame to play."
	quietHoursNotice    = "🌙 Quiet hours have started. New games are paused until morning. Balances and pending withdrawals are unaffected."
)

// Announcer broadcasts announcements to every known user: the daily golden
// number teaser and the quiet-hours notice. Fan-out is sequential,
// best-effort per recipient, and paced.
type Announcer struct {
	users    *repository.UserRepository
	goldens  *repository.GoldenRepository
	settings *repository.SettingsStore
	writer   generator.Copywriter
	sender   MessageSender
}

// NewAnnouncer creates a new Announcer instance.
func NewAnnouncer(
	users *repository.UserRepository,
	goldens *repository.GoldenRepository,
	settings *repository.SettingsStore,
	writer generator.Copywriter,
	sender MessageSender,
) *Announcer {
	return &Announcer{
		users:    users,
		goldens:  goldens,
		settings: settings,
		writer:   writer,
		sender:   sender,
	}
}

// AnnounceGolden broadcasts a teaser for the latest golden number, then
// marks it announced. A no-op when the latest golden is already announced
// or none exists. The teaser never contains the number itself.
func (a *Announcer) AnnounceGolden(ctx context.Context) error {
	golden, err := a.goldens.Latest(ctx)
	if errors.Is(err, repository.ErrGoldenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if golden.Announced {
		return nil
	}

	text := defaultAnnouncement
	if a.writer != nil {
		genModel := a.settings.Get(ctx, repository.SettingOpenAIModel, "gpt-5")
		if generated, err := a.writer.AnnouncementText(ctx, genModel); err == nil && generated != "" {
			text = generated
		} else if err != nil {
			log.Warn().Err(err).Msg("Announcement copy generation failed, using default text")
		}
	}

	sent, failed := a.broadcast(ctx, text)
	log.Info().
		Int64("golden_id", golden.ID).
		Int("sent", sent).
		Int("failed", failed).
		Msg("Golden number announced")

	return a.goldens.MarkAnnounced(ctx, golden.ID)
}

// AnnounceQuietHours broadcasts the quiet-hours maintenance notice.
func (a *Announcer) AnnounceQuietHours(ctx context.Context) error {
	sent, failed := a.broadcast(ctx, quietHoursNotice)
	log.Info().
		Int("sent", sent).
		Int("failed", failed).
		Msg("Quiet hours notice broadcast")
	return nil
}

// broadcast sends text to every known user sequentially. A failed send is
// logged and skipped; it never aborts the fan-out. Context cancellation
// stops the loop.
func (a *Announcer) broadcast(ctx context.Context, text string) (sent, failed int) {
	ids, err := a.users.ListIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list broadcast recipients")
		return 0, 0
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return sent, failed
		}
		if err := a.sender.SendMessage(ctx, id, text); err != nil {
			failed++
			log.Warn().Err(err).Int64("user_id", id).Msg("Broadcast send failed")
		} else {
			sent++
		}
		time.Sleep(fanOutPace)
	}
	return sent, failed
}
