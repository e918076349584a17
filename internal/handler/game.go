// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"golden-dice-bot/internal/generator"
	"golden-dice-bot/internal/model"
	"golden-dice-bot/internal/pkg/lock"
	"golden-dice-bot/internal/repository"
	"golden-dice-bot/internal/service"
)

// GameHandler handles session lifecycle commands.
type GameHandler struct {
	gameService *service.GameService
	userService *service.UserService
	userLock    *lock.UserLock
	settings    *repository.SettingsStore

	// congrats is optional: nil means exact matches get the stock line.
	congrats generator.Congratulator
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(
	gameService *service.GameService,
	userService *service.UserService,
	userLock *lock.UserLock,
	settings *repository.SettingsStore,
	congrats generator.Congratulator,
) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		userService: userService,
		userLock:    userLock,
		settings:    settings,
		congrats:    congrats,
	}
}

// HandleStartGame handles the /startgame command.
// Opens a new session against today's golden number.
func (h *GameHandler) HandleStartGame(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	// Balance-modifying command, one at a time per user. First contact may
	// register the user with the welcome bonus, so that happens under the
	// lock too.
	if !h.userLock.TryLock(sender.ID) {
		return c.Reply("⏳ Hold on, your previous action is still being processed")
	}
	defer h.userLock.Unlock(sender.ID)

	if _, err := h.userService.EnsureUser(ctx, sender.ID, sender.Username, sender.FirstName, sender.LastName); err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}

	session, err := h.gameService.StartSession(ctx, sender.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuietHours):
			return c.Reply("🌙 It's quiet hours right now. Come back in the morning!")
		case errors.Is(err, service.ErrActiveSessionExists):
			return c.Reply("🎲 You already have a game in progress. Send /next to roll, or /stopgame to abandon it.")
		case errors.Is(err, service.ErrInsufficientBalance):
			return c.Reply("💸 Not enough coins to start a game")
		}
		return c.Reply("❌ Failed to start the game, please try again later")
	}

	return c.Reply(fmt.Sprintf(
		"🎰 Game #%d started!\n\n"+
			"Roll the dice %d times and match today's golden number.\n"+
			"Send /next to make your first roll.",
		session.ID, model.GoldenDigits,
	), mainKeyboard())
}

// HandleNext handles the /next command: one roll of the active session.
func (h *GameHandler) HandleNext(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil || c.Chat() == nil {
		return nil
	}

	// The dice animation takes seconds; a second /next in that window must
	// not double-charge, so refuse instead of queueing.
	if !h.userLock.TryLock(sender.ID) {
		return c.Reply("🎲 Your dice is still rolling, wait for it to land")
	}
	defer h.userLock.Unlock(sender.ID)

	session, err := h.gameService.GetActiveSession(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.Reply("🎰 No game in progress. Send /startgame to begin!")
		}
		return c.Reply("❌ Something went wrong, please try again later")
	}

	result, err := h.gameService.RollNext(ctx, session.ID, sender.ID, c.Chat().ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionPaused):
			return c.Reply("⏸ Your game is paused. Send /resume to continue.")
		case errors.Is(err, service.ErrSessionFinished), errors.Is(err, service.ErrAllRollsDone):
			return c.Reply("🏁 That game is already over. Send /startgame for a new one!")
		case errors.Is(err, service.ErrInsufficientBalance):
			return c.Reply("💸 Not enough coins for this roll")
		}
		return c.Reply("❌ The roll failed, please try again")
	}

	if !result.Finished {
		return c.Reply(fmt.Sprintf(
			"🎲 Roll %d/%d: %d\n"+
				"Your digits so far: %s\n\n"+
				"Send /next to keep rolling.",
			result.RollsCount, model.GoldenDigits, result.LastRoll, result.ResultDigits,
		))
	}

	msg := finishMessage(result)
	if result.Exact {
		if extra := h.congratsLine(ctx, result.ResultDigits); extra != "" {
			msg += "\n\n" + extra
		}
	}
	return c.Reply(msg)
}

// congratsLine asks the optional congratulation capability for a personal
// line on an exact match. Failures degrade to the stock message.
func (h *GameHandler) congratsLine(ctx context.Context, digits string) string {
	if h.congrats == nil {
		return ""
	}
	genModel := h.settings.Get(ctx, repository.SettingOpenAIModel, "gpt-5")
	text, err := h.congrats.CongratsText(ctx, genModel, digits)
	if err != nil {
		return ""
	}
	return text
}

// finishMessage formats the end-of-session report.
func finishMessage(result *service.RollResult) string {
	header := fmt.Sprintf(
		"🏁 Game over!\n"+
			"━━━━━━━━━━━━━━━\n"+
			"🎯 Golden number: %s\n"+
			"🎲 Your rolls: %s\n",
		result.GoldenNumber, result.ResultDigits,
	)

	switch {
	case result.Exact:
		return header + fmt.Sprintf(
			"━━━━━━━━━━━━━━━\n"+
				"🌟 JACKPOT! Exact match!\n"+
				"💰 You won %d coins!",
			result.Award,
		)
	case result.Award > 0:
		return header + fmt.Sprintf(
			"━━━━━━━━━━━━━━━\n"+
				"✨ %d digits matched!\n"+
				"💰 You won %d coins!",
			result.MatchCount, result.Award,
		)
	default:
		return header + fmt.Sprintf(
			"━━━━━━━━━━━━━━━\n"+
				"😿 Only %d digits matched. Better luck tomorrow!",
			result.MatchCount,
		)
	}
}

// HandlePause handles the /pause command.
func (h *GameHandler) HandlePause(c tele.Context) error {
	return h.toggle(c, "pause")
}

// HandleResume handles the /resume command.
func (h *GameHandler) HandleResume(c tele.Context) error {
	return h.toggle(c, "resume")
}

// HandleStopGame handles the /stopgame command: abandon without scoring.
func (h *GameHandler) HandleStopGame(c tele.Context) error {
	return h.toggle(c, "stop")
}

func (h *GameHandler) toggle(c tele.Context, action string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	session, err := h.gameService.GetActiveSession(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.Reply("🎰 No game in progress. Send /startgame to begin!")
		}
		return c.Reply("❌ Something went wrong, please try again later")
	}

	var ok bool
	switch action {
	case "pause":
		ok, err = h.gameService.PauseSession(ctx, session.ID, sender.ID)
	case "resume":
		ok, err = h.gameService.ResumeSession(ctx, session.ID, sender.ID)
	case "stop":
		ok, err = h.gameService.StopSession(ctx, session.ID, sender.ID)
	}
	if err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}
	if !ok {
		return c.Reply("🏁 That game is already over")
	}

	switch action {
	case "pause":
		return c.Reply("⏸ Game paused. Send /resume whenever you're ready.")
	case "resume":
		return c.Reply("▶️ Game resumed. Send /next to roll!")
	default:
		return c.Reply("🛑 Game abandoned. Send /startgame to try again.")
	}
}

// HandleStatus handles the /status command.
func (h *GameHandler) HandleStatus(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	session, err := h.gameService.GetActiveSession(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.Reply("🎰 No game in progress. Send /startgame to begin!")
		}
		return c.Reply("❌ Something went wrong, please try again later")
	}

	state := "in progress"
	if session.Paused {
		state = "paused"
	}

	digits := session.ResultDigits
	if digits == "" {
		digits = "—"
	}

	return c.Reply(fmt.Sprintf(
		"📋 Game #%d (%s)\n"+
			"━━━━━━━━━━━━━━━\n"+
			"🎲 Rolls made: %d/%d\n"+
			"🔢 Your digits: %s\n"+
			"⏳ Rolls left: %d",
		session.ID, state,
		session.RollsCount, model.GoldenDigits,
		digits,
		session.ThrowsRemaining,
	))
}

// RouteText maps reply-keyboard button labels onto their commands so the
// keyboard and the slash commands behave identically.
func (h *GameHandler) RouteText(c tele.Context, account *AccountHandler, ranking *RankingHandler) error {
	switch strings.TrimSpace(c.Text()) {
	case btnNewGame:
		return h.HandleStartGame(c)
	case btnRoll:
		return h.HandleNext(c)
	case btnPause:
		return h.HandlePause(c)
	case btnResume:
		return h.HandleResume(c)
	case btnStatus:
		return h.HandleStatus(c)
	case btnWallet:
		return account.HandleWallet(c)
	case btnStats:
		return account.HandleStats(c)
	case btnLeaderboard:
		return ranking.HandleLeaderboard(c)
	case btnHelp:
		return account.HandleHelp(c)
	}
	return nil
}
