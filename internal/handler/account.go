package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"golden-dice-bot/internal/model"
	"golden-dice-bot/internal/pkg/lock"
	"golden-dice-bot/internal/repository"
	"golden-dice-bot/internal/service"
)

// AccountHandler handles account, wallet and stats commands.
type AccountHandler struct {
	userService     *service.UserService
	withdrawService *service.WithdrawService
	statsService    *service.StatsService
	settings        *repository.SettingsStore
	userLock        *lock.UserLock
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	userService *service.UserService,
	withdrawService *service.WithdrawService,
	statsService *service.StatsService,
	settings *repository.SettingsStore,
	userLock *lock.UserLock,
) *AccountHandler {
	return &AccountHandler{
		userService:     userService,
		withdrawService: withdrawService,
		statsService:    statsService,
		settings:        settings,
		userLock:        userLock,
	}
}

// HandleStart handles the /start command. Registers the user on first
// contact with the starting balance.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	user, err := h.userService.EnsureUser(ctx, sender.ID, sender.Username, sender.FirstName, sender.LastName)
	if err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}

	return c.Reply(fmt.Sprintf(
		"👋 Welcome, %s!\n\n"+
			"Every day a secret %d-digit golden number is drawn.\n"+
			"Roll the dice %d times and match it to win coins.\n\n"+
			"💰 Your balance: %d coins\n\n"+
			"Send /startgame to play, or /help for all commands.",
		user.DisplayName(), model.GoldenDigits, model.GoldenDigits, user.Balance,
	), mainKeyboard())
}

// HandleHelp handles the /help command.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Reply(
		"🎲 Golden Dice — commands\n" +
			"━━━━━━━━━━━━━━━\n" +
			"/startgame — start today's game\n" +
			"/next — roll the dice\n" +
			"/pause, /resume — take a break\n" +
			"/stopgame — abandon the game\n" +
			"/status — current game state\n" +
			"━━━━━━━━━━━━━━━\n" +
			"/wallet [address] — show or set payout address\n" +
			"/deposit — how to top up\n" +
			"/withdraw <amount> — request a payout\n" +
			"/history — recent transactions\n" +
			"/stats — your stats\n" +
			"/leaderboard — top players",
		mainKeyboard(),
	)
}

// HandleWallet handles the /wallet command: show balance and address, or
// set a new address when one is given as argument.
func (h *AccountHandler) HandleWallet(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) > 0 {
		if err := h.userService.SetWalletAddress(ctx, sender.ID, args[0]); err != nil {
			if errors.Is(err, service.ErrInvalidWalletAddress) {
				return c.Reply("❌ That doesn't look like a valid wallet address")
			}
			return c.Reply("❌ Failed to save the address, please try again later")
		}
		return c.Reply("✅ Payout address saved")
	}

	user, err := h.userService.GetUser(ctx, sender.ID)
	if err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}

	address := user.WalletAddress
	if address == "" {
		address = "not set — send /wallet <address>"
	}

	return c.Reply(fmt.Sprintf(
		"💰 Wallet\n"+
			"━━━━━━━━━━━━━━━\n"+
			"Balance: %d coins\n"+
			"Payout address: %s\n"+
			"Withdrawal minimum: %d coins",
		user.Balance, address, h.withdrawService.MinBalance(ctx),
	))
}

// HandleDeposit handles the /deposit command: shows the deposit address.
func (h *AccountHandler) HandleDeposit(c tele.Context) error {
	ctx := context.Background()

	address := h.settings.Get(ctx, repository.SettingDepositWalletAddress, "")
	if address == "" {
		return c.Reply("💳 Deposits are temporarily unavailable, please check back later")
	}

	return c.Reply(fmt.Sprintf(
		"💳 To top up, send funds to:\n\n%s\n\n"+
			"Coins are credited after confirmation.",
		address,
	))
}

// HandleWithdraw handles the /withdraw <amount> command: requests a payout
// of the given amount.
func (h *AccountHandler) HandleWithdraw(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) == 0 {
		return c.Reply(fmt.Sprintf(
			"💸 Usage: /withdraw <amount>\n"+
				"You need at least %d coins on balance to withdraw.",
			h.withdrawService.MinBalance(ctx),
		))
	}

	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || amount <= 0 {
		return c.Reply("❌ Amount must be a positive number, e.g. /withdraw 100")
	}

	if !h.userLock.TryLock(sender.ID) {
		return c.Reply("⏳ Hold on, your previous action is still being processed")
	}
	defer h.userLock.Unlock(sender.ID)

	request, err := h.withdrawService.CreateRequest(ctx, sender.ID, amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWithdrawNoWallet):
			return c.Reply("❌ Set your payout address first: /wallet <address>")
		case errors.Is(err, service.ErrWithdrawBelowMinimum):
			return c.Reply(fmt.Sprintf(
				"❌ You need more than %d coins to withdraw",
				h.withdrawService.MinBalance(ctx)-1,
			))
		case errors.Is(err, service.ErrInsufficientBalance):
			return c.Reply("❌ You don't have that many coins")
		case errors.Is(err, service.ErrInvalidAmount):
			return c.Reply("❌ Amount must be a positive number, e.g. /withdraw 100")
		}
		return c.Reply("❌ Failed to create the withdrawal, please try again later")
	}

	return c.Reply(fmt.Sprintf(
		"✅ Withdrawal #%d for %d coins requested.\n"+
			"It will be reviewed shortly; if rejected, the coins come right back.",
		request.ID, request.Amount,
	))
}

// HandleHistory handles the /history command.
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	entries, err := h.statsService.History(ctx, sender.ID, 10)
	if err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}
	if len(entries) == 0 {
		return c.Reply("📜 No transactions yet. Send /startgame to play!")
	}

	var sb strings.Builder
	sb.WriteString("📜 Recent transactions\n━━━━━━━━━━━━━━━\n")
	for _, e := range entries {
		sign := "-"
		if model.IsCreditType(e.Type) {
			sign = "+"
		}
		sb.WriteString(fmt.Sprintf(
			"%s %s%d (%s) %s\n",
			e.CreatedAt.Format("01-02 15:04"), sign, e.Amount, e.Type, statusMark(e.Status),
		))
	}
	return c.Reply(sb.String())
}

func statusMark(status string) string {
	switch status {
	case model.TxStatusPending:
		return "⏳"
	case model.TxStatusFailed:
		return "✖️"
	default:
		return ""
	}
}

// HandleStats handles the /stats command.
func (h *AccountHandler) HandleStats(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	stats, err := h.statsService.UserStats(ctx, sender.ID)
	if err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}

	return c.Reply(fmt.Sprintf(
		"📊 Your stats\n"+
			"━━━━━━━━━━━━━━━\n"+
			"💰 Balance: %d coins\n"+
			"🎮 Games played: %d\n"+
			"🏆 Wins: %d\n"+
			"📈 Win rate: %.1f%%\n"+
			"💎 Total won: %d\n"+
			"💸 Withdrawn: %d",
		stats.Balance, stats.GamesTotal, stats.Wins, stats.WinRate, stats.TotalWon, stats.Withdrawn,
	))
}
