package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"golden-dice-bot/internal/model"
	"golden-dice-bot/internal/repository"
	"golden-dice-bot/internal/service"
)

// AdminHandler handles operator commands. Registered behind the admin
// middleware, so every sender here is already verified.
type AdminHandler struct {
	gameService     *service.GameService
	withdrawService *service.WithdrawService
	announcer       *service.Announcer
	settings        *repository.SettingsStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	gameService *service.GameService,
	withdrawService *service.WithdrawService,
	announcer *service.Announcer,
	settings *repository.SettingsStore,
) *AdminHandler {
	return &AdminHandler{
		gameService:     gameService,
		withdrawService: withdrawService,
		announcer:       announcer,
		settings:        settings,
	}
}

// HandleAdminGolden handles the /admin_golden command.
// Without arguments shows today's golden number, creating it if needed;
// "/admin_golden new" force-generates a replacement.
func (h *AdminHandler) HandleAdminGolden(c tele.Context) error {
	ctx := context.Background()

	force := len(c.Args()) > 0 && c.Args()[0] == "new"

	var golden *model.GoldenNumber
	var err error
	if force {
		golden, err = h.gameService.ForceCreateDailyGolden(ctx)
	} else {
		golden, err = h.gameService.GetOrCreateDailyGolden(ctx)
	}
	if err != nil {
		return c.Reply("❌ Failed to obtain the golden number")
	}

	log.Info().
		Int64("admin_id", c.Sender().ID).
		Int64("golden_id", golden.ID).
		Bool("forced", force).
		Msg("Admin viewed golden number")

	announced := "no"
	if golden.Announced {
		announced = "yes"
	}
	return c.Reply(fmt.Sprintf(
		"🎯 Golden number #%d\n"+
			"Number: %s\n"+
			"Source: %s\n"+
			"Date: %s\n"+
			"Announced: %s",
		golden.ID, golden.Number, golden.Source, golden.ValidDate.Format("2006-01-02"), announced,
	))
}

// HandleAdminAnnounce handles the /admin_announce command: broadcasts the
// golden number teaser to all users.
func (h *AdminHandler) HandleAdminAnnounce(c tele.Context) error {
	ctx := context.Background()

	if err := h.announcer.AnnounceGolden(ctx); err != nil {
		return c.Reply("❌ Announcement failed")
	}
	return c.Reply("📣 Announcement sent")
}

// HandleAdminAnnounceQuiet handles the /admin_announce_quiet command:
// broadcasts the quiet-hours notice.
func (h *AdminHandler) HandleAdminAnnounceQuiet(c tele.Context) error {
	ctx := context.Background()

	if err := h.announcer.AnnounceQuietHours(ctx); err != nil {
		return c.Reply("❌ Broadcast failed")
	}
	return c.Reply("🌙 Quiet hours notice sent")
}

// HandleAdminWithdrawals handles the /admin_withdrawals command.
// Without arguments lists pending requests; "approve <id>" and
// "reject <id>" resolve one.
func (h *AdminHandler) HandleAdminWithdrawals(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()

	if len(args) == 0 {
		return h.listWithdrawals(ctx, c)
	}
	if len(args) != 2 {
		return c.Reply("Usage: /admin_withdrawals [approve|reject <id>]")
	}

	txID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return c.Reply("❌ Invalid request id")
	}

	switch args[0] {
	case "approve":
		resolved, err := h.withdrawService.Approve(ctx, txID)
		if err != nil {
			return h.resolveError(c, err)
		}
		h.logResolve(c, resolved.ID, "approve")
		return c.Reply(fmt.Sprintf("✅ Withdrawal #%d approved (%d coins to user %d)", resolved.ID, resolved.Amount, resolved.UserID))
	case "reject":
		resolved, err := h.withdrawService.Reject(ctx, txID)
		if err != nil {
			return h.resolveError(c, err)
		}
		h.logResolve(c, resolved.ID, "reject")
		return c.Reply(fmt.Sprintf("↩️ Withdrawal #%d rejected, %d coins refunded to user %d", resolved.ID, resolved.Amount, resolved.UserID))
	}
	return c.Reply("Usage: /admin_withdrawals [approve|reject <id>]")
}

func (h *AdminHandler) listWithdrawals(ctx context.Context, c tele.Context) error {
	pending, err := h.withdrawService.PendingRequests(ctx)
	if err != nil {
		return c.Reply("❌ Failed to list withdrawals")
	}
	if len(pending) == 0 {
		return c.Reply("📭 No pending withdrawals")
	}

	var sb strings.Builder
	sb.WriteString("💸 Pending withdrawals\n━━━━━━━━━━━━━━━\n")
	for _, p := range pending {
		sb.WriteString(fmt.Sprintf(
			"#%d — user %d, %d coins, %s\n",
			p.ID, p.UserID, p.Amount, p.CreatedAt.Format("2006-01-02 15:04"),
		))
	}
	sb.WriteString("\nResolve with /admin_withdrawals approve|reject <id>")
	return c.Reply(sb.String())
}

func (h *AdminHandler) resolveError(c tele.Context, err error) error {
	if errors.Is(err, service.ErrWithdrawNotPending) {
		return c.Reply("❌ That request is not pending")
	}
	return c.Reply("❌ Failed to resolve the withdrawal")
}

func (h *AdminHandler) logResolve(c tele.Context, txID int64, action string) {
	log.Info().
		Int64("admin_id", c.Sender().ID).
		Int64("tx_id", txID).
		Str("operation", action).
		Msg("Admin resolved withdrawal")
}

// HandleAdminSet handles the /admin_set command.
// Format: /admin_set <key> <value>; without arguments lists recognized keys.
func (h *AdminHandler) HandleAdminSet(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()

	if len(args) < 2 {
		return c.Reply(
			"Usage: /admin_set <key> <value>\n\nRecognized keys:\n" +
				strings.Join(repository.KnownSettingKeys(), "\n"),
		)
	}

	key := args[0]
	value := strings.Join(args[1:], " ")

	if !repository.IsKnownSettingKey(key) {
		return c.Reply("❌ Unknown setting key. Send /admin_set to list them.")
	}

	if err := h.settings.Set(ctx, key, value); err != nil {
		return c.Reply("❌ Failed to save the setting")
	}

	log.Info().
		Int64("admin_id", c.Sender().ID).
		Str("key", key).
		Str("value", value).
		Msg("Admin changed setting")

	return c.Reply(fmt.Sprintf("✅ %s = %s", key, value))
}
