package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"golden-dice-bot/internal/service"
)

// RankingHandler handles the leaderboard command.
type RankingHandler struct {
	statsService *service.StatsService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(statsService *service.StatsService) *RankingHandler {
	return &RankingHandler{statsService: statsService}
}

// HandleLeaderboard handles the /leaderboard command: top winners and the
// unluckiest balances.
func (h *RankingHandler) HandleLeaderboard(c tele.Context) error {
	ctx := context.Background()

	winners, err := h.statsService.Winners(ctx)
	if err != nil {
		return c.Reply("❌ Failed to load the leaderboard, please try again later")
	}
	losers, err := h.statsService.Losers(ctx)
	if err != nil {
		return c.Reply("❌ Failed to load the leaderboard, please try again later")
	}

	if len(winners) == 0 && len(losers) == 0 {
		return c.Reply("📊 No games played yet. Be the first — /startgame!")
	}

	medals := []string{"🥇", "🥈", "🥉"}

	var sb strings.Builder
	sb.WriteString("🏆 Top winners\n━━━━━━━━━━━━━━━\n")
	if len(winners) == 0 {
		sb.WriteString("No winners yet\n")
	}
	for i, w := range winners {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		sb.WriteString(fmt.Sprintf("%s %s — %d coins won (%d wins)\n", rank, w.DisplayName(), w.TotalWins, w.WinCount))
	}

	if len(losers) > 0 {
		sb.WriteString("\n😿 Down on their luck\n━━━━━━━━━━━━━━━\n")
		for i, u := range losers {
			sb.WriteString(fmt.Sprintf("%d. %s — %d coins\n", i+1, u.DisplayName(), u.Balance))
		}
	}

	return c.Reply(sb.String())
}
