package handler

import tele "gopkg.in/telebot.v3"

// Reply-keyboard button labels. RouteText matches on these exact strings.
const (
	btnNewGame     = "🎰 New Game"
	btnRoll        = "🎲 Roll"
	btnPause       = "⏸ Pause"
	btnResume      = "▶️ Resume"
	btnStatus      = "📋 Status"
	btnWallet      = "💰 Wallet"
	btnStats       = "📊 Stats"
	btnLeaderboard = "🏆 Leaderboard"
	btnHelp        = "❓ Help"
)

// mainKeyboard builds the persistent reply keyboard shown under the chat
// input.
func mainKeyboard() *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{ResizeKeyboard: true}

	kb.Reply(
		kb.Row(kb.Text(btnNewGame), kb.Text(btnRoll)),
		kb.Row(kb.Text(btnPause), kb.Text(btnResume), kb.Text(btnStatus)),
		kb.Row(kb.Text(btnWallet), kb.Text(btnStats)),
		kb.Row(kb.Text(btnLeaderboard), kb.Text(btnHelp)),
	)
	return kb
}
