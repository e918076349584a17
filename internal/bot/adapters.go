package bot

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// Gateway adapts the telebot instance to the narrow send interfaces the
// services consume, so the service layer never sees Telegram types.
type Gateway struct {
	bot *tele.Bot
}

// NewGateway creates a Gateway around a telebot instance.
func NewGateway(b *tele.Bot) *Gateway {
	return &Gateway{bot: b}
}

// Roll sends a dice animation into the chat and returns the value it
// landed on.
func (g *Gateway) Roll(_ context.Context, chatID int64) (int, error) {
	msg, err := g.bot.Send(tele.ChatID(chatID), tele.Cube)
	if err != nil {
		return 0, fmt.Errorf("failed to send dice: %w", err)
	}
	if msg.Dice == nil {
		return 0, fmt.Errorf("dice message carries no value")
	}
	return msg.Dice.Value, nil
}

// SendMessage sends a plain text message to the chat.
func (g *Gateway) SendMessage(_ context.Context, chatID int64, text string) error {
	_, err := g.bot.Send(tele.ChatID(chatID), text)
	return err
}
