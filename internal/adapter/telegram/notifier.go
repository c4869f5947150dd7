package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"vaxbot/internal/shared"
)

// Notifier доставляет сообщения трекера пользователю. silent отключает звук
// уведомления на стороне клиента, само сообщение доставляется всегда.
type Notifier struct {
	bot *bot.Bot
	log *slog.Logger
}

// NewNotifier создаёт нотификатор поверх бота
func NewNotifier(b *bot.Bot, log *slog.Logger) *Notifier {
	return &Notifier{bot: b, log: log}
}

// Send отправляет одно сообщение. Сообщения о центрах используют HTML-разметку.
func (n *Notifier) Send(ctx context.Context, userID int64, text string, silent bool) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:              userID,
		Text:                text,
		ParseMode:           models.ParseModeHTML,
		DisableNotification: silent,
	})
	if err != nil {
		return shared.MarkKind(err, shared.KindDependencyFailure)
	}
	return nil
}
