package notification

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tourdesk/service-booking/internal/common/domain"
)

// TelegramSender is the subset of tgbotapi.BotAPI used here.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier messages customers who booked through the chat bot.
type TelegramNotifier struct {
	bot TelegramSender
}

// NewTelegramNotifier creates a TelegramNotifier.
func NewTelegramNotifier(bot TelegramSender) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

// Notify implements Notifier. Events for customers without a chat id are skipped.
func (n *TelegramNotifier) Notify(_ context.Context, event Event) error {
	if event.Customer.ChatID == "" {
		return nil
	}
	chatID, err := strconv.ParseInt(event.Customer.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", event.Customer.ChatID, err)
	}

	subject, body := Render(event)
	if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, subject+"\n\n"+body)); err != nil {
		return domain.NewExternalServiceError("telegram", err)
	}
	return nil
}
