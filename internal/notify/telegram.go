package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender — часть *tgbotapi.BotAPI, которая нужна для отправки.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram дублирует штрафы и подтверждения в чат персонала.
// Напоминания туда не идут, их слишком много.
type Telegram struct {
	api    Sender
	chatID int64
}

func NewTelegram(api Sender, opsChatID int64) *Telegram {
	return &Telegram{api: api, chatID: opsChatID}
}

// Notify ждёт ответа Telegram не дольше ctx. Send контекст не принимает,
// поэтому при отмене отправка дорабатывает в фоне.
func (t *Telegram) Notify(ctx context.Context, n Notification) error {
	if n.Type == TypeExpiryReminder {
		return nil
	}
	text := fmt.Sprintf("[%s] user %d", n.Type, n.UserID)
	if n.BookingID != 0 {
		text += fmt.Sprintf(", booking #%d", n.BookingID)
	}
	text += "\n" + n.Message

	done := make(chan error, 1)
	go func() {
		_, err := t.api.Send(tgbotapi.NewMessage(t.chatID, text))
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}
