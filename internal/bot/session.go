package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"github.com/teleta/archivebot/internal/chat"
	"github.com/teleta/archivebot/internal/logger"
	"github.com/teleta/archivebot/internal/metrics"
	"github.com/teleta/archivebot/internal/store"
)

// ==========================
// Обёртка обработчиков
// ==========================

// HandlerFunc — обработчик события с собственной сессией хранилища.
type HandlerFunc func(ctx context.Context, c tele.Context, s store.Session) error

// withSession выдаёт обработчику сессию и гарантирует её освобождение.
// Ошибки и паники не выходят наружу: пользователь получает общее сообщение,
// ошибка уходит в лог и в Sentry.
func (b *Bot) withSession(h HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		b.run(c, h)
		return nil
	}
}

// addressed пропускает только сообщения, адресованные боту: в группах и
// каналах команда должна содержать @username бота.
func (b *Bot) addressed(h HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		_, kind, err := chat.Resolve(chat.PeerFromChat(c.Chat()))
		if err != nil {
			b.fail(c, err, nil)
			return nil
		}
		if !chat.Addressed(kind, messageText(c), b.username) {
			return nil
		}
		b.run(c, h)
		return nil
	}
}

func (b *Bot) run(c tele.Context, h HandlerFunc) {
	s := b.store.Session(b.ctx)
	defer s.Remove()

	defer func() {
		if r := recover(); r != nil {
			b.fail(c, fmt.Errorf("panic: %v", r), debug.Stack())
		}
	}()

	if err := h(b.ctx, c, s); err != nil {
		b.fail(c, err, nil)
	}
}

// fail — общий обработчик необработанных ошибок.
func (b *Bot) fail(c tele.Context, err error, stack []byte) {
	metrics.HandlerErrors.Inc()

	if sendErr := c.Send(unknownErrorText); sendErr != nil {
		b.logger.Warn("⚠️ Не удалось отправить сообщение об ошибке", "error", sendErr)
	}

	tags := map[string]string{}
	attrs := []any{"error", err, logger.ReportedKey, true}
	if ch := c.Chat(); ch != nil {
		tags["chat_id"] = strconv.FormatInt(ch.ID, 10)
		tags["chat_type"] = string(ch.Type)
		attrs = append(attrs, "chat_id", ch.ID)
	}
	if stack != nil {
		attrs = append(attrs, "stack", string(stack))
	}

	b.logger.Error("🔥 Ошибка в обработчике", attrs...)
	b.reporter.CaptureException(err, tags)
}

func messageText(c tele.Context) string {
	if m := c.Message(); m != nil {
		return m.Text
	}
	return ""
}
