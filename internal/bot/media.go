package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"github.com/teleta/archivebot/internal/chat"
	"github.com/teleta/archivebot/internal/metrics"
	"github.com/teleta/archivebot/internal/model"
	"github.com/teleta/archivebot/internal/storage"
	"github.com/teleta/archivebot/internal/store"
)

// ==========================
// Сохранение вложений
// ==========================

func (b *Bot) handleMedia(ctx context.Context, c tele.Context, s store.Session) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}
	media, ok := storage.FromMessage(msg)
	if !ok {
		return nil
	}

	chatID, _, err := chat.Resolve(chat.PeerFromChat(c.Chat()))
	if err != nil {
		return err
	}

	sub, err := s.Subscriber(ctx, chatID)
	switch {
	case errors.Is(err, store.ErrSubscriberNotFound):
		metrics.MediaSkipped.WithLabelValues("unknown_chat").Inc()
		return nil
	case err != nil:
		return err
	}
	if !sub.Active {
		metrics.MediaSkipped.WithLabelValues("inactive").Inc()
		return nil
	}

	if !sub.AcceptedMedia.Has(media.Kind()) {
		metrics.MediaSkipped.WithLabelValues("not_accepted").Inc()
		if !sub.Verbose {
			return nil
		}
		if media.Kind() == model.MediaPhoto {
			return c.Send("Please send uncompressed images as files. Compressed photos are not accepted in this chat.")
		}
		return c.Send(fmt.Sprintf("Media of type %s is not accepted in this chat.", media.Kind()))
	}

	target, err := b.resolver.Resolve(sub, senderName(msg), media)
	if err != nil {
		return err
	}
	name, path := target.FileName, target.Path
	if !target.HasName() {
		name = storage.GenerateName(media, msg.Time())
		path = filepath.Join(target.Dir, name)
	}

	if storage.Exists(path) {
		return b.duplicate(c, sub, name)
	}

	rc, err := b.files.File(media.TelegramFile())
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	defer rc.Close()

	n, err := storage.Save(path, rc)
	if errors.Is(err, storage.ErrExists) {
		// Параллельное сообщение успело записать файл с тем же именем.
		return b.duplicate(c, sub, name)
	}
	if err != nil {
		return err
	}

	metrics.FilesSaved.WithLabelValues(string(media.Kind())).Inc()
	metrics.BytesSaved.Add(float64(n))
	b.logger.Info("💾 Файл сохранён", "chat_id", sub.ChatID, "path", path, "bytes", n)
	return nil
}

func (b *Bot) duplicate(c tele.Context, sub *model.Subscriber, name string) error {
	metrics.MediaSkipped.WithLabelValues("duplicate").Inc()
	b.logger.Debug("📎 Файл уже есть", "chat_id", sub.ChatID, "name", name)
	if !sub.Verbose {
		return nil
	}
	return c.Send(fmt.Sprintf("File %s already exists.", name))
}

// senderName — под чьим именем сохранять файл. Для пересланных сообщений
// берётся автор оригинала.
func senderName(m *tele.Message) string {
	if m.OriginalSender != nil {
		if name, ok := chat.DisplayName(m.OriginalSender); ok {
			return name
		}
		return strconv.FormatInt(m.OriginalSender.ID, 10)
	}
	if m.OriginalSenderName != "" {
		return m.OriginalSenderName
	}
	if m.OriginalChat != nil && m.OriginalChat.Title != "" {
		return m.OriginalChat.Title
	}

	if name, ok := chat.DisplayName(m.Sender); ok {
		return name
	}
	if m.Sender != nil {
		return strconv.FormatInt(m.Sender.ID, 10)
	}
	if m.SenderChat != nil && m.SenderChat.Title != "" {
		return m.SenderChat.Title
	}
	if m.Chat != nil {
		return strconv.FormatInt(m.Chat.ID, 10)
	}
	return "unknown"
}
