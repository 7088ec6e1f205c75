package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/teleta/archivebot/internal/chat"
	"github.com/teleta/archivebot/internal/model"
	"github.com/teleta/archivebot/internal/store"
)

// ==========================
// Подписчик текущего чата
// ==========================

// subscriber загружает настройки чата или создаёт их по умолчанию.
// Новый подписчик не сохраняется, пока команда сама не вызовет Save.
func (b *Bot) subscriber(ctx context.Context, c tele.Context, s store.Session) (*model.Subscriber, error) {
	ch := c.Chat()
	id, kind, err := chat.Resolve(chat.PeerFromChat(ch))
	if err != nil {
		return nil, err
	}

	sub, err := s.Subscriber(ctx, id)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, store.ErrSubscriberNotFound) {
		return nil, err
	}

	fullName := strings.TrimSpace(ch.FirstName + " " + ch.LastName)
	name := model.DefaultChannelName(id, ch.Title, ch.Username, fullName)

	// Имя уже занято другим чатом — берём id.
	switch _, err := s.SubscriberByName(ctx, name); {
	case err == nil:
		name = strconv.FormatInt(id, 10)
	case !errors.Is(err, store.ErrSubscriberNotFound):
		return nil, err
	}

	b.logger.Info("🆕 Новый чат", "chat_id", id, "kind", kind, "name", name)
	return model.NewSubscriber(id, string(kind), name), nil
}

// nameTaken отвечает пользователю, если имя успел занять другой чат
// между проверкой и записью. Остальные ошибки возвращает как есть.
func nameTaken(c tele.Context, err error) error {
	if errors.Is(err, store.ErrNameTaken) {
		return c.Send(nameTakenText)
	}
	return err
}

func (b *Bot) update(ctx context.Context, c tele.Context, s store.Session, change func(*model.Subscriber)) (*model.Subscriber, error) {
	sub, err := b.subscriber(ctx, c, s)
	if err != nil {
		return nil, err
	}
	change(sub)
	if err := s.Save(sub); err != nil {
		return nil, err
	}
	if err := s.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

// ==========================
// Команды
// ==========================

func (b *Bot) handleStart(ctx context.Context, c tele.Context, s store.Session) error {
	sub, err := b.update(ctx, c, s, func(sub *model.Subscriber) { sub.Active = true })
	if err != nil {
		return nameTaken(c, err)
	}
	b.logger.Info("▶️ Архивирование включено", "chat_id", sub.ChatID, "name", sub.ChannelName)
	return c.Send("Files posted in this chat will now be stored on the server.")
}

func (b *Bot) handleStop(ctx context.Context, c tele.Context, s store.Session) error {
	sub, err := b.update(ctx, c, s, func(sub *model.Subscriber) { sub.Active = false })
	if err != nil {
		return nameTaken(c, err)
	}
	b.logger.Info("⏹️ Архивирование выключено", "chat_id", sub.ChatID)
	return c.Send("Files won't be stored on the server any longer.")
}

func (b *Bot) handleSetName(ctx context.Context, c tele.Context, s store.Session) error {
	name := commandRest(messageText(c))
	if name == "" {
		return c.Send("Please provide a name, e.g. /set_name holiday_2024")
	}
	if err := model.ValidateChannelName(name); err != nil {
		return c.Send("This name can't be used as a folder name. Please choose another one.")
	}

	sub, err := b.subscriber(ctx, c, s)
	if err != nil {
		return err
	}
	if sub.ChannelName == name {
		return c.Send(fmt.Sprintf("Chat name is already %s.", name))
	}

	switch other, err := s.SubscriberByName(ctx, name); {
	case err == nil && other.ChatID != sub.ChatID:
		return c.Send(nameTakenText)
	case err != nil && !errors.Is(err, store.ErrSubscriberNotFound):
		return err
	}

	sub.ChannelName = name
	if err := s.Save(sub); err != nil {
		return err
	}
	if err := s.Commit(ctx); err != nil {
		return nameTaken(c, err)
	}
	b.logger.Info("✏️ Чат переименован", "chat_id", sub.ChatID, "name", name)
	return c.Send(fmt.Sprintf("Chat name changed to %s.", name))
}

func (b *Bot) handleVerbose(ctx context.Context, c tele.Context, s store.Session) error {
	return b.setFlag(ctx, c, s, "Verbose", func(sub *model.Subscriber, v bool) { sub.Verbose = v })
}

func (b *Bot) handleSortByUser(ctx context.Context, c tele.Context, s store.Session) error {
	return b.setFlag(ctx, c, s, "Sort files by user", func(sub *model.Subscriber, v bool) { sub.SortByUser = v })
}

func (b *Bot) setFlag(ctx context.Context, c tele.Context, s store.Session, label string, set func(*model.Subscriber, bool)) error {
	args := commandArgs(messageText(c))
	if len(args) != 1 {
		return c.Send(boolUsageText)
	}
	value, err := ParseBool(args[0])
	if err != nil {
		return c.Send(boolUsageText)
	}

	if _, err := b.update(ctx, c, s, func(sub *model.Subscriber) { set(sub, value) }); err != nil {
		return nameTaken(c, err)
	}
	return c.Send(fmt.Sprintf("%s: %t", label, value))
}

func (b *Bot) handleAccept(ctx context.Context, c tele.Context, s store.Session) error {
	args := commandArgs(messageText(c))
	if len(args) == 0 {
		return c.Send(fmt.Sprintf("Please provide a space separated list of accepted media. Possible values: %s", possibleMediaList()))
	}
	accepted, err := model.ParseMediaSet(args)
	if err != nil {
		return c.Send(fmt.Sprintf("Unknown media types. Possible values: %s", possibleMediaList()))
	}

	if _, err := b.update(ctx, c, s, func(sub *model.Subscriber) { sub.AcceptedMedia = accepted }); err != nil {
		return nameTaken(c, err)
	}
	return c.Send(fmt.Sprintf("Now accepting: %s", accepted))
}

func (b *Bot) handleInfo(ctx context.Context, c tele.Context, s store.Session) error {
	sub, err := b.subscriber(ctx, c, s)
	if err != nil {
		return err
	}
	return c.Send(InfoText(sub))
}

func (b *Bot) handleHelp(_ context.Context, c tele.Context, _ store.Session) error {
	return c.Send(HelpText)
}
