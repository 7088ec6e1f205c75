// Package chat определяет, с каким чатом пришло событие и адресовано ли оно боту.
package chat

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// Kind — грубая категория чата.
type Kind string

const (
	KindUser    Kind = "user"
	KindChat    Kind = "chat"
	KindChannel Kind = "channel"
)

var ErrUnrecognizedChatKind = errors.New("unrecognized chat kind")

// ChatRef — ссылка на собеседника: ровно один из UserRef, GroupRef, ChannelRef.
type ChatRef interface {
	isChatRef()
}

type UserRef struct{ UserID int64 }

type GroupRef struct{ ChatID int64 }

type ChannelRef struct{ ChannelID int64 }

func (UserRef) isChatRef()    {}
func (GroupRef) isChatRef()   {}
func (ChannelRef) isChatRef() {}

// PeerFromChat строит ChatRef из чата Bot API. Для неизвестных типов возвращает nil.
func PeerFromChat(c *tele.Chat) ChatRef {
	if c == nil {
		return nil
	}
	switch c.Type {
	case tele.ChatPrivate:
		return UserRef{UserID: c.ID}
	case tele.ChatGroup:
		return GroupRef{ChatID: c.ID}
	case tele.ChatSuperGroup, tele.ChatChannel, tele.ChatChannelPrivate:
		return ChannelRef{ChannelID: c.ID}
	}
	return nil
}

// Resolve возвращает числовой id и категорию чата.
func Resolve(ref ChatRef) (int64, Kind, error) {
	switch r := ref.(type) {
	case UserRef:
		return r.UserID, KindUser, nil
	case GroupRef:
		return r.ChatID, KindChat, nil
	case ChannelRef:
		return r.ChannelID, KindChannel, nil
	}
	return 0, "", fmt.Errorf("%w: %T", ErrUnrecognizedChatKind, ref)
}

// Addressed сообщает, нужно ли обрабатывать событие. В личке — всегда;
// в группах и каналах первое слово текста должно содержать "@<botUsername>".
// Проверка — простое вхождение подстроки, "@bot_other" тоже пройдёт.
func Addressed(kind Kind, text, botUsername string) bool {
	if kind == KindUser {
		return true
	}
	command, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.Contains(command, "@"+botUsername)
}

// DisplayName выбирает имя пользователя: username, затем имя, затем фамилия.
func DisplayName(u *tele.User) (string, bool) {
	if u == nil {
		return "", false
	}
	switch {
	case u.Username != "":
		return u.Username, true
	case u.FirstName != "":
		return u.FirstName, true
	case u.LastName != "":
		return u.LastName, true
	}
	return "", false
}
