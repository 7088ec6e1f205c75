package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ==========================
// Типы медиа
// ==========================

// MediaKind — тип вложения, который чат может принимать.
type MediaKind string

const (
	MediaDocument MediaKind = "document"
	MediaPhoto    MediaKind = "photo"
)

var (
	ErrUnknownMediaKind    = errors.New("unknown media kind")
	ErrInvalidChannelName  = errors.New("invalid channel name")
	possibleMedia          = []MediaKind{MediaDocument, MediaPhoto}
	defaultAcceptedMedia   = MediaSet{MediaDocument}
	channelNameReplacement = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")
)

// PossibleMedia возвращает все поддерживаемые типы медиа в каноническом порядке.
func PossibleMedia() []MediaKind {
	out := make([]MediaKind, len(possibleMedia))
	copy(out, possibleMedia)
	return out
}

// ParseMediaKind разбирает имя типа медиа без учёта регистра.
func ParseMediaKind(s string) (MediaKind, error) {
	k := MediaKind(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range possibleMedia {
		if p == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMediaKind, s)
}

// MediaSet — упорядоченное множество типов медиа без повторов.
type MediaSet []MediaKind

// NewMediaSet нормализует набор: убирает повторы и сортирует по PossibleMedia.
func NewMediaSet(kinds ...MediaKind) MediaSet {
	set := MediaSet{}
	for _, p := range possibleMedia {
		for _, k := range kinds {
			if k == p {
				set = append(set, p)
				break
			}
		}
	}
	return set
}

// ParseMediaSet разбирает список слов вида "document photo".
func ParseMediaSet(fields []string) (MediaSet, error) {
	kinds := make([]MediaKind, 0, len(fields))
	for _, f := range fields {
		k, err := ParseMediaKind(f)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return NewMediaSet(kinds...), nil
}

func (s MediaSet) Has(k MediaKind) bool {
	for _, m := range s {
		if m == k {
			return true
		}
	}
	return false
}

func (s MediaSet) String() string {
	parts := make([]string, len(s))
	for i, k := range s {
		parts[i] = string(k)
	}
	return strings.Join(parts, " ")
}

// Value реализует driver.Valuer: в базе набор хранится строкой через пробел.
func (s MediaSet) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan реализует sql.Scanner.
func (s *MediaSet) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = MediaSet{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan media set: unsupported type %T", src)
	}
	set, err := ParseMediaSet(strings.Fields(raw))
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// ==========================
// Подписчик (настройки чата)
// ==========================

// Subscriber — сохранённые настройки одного чата.
type Subscriber struct {
	ChatID        int64     `json:"chat_id" db:"chat_id"`
	ChatType      string    `json:"chat_type" db:"chat_type"`
	ChannelName   string    `json:"channel_name" db:"channel_name"`
	Active        bool      `json:"active" db:"active"`
	AcceptedMedia MediaSet  `json:"accepted_media" db:"accepted_media"`
	Verbose       bool      `json:"verbose" db:"verbose"`
	SortByUser    bool      `json:"sort_by_user" db:"sort_by_user"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// NewSubscriber создаёт подписчика с настройками по умолчанию: бот выключен
// до /start, принимаются только документы.
func NewSubscriber(chatID int64, chatType, channelName string) *Subscriber {
	return &Subscriber{
		ChatID:        chatID,
		ChatType:      chatType,
		ChannelName:   channelName,
		AcceptedMedia: append(MediaSet{}, defaultAcceptedMedia...),
		CreatedAt:     time.Now().UTC(),
	}
}

// Clone возвращает независимую копию.
func (s *Subscriber) Clone() *Subscriber {
	c := *s
	c.AcceptedMedia = append(MediaSet{}, s.AcceptedMedia...)
	return &c
}

// ValidateChannelName проверяет, что имя годится как один сегмент пути.
func ValidateChannelName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidChannelName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidChannelName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidChannelName, name)
	case len(name) > 255:
		return fmt.Errorf("%w: longer than 255 bytes", ErrInvalidChannelName)
	}
	return nil
}

// DefaultChannelName выводит имя каталога из названия чата, затем из username,
// а если ничего не подошло — из числового id.
func DefaultChannelName(chatID int64, candidates ...string) string {
	for _, c := range candidates {
		name := strings.TrimSpace(channelNameReplacement.Replace(c))
		if ValidateChannelName(name) == nil {
			return name
		}
	}
	return strconv.FormatInt(chatID, 10)
}
