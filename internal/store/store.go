// Package store хранит настройки чатов (Subscriber). Доступ идёт через Session:
// одна сессия на одно входящее событие.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/teleta/archivebot/internal/model"
)

var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrSessionClosed      = errors.New("session already removed")
	ErrUnknownDriver      = errors.New("unknown database driver")
	// ErrNameTaken — имя каталога уже принадлежит другому чату.
	ErrNameTaken = errors.New("channel name already taken")
)

// Store выдаёт сессии поверх одного бэкенда.
type Store interface {
	Session(ctx context.Context) Session
	Close() error
}

// Session — единица работы. Чтения идут в бэкенд, записи копятся до Commit.
// Remove освобождает сессию и отбрасывает всё незакоммиченное; повторный вызов безопасен.
type Session interface {
	Subscriber(ctx context.Context, chatID int64) (*model.Subscriber, error)
	SubscriberByName(ctx context.Context, name string) (*model.Subscriber, error)
	Save(sub *model.Subscriber) error
	Commit(ctx context.Context) error
	Remove()
}

// backend — хранилище, которое умеет атомарно записать пачку подписчиков.
type backend interface {
	get(ctx context.Context, chatID int64) (*model.Subscriber, error)
	getByName(ctx context.Context, name string) (*model.Subscriber, error)
	put(ctx context.Context, subs []*model.Subscriber) error
	close() error
}

// Open открывает хранилище по имени драйвера: bolt, sqlite, pgx или json.
func Open(driver, connection string) (Store, error) {
	var (
		b   backend
		err error
	)
	switch driver {
	case "bolt":
		b, err = openBolt(connection)
	case "sqlite", "pgx":
		b, err = openSQL(driver, connection)
	case "json":
		b, err = openJSON(connection)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	return &store{b: b}, nil
}

type store struct {
	b backend
}

func (s *store) Session(context.Context) Session {
	return &session{b: s.b, staged: make(map[int64]*model.Subscriber)}
}

func (s *store) Close() error {
	return s.b.close()
}

// ==========================
// Сессия
// ==========================

type session struct {
	b       backend
	staged  map[int64]*model.Subscriber
	order   []int64
	removed bool
}

func (s *session) Subscriber(ctx context.Context, chatID int64) (*model.Subscriber, error) {
	if s.removed {
		return nil, ErrSessionClosed
	}
	if sub, ok := s.staged[chatID]; ok {
		return sub.Clone(), nil
	}
	return s.b.get(ctx, chatID)
}

func (s *session) SubscriberByName(ctx context.Context, name string) (*model.Subscriber, error) {
	if s.removed {
		return nil, ErrSessionClosed
	}
	for _, id := range s.order {
		if sub := s.staged[id]; sub.ChannelName == name {
			return sub.Clone(), nil
		}
	}
	sub, err := s.b.getByName(ctx, name)
	if err != nil {
		return nil, err
	}
	// В сессии уже лежит переименованная версия этого чата.
	if staged, ok := s.staged[sub.ChatID]; ok && staged.ChannelName != name {
		return nil, ErrSubscriberNotFound
	}
	return sub, nil
}

func (s *session) Save(sub *model.Subscriber) error {
	if s.removed {
		return ErrSessionClosed
	}
	if _, ok := s.staged[sub.ChatID]; !ok {
		s.order = append(s.order, sub.ChatID)
	}
	s.staged[sub.ChatID] = sub.Clone()
	return nil
}

func (s *session) Commit(ctx context.Context) error {
	if s.removed {
		return ErrSessionClosed
	}
	if len(s.order) == 0 {
		return nil
	}
	subs := make([]*model.Subscriber, 0, len(s.order))
	for _, id := range s.order {
		subs = append(subs, s.staged[id])
	}
	if err := s.b.put(ctx, subs); err != nil {
		return fmt.Errorf("commit subscribers: %w", err)
	}
	s.staged = make(map[int64]*model.Subscriber)
	s.order = nil
	return nil
}

func (s *session) Remove() {
	s.removed = true
	s.staged = nil
	s.order = nil
}

// checkNames проверяет, что после записи subs у каждого имени останется
// один владелец. current — имена уже сохранённых чатов, изменяется.
func checkNames(current map[int64]string, subs []*model.Subscriber) error {
	for _, sub := range subs {
		current[sub.ChatID] = sub.ChannelName
	}
	owners := make(map[string]int64, len(current))
	for id, name := range current {
		if other, ok := owners[name]; ok && other != id {
			return fmt.Errorf("%w: %q", ErrNameTaken, name)
		}
		owners[name] = id
	}
	return nil
}
