package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/teleta/archivebot/internal/model"
)

// jsonBackend — подписчики в одном JSON-файле, ключ — id чата.
type jsonBackend struct {
	file string
	mu   sync.RWMutex
	data map[int64]*model.Subscriber
}

func openJSON(file string) (*jsonBackend, error) {
	b := &jsonBackend{file: file, data: make(map[int64]*model.Subscriber)}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

// load читает файл; отсутствие файла не ошибка.
func (b *jsonBackend) load() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	content, err := os.ReadFile(b.file)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("⚠️ файл подписчиков не найден, начинаем с пустого", "file", b.file)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", b.file, err)
	}
	if len(content) == 0 {
		return nil
	}
	var list []*model.Subscriber
	if err := json.Unmarshal(content, &list); err != nil {
		return fmt.Errorf("parse %s: %w", b.file, err)
	}
	for _, sub := range list {
		b.data[sub.ChatID] = sub
	}
	return nil
}

// save пишет снимок во временный файл и переименовывает его. Вызывается под mu.
func (b *jsonBackend) save(data map[int64]*model.Subscriber) error {
	list := make([]*model.Subscriber, 0, len(data))
	for _, sub := range data {
		list = append(list, sub)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ChatID < list[j].ChatID })

	content, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscribers: %w", err)
	}
	dir := filepath.Dir(b.file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.file)+".tmp.*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.file)
}

func (b *jsonBackend) get(_ context.Context, chatID int64) (*model.Subscriber, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if sub, ok := b.data[chatID]; ok {
		return sub.Clone(), nil
	}
	return nil, ErrSubscriberNotFound
}

func (b *jsonBackend) getByName(_ context.Context, name string) (*model.Subscriber, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.data {
		if sub.ChannelName == name {
			return sub.Clone(), nil
		}
	}
	return nil, ErrSubscriberNotFound
}

func (b *jsonBackend) put(_ context.Context, subs []*model.Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make(map[int64]string, len(b.data))
	for id, sub := range b.data {
		names[id] = sub.ChannelName
	}
	if err := checkNames(names, subs); err != nil {
		return err
	}

	next := make(map[int64]*model.Subscriber, len(b.data)+len(subs))
	for id, sub := range b.data {
		next[id] = sub
	}
	for _, sub := range subs {
		next[sub.ChatID] = sub.Clone()
	}
	if err := b.save(next); err != nil {
		return fmt.Errorf("write %s: %w", b.file, err)
	}
	b.data = next
	return nil
}

func (b *jsonBackend) close() error {
	return nil
}
