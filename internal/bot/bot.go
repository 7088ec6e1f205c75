// Package bot — обработчики Telegram: команды настройки чата и сохранение
// вложений в архив.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/teleta/archivebot/internal/report"
	"github.com/teleta/archivebot/internal/storage"
	"github.com/teleta/archivebot/internal/store"
)

// ==========================
// Базовые типы
// ==========================

type Bot struct {
	tb       *tele.Bot
	store    store.Store
	resolver *storage.Resolver
	files    fileSource
	reporter report.Reporter
	logger   *slog.Logger
	username string

	// ctx передаётся в сессии хранилища; заменяется в Run.
	ctx context.Context

	// commands — команды, уже обёрнутые в addressed. По этой же таблице
	// разбираются посты каналов.
	commands map[string]tele.HandlerFunc
	media    tele.HandlerFunc
}

// Options — всё, что нужно боту для работы.
type Options struct {
	Token       string
	APIURL      string
	PollTimeout time.Duration

	Store     store.Store
	TargetDir string
	Reporter  report.Reporter
	Logger    *slog.Logger

	// Offline — не ходить в getMe при создании (для тестов).
	Offline bool
	// Synchronous — обрабатывать обновления в вызывающей горутине.
	Synchronous bool
}

var ErrNoStore = errors.New("bot: store is required")

// ==========================
// Конструктор
// ==========================

func New(opts Options) (*Bot, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Second
	}

	b := &Bot{
		store:    opts.Store,
		resolver: storage.NewResolver(opts.TargetDir),
		reporter: opts.Reporter,
		logger:   opts.Logger,
		ctx:      context.Background(),
	}

	tb, err := tele.NewBot(tele.Settings{
		Token:       opts.Token,
		URL:         opts.APIURL,
		Poller:      &tele.LongPoller{Timeout: opts.PollTimeout},
		Offline:     opts.Offline,
		Synchronous: opts.Synchronous,
		OnError:     b.onError,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	b.tb = tb
	b.files = tb
	b.username = tb.Me.Username

	b.routes()
	return b, nil
}

func (b *Bot) routes() {
	handlers := map[string]HandlerFunc{
		"/start":        b.handleStart,
		"/stop":         b.handleStop,
		"/set_name":     b.handleSetName,
		"/verbose":      b.handleVerbose,
		"/sort_by_user": b.handleSortByUser,
		"/accept":       b.handleAccept,
		"/info":         b.handleInfo,
		"/help":         b.handleHelp,
	}

	b.commands = make(map[string]tele.HandlerFunc, len(handlers))
	for cmd, h := range handlers {
		wrapped := b.addressed(h)
		b.commands[cmd] = wrapped
		b.tb.Handle(cmd, wrapped)
	}

	b.media = b.withSession(b.handleMedia)
	b.tb.Handle(tele.OnDocument, b.media)
	b.tb.Handle(tele.OnPhoto, b.media)
	b.tb.Handle(tele.OnChannelPost, b.handleChannelPost)
}

// ==========================
// Запуск бота
// ==========================

// Run опрашивает Telegram до отмены ctx.
func (b *Bot) Run(ctx context.Context) {
	b.ctx = ctx
	b.logger.Info("🤖 Бот запущен (polling)", "username", b.username)

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.tb.Start()
	}()

	<-ctx.Done()
	b.logger.Info("🛑 Остановка polling по контексту")
	b.tb.Stop()
	<-done
}

// ==========================
// Посты каналов
// ==========================

// В каналах telebot не разбирает команды, поэтому разбираем сами.
func (b *Bot) handleChannelPost(c tele.Context) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}
	if msg.Document != nil || msg.Photo != nil {
		return b.media(c)
	}

	if h, ok := b.commands[commandName(msg.Text)]; ok {
		return h(c)
	}
	return nil
}

// commandName — "/cmd" из первого слова, без "@botname".
func commandName(text string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	name, _, _ := strings.Cut(first, "@")
	return name
}

// commandArgs — слова после команды.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

// commandRest — весь текст после команды, без крайних пробелов.
func commandRest(text string) string {
	_, rest, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(rest)
}

// ==========================
// Ошибки telebot
// ==========================

func (b *Bot) onError(err error, c tele.Context) {
	attrs := []any{"error", err}
	if c != nil && c.Chat() != nil {
		attrs = append(attrs, "chat_id", c.Chat().ID)
	}
	b.logger.Warn("⚠️ Ошибка telebot", attrs...)
}

// fileSource скачивает файл из Telegram.
type fileSource interface {
	File(*tele.File) (io.ReadCloser, error)
}
