package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Options — настройки логгера.
type Options struct {
	// Dev — текстовый вывод и уровень Debug; иначе JSON и Info.
	Dev       bool
	AddSource bool
	// Sentry — дублировать записи уровня Error в Sentry. Клиент Sentry
	// должен быть уже инициализирован.
	Sentry bool
	// Out — куда писать; по умолчанию stdout.
	Out io.Writer
}

// Init собирает логгер и делает его логгером по умолчанию.
func Init(opts Options) *slog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var handlers []slog.Handler
	if opts.Dev {
		handlers = append(handlers, slog.NewTextHandler(out, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: opts.AddSource,
		}))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: opts.AddSource,
		}))
	}

	if opts.Sentry {
		handlers = append(handlers, skipReported{slogsentry.Option{
			Level: slog.LevelError,
		}.NewSentryHandler()})
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = slogmulti.Fanout(handlers...)
	} else {
		handler = handlers[0]
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// ReportedKey помечает запись об ошибке, которую уже отправили в Sentry
// напрямую. Такие записи в Sentry повторно не уходят.
const ReportedKey = "sentry_reported"

type skipReported struct {
	slog.Handler
}

func (h skipReported) Handle(ctx context.Context, r slog.Record) error {
	reported := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == ReportedKey {
			reported = true
			return false
		}
		return true
	})
	if reported {
		return nil
	}
	return h.Handler.Handle(ctx, r)
}

func (h skipReported) WithAttrs(attrs []slog.Attr) slog.Handler {
	for _, a := range attrs {
		if a.Key == ReportedKey {
			return discard{}
		}
	}
	return skipReported{h.Handler.WithAttrs(attrs)}
}

func (h skipReported) WithGroup(name string) slog.Handler {
	return skipReported{h.Handler.WithGroup(name)}
}

type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }
