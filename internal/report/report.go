// Package report отправляет необработанные ошибки в Sentry.
package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter принимает ошибки, дошедшие до границы обработчика.
type Reporter interface {
	CaptureException(err error, tags map[string]string)
}

// Sentry — Reporter поверх хаба Sentry.
type Sentry struct {
	hub *sentry.Hub
}

// Init настраивает глобальный клиент Sentry.
func Init(dsn, env string) (*Sentry, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return NewSentry(sentry.CurrentHub()), nil
}

func NewSentry(hub *sentry.Hub) *Sentry {
	return &Sentry{hub: hub}
}

// CaptureException отправляет ошибку с тегами. Хаб клонируется, чтобы теги
// одного события не протекали в другие.
func (s *Sentry) CaptureException(err error, tags map[string]string) {
	hub := s.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
	})
	hub.CaptureException(err)
}

// Flush ждёт отправки накопленных событий.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

// Nop ничего не отправляет; используется, когда SENTRY_DSN не задан.
type Nop struct{}

func (Nop) CaptureException(error, map[string]string) {}
