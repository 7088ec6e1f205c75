package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestInitProductionJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	log := Init(Options{Out: &buf})
	log.Debug("не должно попасть")
	log.Info("файл сохранён", "chat_id", int64(42))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("ожидалась одна строка, получили %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("вывод не JSON: %v", err)
	}
	if rec["msg"] != "файл сохранён" || rec["chat_id"] != float64(42) {
		t.Errorf("неожиданная запись: %v", rec)
	}
	if slog.Default() != log {
		t.Errorf("Init должен заменить логгер по умолчанию")
	}
}

func TestInitDevText(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	log := Init(Options{Dev: true, Out: &buf})
	log.Debug("отладка")
	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("в dev-режиме ожидался текстовый Debug, получили %q", buf.String())
	}
}

type countingHandler struct {
	n *int
}

func (h countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h countingHandler) Handle(context.Context, slog.Record) error {
	*h.n++
	return nil
}
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h countingHandler) WithGroup(string) slog.Handler      { return h }

func TestSkipReported(t *testing.T) {
	var n int
	log := slog.New(skipReported{countingHandler{&n}})

	log.Error("обычная ошибка")
	log.Error("уже отправлена", ReportedKey, true)
	log.With(ReportedKey, true).Error("уже отправлена через With")

	if n != 1 {
		t.Errorf("до Sentry должна дойти одна запись, дошло %d", n)
	}
}
