package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teleta/archivebot/internal/bot"
	"github.com/teleta/archivebot/internal/config"
	"github.com/teleta/archivebot/internal/logger"
	"github.com/teleta/archivebot/internal/metrics"
	"github.com/teleta/archivebot/internal/report"
	"github.com/teleta/archivebot/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Загружаем конфигурацию (.env + окружение)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("❌ Ошибка конфигурации", "error", err)
		return 1
	}

	var reporter report.Reporter = report.Nop{}
	if cfg.SentryDSN != "" {
		s, err := report.Init(cfg.SentryDSN, cfg.AppEnv)
		if err != nil {
			slog.Error("❌ Не удалось инициализировать Sentry", "error", err)
			return 1
		}
		defer s.Flush(2 * time.Second)
		reporter = s
	}

	log := logger.Init(logger.Options{
		Dev:       cfg.IsDevelopment(),
		AddSource: cfg.LogAddSource,
		Sentry:    cfg.SentryDSN != "",
	})

	st, err := store.Open(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		log.Error("❌ Не удалось открыть хранилище", "driver", cfg.DBDriver, "error", err)
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("⚠️ Ошибка при закрытии хранилища", "error", err)
		}
	}()

	// Контекст с graceful shutdown по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(bot.Options{
		Token:       cfg.BotToken,
		APIURL:      cfg.APIURL,
		PollTimeout: cfg.PollTimeout,
		Store:       st,
		TargetDir:   cfg.TargetDir,
		Reporter:    reporter,
		Logger:      log,
	})
	if err != nil {
		log.Error("❌ Не удалось создать бота", "error", err)
		return 1
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error("❌ Сервер метрик остановился", "error", err)
			}
		}()
	}

	log.Info("📦 Архив", "target_dir", cfg.TargetDir, "driver", cfg.DBDriver)

	// Блокируемся до сигнала
	b.Run(ctx)

	log.Info("✅ Бот корректно остановлен")
	return 0
}
