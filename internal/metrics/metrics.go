// Package metrics — Prometheus-метрики бота.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FilesSaved — сохранённые файлы по типу медиа.
	FilesSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archivebot_files_saved_total",
			Help: "Количество сохранённых файлов",
		},
		[]string{"media"},
	)

	// BytesSaved — объём записанных данных.
	BytesSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archivebot_bytes_saved_total",
			Help: "Объём сохранённых файлов в байтах",
		},
	)

	// MediaSkipped — вложения, которые не сохранили, по причине.
	MediaSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archivebot_media_skipped_total",
			Help: "Вложения, пропущенные ботом",
		},
		[]string{"reason"},
	)

	// HandlerErrors — ошибки, дошедшие до границы обработчика.
	HandlerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archivebot_handler_errors_total",
			Help: "Необработанные ошибки в обработчиках событий",
		},
	)
)

// Handler — маршруты сервера метрик.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve отдаёт /metrics на addr до отмены ctx.
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("📈 метрики доступны", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
