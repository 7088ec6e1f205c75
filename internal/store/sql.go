package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/teleta/archivebot/internal/model"
)

const upsertSubscriber = `INSERT INTO subscribers
	(chat_id, chat_type, channel_name, active, accepted_media, verbose, sort_by_user, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (chat_id) DO UPDATE SET
		chat_type = excluded.chat_type,
		channel_name = excluded.channel_name,
		active = excluded.active,
		accepted_media = excluded.accepted_media,
		verbose = excluded.verbose,
		sort_by_user = excluded.sort_by_user`

const pgUniqueViolation = "23505"

type sqlBackend struct {
	db *sqlx.DB
}

func openSQL(driver, connection string) (*sqlBackend, error) {
	// SQLite: каталог под файл базы создаём сами
	if driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(connection), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect(driver, connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if driver == "sqlite" {
		// у SQLite один писатель
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	slog.Info("🗄️ база данных подключена", "driver", driver)

	if err := RunMigrations(db.DB, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlBackend{db: db}, nil
}

func (b *sqlBackend) get(ctx context.Context, chatID int64) (*model.Subscriber, error) {
	sub := &model.Subscriber{}
	err := b.db.GetContext(ctx, sub, `SELECT * FROM subscribers WHERE chat_id = $1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *sqlBackend) getByName(ctx context.Context, name string) (*model.Subscriber, error) {
	sub := &model.Subscriber{}
	err := b.db.GetContext(ctx, sub, `SELECT * FROM subscribers WHERE channel_name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *sqlBackend) put(ctx context.Context, subs []*model.Subscriber) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		var owner int64
		err := tx.GetContext(ctx, &owner,
			`SELECT chat_id FROM subscribers WHERE channel_name = $1 AND chat_id <> $2`,
			sub.ChannelName, sub.ChatID)
		switch {
		case err == nil:
			_ = tx.Rollback()
			return fmt.Errorf("%w: %q", ErrNameTaken, sub.ChannelName)
		case !errors.Is(err, sql.ErrNoRows):
			_ = tx.Rollback()
			return err
		}

		_, err = tx.ExecContext(ctx, upsertSubscriber,
			sub.ChatID,
			sub.ChatType,
			sub.ChannelName,
			sub.Active,
			sub.AcceptedMedia,
			sub.Verbose,
			sub.SortByUser,
			sub.CreatedAt,
		)
		if err != nil {
			_ = tx.Rollback()
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %q", ErrNameTaken, sub.ChannelName)
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrNameTaken
		}
		return err
	}
	return nil
}

func (b *sqlBackend) close() error {
	return b.db.Close()
}

// isUniqueViolation распознаёт нарушение UNIQUE у postgres и sqlite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
