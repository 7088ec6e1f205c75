package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/boltdb/bolt"

	"github.com/teleta/archivebot/internal/model"
)

var subscribersBucket = []byte("subscribers")

type boltBackend struct {
	db *bolt.DB
}

func openBolt(path string) (*boltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open bolt database %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(subscribersBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not ensure bucket exists: %w", err)
	}
	return &boltBackend{db: db}, nil
}

func (b *boltBackend) get(_ context.Context, chatID int64) (*model.Subscriber, error) {
	var sub *model.Subscriber
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(subscribersBucket).Get(id2key(chatID))
		if v == nil {
			return ErrSubscriberNotFound
		}
		sub = &model.Subscriber{}
		return json.Unmarshal(v, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *boltBackend) getByName(_ context.Context, name string) (*model.Subscriber, error) {
	var found *model.Subscriber
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(subscribersBucket).ForEach(func(_, v []byte) error {
			if found != nil {
				return nil
			}
			var sub model.Subscriber
			if err := json.Unmarshal(v, &sub); err != nil {
				return err
			}
			if sub.ChannelName == name {
				found = &sub
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrSubscriberNotFound
	}
	return found, nil
}

func (b *boltBackend) put(_ context.Context, subs []*model.Subscriber) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(subscribersBucket)

		names := make(map[int64]string)
		if err := bucket.ForEach(func(_, v []byte) error {
			var sub model.Subscriber
			if err := json.Unmarshal(v, &sub); err != nil {
				return err
			}
			names[sub.ChatID] = sub.ChannelName
			return nil
		}); err != nil {
			return err
		}
		if err := checkNames(names, subs); err != nil {
			return err
		}

		for _, sub := range subs {
			v, err := json.Marshal(sub)
			if err != nil {
				return err
			}
			if err := bucket.Put(id2key(sub.ChatID), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *boltBackend) close() error {
	return b.db.Close()
}

func id2key(id int64) []byte {
	return []byte(strconv.FormatInt(id, 10))
}
