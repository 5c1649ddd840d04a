// ABOUTME: Badger implementation of the subscription Store
// ABOUTME: Stores each subscription as JSON under a "sub:" prefixed key

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	apperrors "github.com/2389/rail-scout/internal/errors"
)

const keyPrefix = "sub:"

// BadgerStore implements Store on top of an embedded Badger database.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewBadgerStore opens (or creates) a Badger database in dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	return openBadger(badger.DefaultOptions(dir))
}

// NewInMemoryBadgerStore opens a Badger database that lives only in memory.
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true))
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	// Badger's own logger is chatty at INFO; our slog output covers it.
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	logger := slog.Default().With("component", "subscription", "driver", "badger")
	logger.Info("badger store initialized", "dir", opts.Dir, "in_memory", opts.InMemory)
	return &BadgerStore{db: db, logger: logger, now: time.Now}, nil
}

// Put writes sub under key.
func (s *BadgerStore) Put(ctx context.Context, key string, sub Subscription) (string, error) {
	sub, err := prepare(key, sub, s.now())
	if err != nil {
		return "", err
	}
	data, err := encode(sub)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbKey(sub.ID), data)
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindStorage, "put", "writing subscription", err)
	}
	return sub.ID, nil
}

// Get returns the subscription stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) (Subscription, error) {
	var sub Subscription
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			sub, err = decode(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Subscription{}, notFound(key)
	}
	if err != nil {
		return Subscription{}, storageErr("get", err)
	}
	return sub, nil
}

// Delete removes key.
func (s *BadgerStore) Delete(ctx context.Context, key string) (string, error) {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(dbKey(key)); err != nil {
			return err
		}
		return txn.Delete(dbKey(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", notFound(key)
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindStorage, "delete", "removing subscription", err)
	}
	return key, nil
}

// List returns all subscriptions.
func (s *BadgerStore) List(ctx context.Context) (map[string]Subscription, error) {
	out := make(map[string]Subscription)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				sub, err := decode(val)
				if err != nil {
					s.logger.Warn("skipping unreadable subscription", "key", string(item.Key()), "error", err)
					return nil
				}
				out[sub.ID] = sub
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("list", err)
	}
	return out, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func dbKey(id string) []byte {
	return []byte(keyPrefix + id)
}

func storageErr(op string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.KindStorage, op, "reading subscriptions", err)
}
