// ABOUTME: Embedded badger cache, on disk under the data directory or purely in memory.
// ABOUTME: Entry expiry uses badger's native per-key TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/harperreed/vamos/internal/logger"
)

// Badger is a Cache backed by an embedded badger database.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens a cache at dir. An empty dir keeps everything in memory.
func OpenBadger(dir string, log *logger.Logger) (*Badger, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log.With("component", "cache")})
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, bool, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

func (b *Badger) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (b *Badger) Invalidate(_ context.Context, prefix string) error {
	if prefix == "" {
		return b.db.DropAll()
	}
	return b.db.DropPrefix([]byte(prefix))
}

func (b *Badger) Backend() string { return BackendBadger }

func (b *Badger) Close() error { return b.db.Close() }

// badgerLogger routes badger's printf-style logging into zap. Info chatter is demoted to debug.
type badgerLogger struct {
	log *logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.SugaredLogger.Errorf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.SugaredLogger.Warnf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.SugaredLogger.Debugf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.SugaredLogger.Debugf(format, args...)
}
