// ABOUTME: Structured store connection and lifecycle management via gorm.
// ABOUTME: PostgreSQL in production, SQLite for local runs, demos and tests.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/harperreed/vamos/internal/logger"
	"github.com/harperreed/vamos/internal/storeerr"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Store wraps the gorm connection to the structured store.
type Store struct {
	db      *gorm.DB
	backend string
	log     *logger.Logger
}

// PostgresDSN builds a connection URL from discrete parameters.
func PostgresDSN(host string, port int, dbName, user, password, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + dbName,
		RawQuery: url.Values{"sslmode": {sslMode}, "connect_timeout": {"5"}}.Encode(),
	}
	return u.String()
}

// OpenPostgres connects to PostgreSQL at dsn.
func OpenPostgres(ctx context.Context, dsn string, log *logger.Logger) (*Store, error) {
	return open(ctx, postgres.Open(dsn), BackendPostgres, log)
}

// OpenSQLite opens or creates a SQLite database at path with foreign keys enforced.
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"
	return open(ctx, sqlite.Open(dsn), BackendSQLite, log)
}

func open(ctx context.Context, dialector gorm.Dialector, backend string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	gormLog := gormLogger.New(
		zap.NewStdLog(log.SugaredLogger.Desugar()),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, storeerr.Connect(backend, err)
	}

	s := &Store{db: db, backend: backend, log: log.With("store", backend)}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Backend returns "postgres" or "sqlite".
func (s *Store) Backend() string { return s.backend }

// DB exposes the underlying gorm handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storeerr.Connect(s.backend, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return storeerr.Connect(s.backend, sqlDB.PingContext(pingCtx))
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
