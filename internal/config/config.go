// ABOUTME: vamos configuration: JSON file, then .env, then environment overrides.
// ABOUTME: Also the factories that open the structured store, document store and cache.

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/harperreed/vamos/internal/cache"
	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/logger"
	"github.com/harperreed/vamos/internal/storage"
)

// PostgresConfig holds connection settings for the structured store.
type PostgresConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	DB       string `json:"db,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"sslmode,omitempty"`
}

// MongoConfig holds connection settings for the document store. URI wins over Host/Port.
type MongoConfig struct {
	URI  string `json:"uri,omitempty"`
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
	DB   string `json:"db,omitempty"`
}

// RedisConfig holds connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// Config stores vamos configuration.
type Config struct {
	// Backend selects the structured store: "postgres" (default) or "sqlite".
	Backend string `json:"backend,omitempty"`

	// DocStore selects the document store: "mongo" (default) or "memory".
	DocStore string `json:"docstore,omitempty"`

	// Cache selects the query cache: "badger" (default), "redis" or "none".
	Cache string `json:"cache,omitempty"`

	// DataDir holds vamos.db for sqlite and the badger cache directory.
	// Supports ~ expansion. Defaults to ~/.local/share/vamos.
	DataDir string `json:"data_dir,omitempty"`

	LogMode  string `json:"log_mode,omitempty"`
	HTTPAddr string `json:"http_addr,omitempty"`

	// AllowOrigins lists CORS origins for the HTTP API. Empty allows any.
	AllowOrigins []string `json:"allow_origins,omitempty"`

	Postgres PostgresConfig `json:"postgres,omitzero"`
	Mongo    MongoConfig    `json:"mongo,omitzero"`
	Redis    RedisConfig    `json:"redis,omitzero"`
}

// Defaults assume every store runs on localhost.
const (
	DefaultBackend  = storage.BackendPostgres
	DefaultDocStore = docstore.BackendMongo
	DefaultCache    = cache.BackendBadger
	DefaultHTTPAddr = ":8080"
	DefaultDBName   = "vamos_fitness"
)

// GetBackend returns the configured structured backend, defaulting to postgres.
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return DefaultBackend
	}
	return strings.ToLower(c.Backend)
}

func (c *Config) GetDocStore() string {
	if c.DocStore == "" {
		return DefaultDocStore
	}
	return strings.ToLower(c.DocStore)
}

func (c *Config) GetCache() string {
	if c.Cache == "" {
		return DefaultCache
	}
	return strings.ToLower(c.Cache)
}

func (c *Config) GetHTTPAddr() string {
	if c.HTTPAddr == "" {
		return DefaultHTTPAddr
	}
	return c.HTTPAddr
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return DataDir()
	}
	return ExpandPath(c.DataDir)
}

// PostgresDSN renders the postgres settings with defaults filled in.
func (c *Config) PostgresDSN() string {
	p := c.Postgres
	return storage.PostgresDSN(
		orDefault(p.Host, "localhost"),
		intOrDefault(p.Port, 5432),
		orDefault(p.DB, DefaultDBName),
		orDefault(p.User, "postgres"),
		orDefault(p.Password, "password"),
		p.SSLMode,
	)
}

// MongoURI returns the configured URI or one built from host and port.
func (c *Config) MongoURI() string {
	if c.Mongo.URI != "" {
		return c.Mongo.URI
	}
	return docstore.MongoURI(orDefault(c.Mongo.Host, "localhost"), intOrDefault(c.Mongo.Port, 27017))
}

func (c *Config) MongoDB() string {
	return orDefault(c.Mongo.DB, DefaultDBName)
}

func (c *Config) RedisAddr() string {
	return orDefault(c.Redis.Addr, "localhost:6379")
}

// OpenStructured opens the structured store selected by Backend.
func (c *Config) OpenStructured(ctx context.Context, log *logger.Logger) (*storage.Store, error) {
	switch c.GetBackend() {
	case storage.BackendPostgres:
		return storage.OpenPostgres(ctx, c.PostgresDSN(), log)
	case storage.BackendSQLite:
		return storage.OpenSQLite(ctx, filepath.Join(c.GetDataDir(), "vamos.db"), log)
	default:
		return nil, fmt.Errorf("unknown backend: %q", c.Backend)
	}
}

// OpenDocuments opens the document store selected by DocStore.
func (c *Config) OpenDocuments(ctx context.Context, log *logger.Logger) (docstore.Store, error) {
	switch c.GetDocStore() {
	case docstore.BackendMongo:
		return docstore.OpenMongo(ctx, c.MongoURI(), c.MongoDB(), log)
	case docstore.BackendMemory:
		return docstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown docstore: %q", c.DocStore)
	}
}

// OpenCache opens the query cache selected by Cache.
func (c *Config) OpenCache(ctx context.Context, log *logger.Logger) (cache.Cache, error) {
	switch c.GetCache() {
	case cache.BackendBadger:
		return cache.OpenBadger(filepath.Join(c.GetDataDir(), "cache"), log)
	case cache.BackendRedis:
		return cache.OpenRedis(ctx, c.RedisAddr(), c.Redis.Password, c.Redis.DB)
	case cache.BackendNone:
		return cache.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache: %q", c.Cache)
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DataDir returns the default data directory following XDG spec.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "vamos")
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "vamos", "config.json")
}

// Load reads the config file, then .env from the working directory, then the environment.
func Load() (*Config, error) {
	return load(GetConfigPath(), ".env")
}

func load(path, envFile string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	// godotenv never overrides variables that are already set.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables that are set.
func (c *Config) applyEnv() error {
	setString(&c.Backend, "VAMOS_BACKEND")
	setString(&c.DocStore, "VAMOS_DOCSTORE")
	setString(&c.Cache, "VAMOS_CACHE")
	setString(&c.DataDir, "VAMOS_DATA_DIR")
	setString(&c.LogMode, "VAMOS_LOG_MODE")
	setString(&c.HTTPAddr, "VAMOS_HTTP_ADDR")
	if v := os.Getenv("VAMOS_ALLOW_ORIGINS"); v != "" {
		c.AllowOrigins = splitList(v)
	}

	setString(&c.Postgres.Host, "PG_HOST")
	setString(&c.Postgres.DB, "PG_DB")
	setString(&c.Postgres.User, "PG_USER")
	setString(&c.Postgres.Password, "PG_PASSWORD")
	setString(&c.Postgres.SSLMode, "PG_SSLMODE")
	if err := setInt(&c.Postgres.Port, "PG_PORT"); err != nil {
		return err
	}

	setString(&c.Mongo.URI, "MONGO_URI")
	setString(&c.Mongo.Host, "MONGO_HOST")
	setString(&c.Mongo.DB, "MONGO_DB")
	if err := setInt(&c.Mongo.Port, "MONGO_PORT"); err != nil {
		return err
	}

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	return setInt(&c.Redis.DB, "REDIS_DB")
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: not an integer: %q", key, v)
	}
	*dst = n
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOrDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
