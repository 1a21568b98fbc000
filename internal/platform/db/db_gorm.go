// Package db opens and migrates the relational store used by every feature.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ngx_pipeline/internal/platform/logger"
)

// ErrUnavailable is returned when no connection could be established before the deadline.
var ErrUnavailable = errors.New("database unavailable")

// retryInterval is the wait between connection attempts.
var retryInterval = 3 * time.Second

// Config holds connection settings for the store.
type Config struct {
	Driver       string        `yaml:"driver" default:"postgres" validate:"oneof=postgres sqlite"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Name         string        `yaml:"name" default:"ngx"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         string        `yaml:"port" default:"5432"`
	SSLMode      string        `yaml:"sslmode" default:"disable"`
	InstanceName string        `yaml:"instance_name"` // Cloud SQL instance connection name
	SQLitePath   string        `yaml:"sqlite_path" default:"./ngx.db"`
	ConnTimeout  time.Duration `yaml:"connect_timeout" default:"60s"`
	Migrate      bool          `yaml:"migrate" default:"true"`
}

// LoadConfigFromEnv reads connection settings from DB_* environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		Driver:       envOr("DB_DRIVER", "postgres"),
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		Host:         os.Getenv("DB_HOST"),
		Port:         os.Getenv("DB_PORT"),
		SSLMode:      envOr("DB_SSLMODE", "disable"),
		InstanceName: os.Getenv("INSTANCE_CONNECTION_NAME"),
		SQLitePath:   envOr("DB_SQLITE_PATH", "./ngx.db"),
		ConnTimeout:  60 * time.Second,
		Migrate:      os.Getenv("RUN_MIGRATIONS") == "true",
	}
}

// ApplyEnv overrides cfg with any DB_* variables that are set.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Driver, "DB_DRIVER")
	set(&c.User, "DB_USER")
	set(&c.Password, "DB_PASSWORD")
	set(&c.Name, "DB_NAME")
	set(&c.Host, "DB_HOST")
	set(&c.Port, "DB_PORT")
	set(&c.SSLMode, "DB_SSLMODE")
	set(&c.InstanceName, "INSTANCE_CONNECTION_NAME")
	set(&c.SQLitePath, "DB_SQLITE_PATH")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// BuildDSN returns a PostgreSQL keyword/value DSN.
// When InstanceName is set the Cloud SQL unix socket is used instead of Host/Port.
func BuildDSN(cfg Config) string {
	host := cfg.Host
	port := cfg.Port
	if cfg.InstanceName != "" {
		host = "/cloudsql/" + cfg.InstanceName
		port = ""
	}

	parts := []string{
		"host=" + host,
		"user=" + cfg.User,
		"password=" + cfg.Password,
		"dbname=" + cfg.Name,
	}
	if port != "" {
		parts = append(parts, "port="+port)
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts = append(parts, "sslmode="+sslmode, "TimeZone=UTC")
	return strings.Join(parts, " ")
}

// Opener opens a gorm connection for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// ConnectWithRetry calls opener until it succeeds or timeout elapses.
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w after %s: %w", ErrUnavailable, timeout, err)
		}
		wait := retryInterval
		if wait > remaining {
			wait = remaining
		}
		time.Sleep(wait)
	}
}

// Open connects according to cfg and runs AutoMigrate for models when cfg.Migrate is set.
func Open(cfg Config, log *logger.Logger, models ...interface{}) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var opener Opener
	var dsn string
	switch cfg.Driver {
	case "sqlite":
		dsn = cfg.SQLitePath
		opener = func(dsn string) (*gorm.DB, error) { return gorm.Open(sqlite.Open(dsn), gcfg) }
	default:
		dsn = BuildDSN(cfg)
		opener = func(dsn string) (*gorm.DB, error) {
			db, err := gorm.Open(postgres.Open(dsn), gcfg)
			if err != nil {
				log.Warn("db connect failed, retrying", logger.Error(err))
			}
			return db, err
		}
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	db, err := ConnectWithRetry(dsn, timeout, opener)
	if err != nil {
		return nil, err
	}

	if cfg.Migrate && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	log.Info("database ready", logger.String("driver", cfg.Driver), logger.Bool("migrated", cfg.Migrate))
	return db, nil
}

// Pinger checks that the underlying connection pool can reach the server.
type Pinger struct {
	db *gorm.DB
}

func NewPinger(db *gorm.DB) *Pinger {
	return &Pinger{db: db}
}

// Ping returns ErrUnavailable wrapped around the driver error when the store cannot be reached.
func (p *Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// IsConstraintViolation reports whether err came from an integrity constraint
// (unique, check, not-null, foreign key).
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite reports constraint failures only through the message text.
	return strings.Contains(strings.ToLower(err.Error()), "constraint failed")
}
