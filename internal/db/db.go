package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// import db drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sevigo/diffwarden/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// DB is a wrapper around the sqlx.DB connection pool.
type DB struct {
	*sqlx.DB
	driver string
	logger *slog.Logger
}

// NewDatabase opens the configured database. Migrations are applied
// separately with RunMigrations.
func NewDatabase(cfg *config.DBConfig, logger *slog.Logger) (*DB, func(), error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}
	dsn, err := DataSourceName(driver, cfg)
	if err != nil {
		return nil, func() {}, err
	}

	if driver == DriverSQLite {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, func() {}, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		conn.SetMaxOpenConns(1)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, func() {}, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("connected to history database", "driver", driver)

	return &DB{DB: conn, driver: driver, logger: logger}, func() {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close database connection", "error", err)
		}
	}, nil
}

// DataSourceName builds the connection string for driver. SQLite waits for
// locks instead of failing immediately and uses write-ahead logging so history
// can be read while a review is saved.
func DataSourceName(driver string, cfg *config.DBConfig) (string, error) {
	switch driver {
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.Username, cfg.Password),
			Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:     "/" + cfg.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return "", errors.New("database.path must be set for sqlite3")
		}
		return "file:" + cfg.Path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// RunMigrations executes pending database migrations embedded in the binary.
// It refuses to run on a database left dirty by a failed migration.
func (db *DB) RunMigrations() error {
	migrator, err := db.newMigrator()
	if err != nil {
		return err
	}
	db.logger.Info("running database migrations", "driver", db.driver)

	_, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		return errors.New("failed to apply migrations: database is in a dirty state, fix it with 'migrate force <version>' after checking the failed migration")
	}

	err = migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// newMigrator creates a new migrate instance using the embedded migration files.
func (db *DB) newMigrator() (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations/"+db.driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	var dbDriver database.Driver
	switch db.driver {
	case DriverSQLite:
		dbDriver, err = migratesqlite.WithInstance(db.DB.DB, &migratesqlite.Config{})
	default:
		dbDriver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, db.driver, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return migrator, nil
}

// Driver returns the name of the SQL driver in use.
func (db *DB) Driver() string {
	return db.driver
}
