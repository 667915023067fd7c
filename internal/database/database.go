package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
)

// Config holds the Postgres connection settings.
type Config struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

// Configured reports whether enough settings are present to open a
// connection. When false the caller falls back to the in-memory store.
func (c Config) Configured() bool {
	return c.Host != "" && c.Database != ""
}

// NewPostgres opens a database/sql handle over the pgx driver and verifies
// the connection with a ping.
func NewPostgres(cfg Config) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Schema,
	)

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
