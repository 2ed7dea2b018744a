package db

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const postgresDriverName = "pgx"

var ErrEmptyDSN = errors.New("postgres dsn is empty")

// NewPostgresDB connects through the pgx stdlib driver.
func NewPostgresDB(dsn string, opts ...SqliteOption) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}

	cfg := &config{
		maxOpenConns:    10,
		maxIdleConns:    2,
		connMaxLifetime: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	slog.Info("db", "driver", "jackc/pgx")
	db, err := sqlx.Connect(postgresDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	applyPool(db, cfg)
	return db, nil
}
