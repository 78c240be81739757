package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tulips/tulips-api/internal/config"
)

const defaultMaxConns = 25

// Database wraps the connection pool for the snapshot database. The pool is
// sized from config; snapshot writes are short bursts, so idle and open
// connections share one limit.
type Database struct {
	db *sqlx.DB
}

// NewDatabase opens the snapshot database and verifies the connection.
func NewDatabase(cfg config.DatabaseConfig) (*Database, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect snapshot database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// DB exposes the pool for reads outside a transaction.
func (d *Database) DB() *sqlx.DB {
	return d.db
}

// Transaction runs fn in a transaction, rolling back on error or panic.
func (d *Database) Transaction(fn func(*sqlx.Tx) error) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
