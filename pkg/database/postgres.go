package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Postgres wraps the pooled connection backing the credential store.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres opens a connection pool and verifies it with one ping.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Postgres{DB: db}, nil
}

func (p *Postgres) Close() error {
	return p.DB.Close()
}

// Ping reports whether the database is reachable, used by /health.
func (p *Postgres) Ping() error {
	return p.DB.Ping()
}
