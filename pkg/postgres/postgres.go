package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Config mirrors pkg/redis.Config for the SQL side.
type Config struct {
	DSN             string `envconfig:"POSTGRES_DSN" default:"postgres://localhost:5432/orderbot?sslmode=disable"`
	MaxOpenConns    int    `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int    `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime string `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"30m"`
	PingTimeout     int    `envconfig:"POSTGRES_PING_TIMEOUT" default:"5"`
}

func (c *Config) New() (*sql.DB, error) {
	db, err := sql.Open("postgres", c.DSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	if d, err := time.ParseDuration(c.ConnMaxLifetime); err == nil {
		db.SetConnMaxLifetime(d)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.PingTimeout)*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
