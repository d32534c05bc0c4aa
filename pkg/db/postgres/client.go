// Package postgres wraps a pgx connection pool with the small query surface the
// stores use.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig tunes the connection pool. Zero values keep the pgx defaults.
type PoolConfig struct {
	Component       string
	MinConns        int32
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Client is a pgx pool plus a logger.
type Client struct {
	Pool   *pgxpool.Pool
	Logger *zap.Logger
}

// New connects to url and pings the server.
func New(ctx context.Context, logger *zap.Logger, url string, poolConfig *PoolConfig) (*Client, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if poolConfig != nil {
		if poolConfig.Component != "" {
			config.ConnConfig.RuntimeParams["application_name"] = "dao-indexer-" + poolConfig.Component
		}
		if poolConfig.MinConns > 0 {
			config.MinConns = poolConfig.MinConns
		}
		if poolConfig.MaxConns > 0 {
			config.MaxConns = poolConfig.MaxConns
		}
		if poolConfig.MaxConnLifetime > 0 {
			config.MaxConnLifetime = poolConfig.MaxConnLifetime
		}
		if poolConfig.MaxConnIdleTime > 0 {
			config.MaxConnIdleTime = poolConfig.MaxConnIdleTime
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Connected to postgres",
		zap.String("host", config.ConnConfig.Host),
		zap.String("database", config.ConnConfig.Database),
		zap.Int32("max_conns", config.MaxConns),
	)

	return &Client{Pool: pool, Logger: logger}, nil
}

// Close releases the pool.
func (c *Client) Close() {
	c.Pool.Close()
}

// Exec runs a statement that returns no rows.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.Pool.Exec(ctx, query, args...)
	return err
}

func (c *Client) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return c.Pool.Query(ctx, query, args...)
}

func (c *Client) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return c.Pool.QueryRow(ctx, query, args...)
}

// BeginFunc runs fn in a transaction, committing when fn returns nil.
func (c *Client) BeginFunc(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, c.Pool, fn)
}

// PrepareBatch returns an empty batch for queueing statements.
func (c *Client) PrepareBatch(_ context.Context) *pgx.Batch {
	return &pgx.Batch{}
}

// CreateSchemaIfNotExists creates schema when missing.
func (c *Client) CreateSchemaIfNotExists(ctx context.Context, schema string) error {
	query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{SanitizeName(schema)}.Sanitize())
	return c.Exec(ctx, query)
}

// ExecBatch sends b inside tx and checks every statement result.
func ExecBatch(ctx context.Context, tx pgx.Tx, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return br.Close()
}

var invalidNameChars = regexp.MustCompile(`[^a-z0-9_]`)

// SanitizeName lowercases name and replaces characters that are not valid in an
// unquoted identifier.
func SanitizeName(name string) string {
	s := invalidNameChars.ReplaceAllString(strings.ToLower(name), "_")
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "_" + s
	}
	return s
}
