package chain

import (
	"context"
	"fmt"

	"github.com/canopy-network/dao-indexer/pkg/db/postgres"
	"go.uber.org/zap"
)

// DB holds the organization registry and the raw event log.
type DB struct {
	*postgres.Client
	Schema string // Schema name (e.g., "dao")
}

// New wraps client and ensures the schema and tables exist.
func New(ctx context.Context, client *postgres.Client, schema string) (*DB, error) {
	db := &DB{
		Client: &postgres.Client{
			Pool:   client.Pool,
			Logger: client.Logger.With(zap.String("schema", schema)),
		},
		Schema: postgres.SanitizeName(schema),
	}
	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// SchemaTable returns a schema-qualified table name
func (db *DB) SchemaTable(tableName string) string {
	return fmt.Sprintf("%s.%s", db.Schema, tableName)
}

// InitializeDB ensures the required schema and tables exist
func (db *DB) InitializeDB(ctx context.Context) error {
	if err := db.CreateSchemaIfNotExists(ctx, db.Schema); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", db.Schema, err)
	}

	db.Logger.Info("Initialize organizations table")
	if err := db.initOrganizations(ctx); err != nil {
		return fmt.Errorf("init organizations: %w", err)
	}

	db.Logger.Info("Initialize dao_events table")
	if err := db.initEventLogs(ctx); err != nil {
		return fmt.Errorf("init dao_events: %w", err)
	}
	return nil
}
