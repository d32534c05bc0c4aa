package admin

import (
	"context"
	"fmt"

	"github.com/canopy-network/dao-indexer/pkg/db/postgres"
	"go.uber.org/zap"
)

// DB represents a PostgreSQL database connection for handling admin operations
type DB struct {
	*postgres.Client
	Schema string // Schema name (e.g., "admin")
}

// New wraps client and ensures the admin schema and tables exist.
func New(ctx context.Context, client *postgres.Client) (*DB, error) {
	schemaName := "admin"

	adminDB := &DB{
		Client: &postgres.Client{
			Pool:   client.Pool,
			Logger: client.Logger.With(zap.String("schema", schemaName)),
		},
		Schema: schemaName,
	}

	if err := adminDB.InitializeDB(ctx); err != nil {
		return nil, err
	}

	return adminDB, nil
}

// SchemaTable returns a schema-qualified table name
func (db *DB) SchemaTable(tableName string) string {
	return fmt.Sprintf("%s.%s", db.Schema, tableName)
}

// InitializeDB ensures the required schema and tables exist
func (db *DB) InitializeDB(ctx context.Context) error {
	db.Logger.Info("Initializing admin database", zap.String("schema", db.Schema))

	if err := db.CreateSchemaIfNotExists(ctx, db.Schema); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", db.Schema, err)
	}

	db.Logger.Info("Initialize index_progress table")
	if err := db.initIndexProgress(ctx); err != nil {
		return err
	}

	return nil
}
