// Package db opens the Postgres pool and the stores built on it.
package db

import (
	"context"
	"fmt"

	"github.com/canopy-network/dao-indexer/pkg/db/postgres"
	"github.com/canopy-network/dao-indexer/pkg/db/postgres/admin"
	"github.com/canopy-network/dao-indexer/pkg/db/postgres/chain"
	"go.uber.org/zap"
)

// ChainSchema holds the organization registry and the event log.
const ChainSchema = "dao"

// Stores groups the stores sharing one pool.
type Stores struct {
	Client *postgres.Client
	Chain  *chain.DB
	Admin  *admin.DB
}

// Connect creates a new connection pool to PostgreSQL and initializes every
// schema.
func Connect(ctx context.Context, logger *zap.Logger, url, component string) (*Stores, error) {
	client, err := postgres.New(ctx, logger, url, &postgres.PoolConfig{
		Component: component,
		MinConns:  2,
		MaxConns:  20,
	})
	if err != nil {
		return nil, err
	}

	chainDB, err := chain.New(ctx, client, ChainSchema)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("init chain db: %w", err)
	}

	adminDB, err := admin.New(ctx, client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("init admin db: %w", err)
	}

	return &Stores{Client: client, Chain: chainDB, Admin: adminDB}, nil
}

// Close releases the pool.
func (s *Stores) Close() {
	s.Client.Close()
}
