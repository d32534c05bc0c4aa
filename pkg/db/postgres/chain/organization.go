package chain

import (
	"context"
	"fmt"

	indexermodels "github.com/canopy-network/dao-indexer/pkg/db/models/indexer"
	"github.com/jackc/pgx/v5"
)

// initOrganizations creates the organizations table
func (db *DB) initOrganizations(ctx context.Context) error {
	table := db.SchemaTable(indexermodels.OrganizationsTableName)
	query := fmt.Sprintf(`
		%s;

		ALTER TABLE %s ADD COLUMN IF NOT EXISTS updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW();
	`, indexermodels.CreateTableSQL(table, indexermodels.OrganizationColumns), table)

	return db.Exec(ctx, query)
}

func (db *DB) upsertOrganizationSQL() string {
	return indexermodels.InsertSQL(
		db.SchemaTable(indexermodels.OrganizationsTableName),
		indexermodels.OrganizationColumns,
		`ON CONFLICT (avatar) DO UPDATE SET
			name = EXCLUDED.name,
			controller = EXCLUDED.controller,
			token_address = EXCLUDED.token_address,
			reputation_address = EXCLUDED.reputation_address,
			voting_machine = EXCLUDED.voting_machine,
			token_name = EXCLUDED.token_name,
			token_symbol = EXCLUDED.token_symbol,
			created_height = LEAST(`+db.SchemaTable(indexermodels.OrganizationsTableName)+`.created_height, EXCLUDED.created_height),
			updated_at = NOW()`,
	)
}

// UpsertOrganization inserts or refreshes an organization. The earliest
// created_height wins.
func (db *DB) UpsertOrganization(ctx context.Context, org *indexermodels.Organization) error {
	return db.Exec(ctx, db.upsertOrganizationSQL(), org.Values()...)
}

// QueueOrganization adds an upsert of org to batch.
func (db *DB) QueueOrganization(batch *pgx.Batch, org *indexermodels.Organization) {
	batch.Queue(db.upsertOrganizationSQL(), org.Values()...)
}

// ListOrganizations returns every known organization in creation order.
func (db *DB) ListOrganizations(ctx context.Context) ([]indexermodels.Organization, error) {
	query := fmt.Sprintf(`
		SELECT avatar, name, controller, token_address, reputation_address, voting_machine,
		       token_name, token_symbol, created_height, updated_at
		FROM %s
		ORDER BY created_height, avatar
	`, db.SchemaTable(indexermodels.OrganizationsTableName))

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []indexermodels.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, *org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orgs, nil
}

// WatchedAddresses returns every contract whose logs belong in the index:
// each organization's token, reputation and voting machine.
func (db *DB) WatchedAddresses(ctx context.Context) ([]string, error) {
	orgs, err := db.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var addrs []string
	for _, o := range orgs {
		for _, a := range []string{o.TokenAddress, o.ReputationAddress, o.VotingMachine} {
			if a == "" {
				continue
			}
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			addrs = append(addrs, a)
		}
	}
	return addrs, nil
}

func scanOrganization(row pgx.Row) (*indexermodels.Organization, error) {
	var (
		org     indexermodels.Organization
		created int64
	)
	err := row.Scan(
		&org.Avatar,
		&org.Name,
		&org.Controller,
		&org.TokenAddress,
		&org.ReputationAddress,
		&org.VotingMachine,
		&org.TokenName,
		&org.TokenSymbol,
		&created,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	org.CreatedHeight = uint64(created)
	return &org, nil
}
