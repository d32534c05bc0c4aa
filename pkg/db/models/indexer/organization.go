package indexer

import "time"

const OrganizationsTableName = "organizations"

// OrganizationColumns defines the schema for the organizations table.
var OrganizationColumns = []ColumnDef{
	{Name: "avatar", Type: "TEXT NOT NULL", PrimaryKey: true},
	{Name: "name", Type: "TEXT NOT NULL DEFAULT ''"},
	{Name: "controller", Type: "TEXT NOT NULL DEFAULT ''"},
	{Name: "token_address", Type: "TEXT NOT NULL"},
	{Name: "reputation_address", Type: "TEXT NOT NULL"},
	{Name: "voting_machine", Type: "TEXT NOT NULL DEFAULT ''"},
	{Name: "token_name", Type: "TEXT NOT NULL DEFAULT ''"},
	{Name: "token_symbol", Type: "TEXT NOT NULL DEFAULT ''"},
	{Name: "created_height", Type: "BIGINT NOT NULL"},
}

// Organization is a DAO registered by the creator contract together with the
// contracts whose logs are indexed for it.
type Organization struct {
	Avatar            string    `db:"avatar" json:"avatar"`
	Name              string    `db:"name" json:"name"`
	Controller        string    `db:"controller" json:"controller"`
	TokenAddress      string    `db:"token_address" json:"token_address"`
	ReputationAddress string    `db:"reputation_address" json:"reputation_address"`
	VotingMachine     string    `db:"voting_machine" json:"voting_machine,omitempty"`
	TokenName         string    `db:"token_name" json:"token_name"`
	TokenSymbol       string    `db:"token_symbol" json:"token_symbol"`
	CreatedHeight     uint64    `db:"created_height" json:"created_height"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Values returns the row values in OrganizationColumns order.
func (o *Organization) Values() []any {
	return []any{
		o.Avatar,
		o.Name,
		o.Controller,
		o.TokenAddress,
		o.ReputationAddress,
		o.VotingMachine,
		o.TokenName,
		o.TokenSymbol,
		int64(o.CreatedHeight),
	}
}
