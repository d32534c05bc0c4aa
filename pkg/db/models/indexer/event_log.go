package indexer

const EventLogsTableName = "dao_events"

// EventLogColumns defines the schema for the dao_events table.
// Raw logs are stored undecoded: token and reputation Mint share a signature and
// are told apart at read time by the contract that emitted them.
var EventLogColumns = []ColumnDef{
	{Name: "tx_hash", Type: "TEXT NOT NULL", PrimaryKey: true},
	{Name: "log_index", Type: "INTEGER NOT NULL", PrimaryKey: true},
	{Name: "block_number", Type: "BIGINT NOT NULL"},
	{Name: "block_hash", Type: "TEXT NOT NULL"},
	{Name: "contract", Type: "TEXT NOT NULL"},
	{Name: "topic0", Type: "TEXT NOT NULL"},
	{Name: "topics", Type: "TEXT[] NOT NULL DEFAULT '{}'"},
	{Name: "data", Type: "BYTEA NOT NULL DEFAULT ''"},
}

// EventLog is one raw contract log. Addresses and hashes are lowercase 0x hex.
type EventLog struct {
	TxHash      string   `db:"tx_hash" json:"tx_hash"`
	LogIndex    uint32   `db:"log_index" json:"log_index"`
	BlockNumber uint64   `db:"block_number" json:"block_number"`
	BlockHash   string   `db:"block_hash" json:"block_hash"`
	Contract    string   `db:"contract" json:"contract"`
	Topic0      string   `db:"topic0" json:"topic0"`
	Topics      []string `db:"topics" json:"topics"` // topics after topic0
	Data        []byte   `db:"data" json:"data"`
}

// Values returns the row values in EventLogColumns order.
func (e *EventLog) Values() []any {
	topics := e.Topics
	if topics == nil {
		topics = []string{}
	}
	data := e.Data
	if data == nil {
		data = []byte{}
	}
	return []any{e.TxHash, int32(e.LogIndex), int64(e.BlockNumber), e.BlockHash, e.Contract, e.Topic0, topics, data}
}
