package indexer

import (
	indexermodels "github.com/canopy-network/dao-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/canopy-network/dao-indexer/pkg/transform"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogToRow converts a chain log to its dao_events row.
func LogToRow(l types.Log) indexermodels.EventLog {
	row := indexermodels.EventLog{
		TxHash:      l.TxHash.Hex(),
		LogIndex:    uint32(l.Index),
		BlockNumber: l.BlockNumber,
		BlockHash:   l.BlockHash.Hex(),
		Contract:    transform.AddressToHex(l.Address),
		Data:        l.Data,
	}
	if len(l.Topics) > 0 {
		row.Topic0 = l.Topics[0].Hex()
		row.Topics = transform.HashesToHex(l.Topics[1:])
	}
	return row
}

// RowToLog rebuilds the chain log stored in a dao_events row.
func RowToLog(row indexermodels.EventLog) types.Log {
	topics := make([]common.Hash, 0, len(row.Topics)+1)
	if row.Topic0 != "" {
		topics = append(topics, common.HexToHash(row.Topic0))
	}
	topics = append(topics, transform.HexToHashes(row.Topics)...)

	return types.Log{
		Address:     common.HexToAddress(row.Contract),
		Topics:      topics,
		Data:        row.Data,
		BlockNumber: row.BlockNumber,
		TxHash:      common.HexToHash(row.TxHash),
		BlockHash:   common.HexToHash(row.BlockHash),
		Index:       uint(row.LogIndex),
	}
}

// organizationRow builds an organizations row. A zero machine is stored empty.
func organizationRow(id *ledger.Identity, machine common.Address, createdHeight uint64) indexermodels.Organization {
	org := indexermodels.Organization{
		Avatar:            transform.AddressToHex(id.Avatar),
		Name:              id.Name,
		Controller:        transform.AddressToHex(id.Controller),
		TokenAddress:      transform.AddressToHex(id.TokenAddress),
		ReputationAddress: transform.AddressToHex(id.ReputationAddress),
		TokenName:         id.TokenName,
		TokenSymbol:       id.TokenSymbol,
		CreatedHeight:     createdHeight,
	}
	if machine != (common.Address{}) {
		org.VotingMachine = transform.AddressToHex(machine)
	}
	return org
}
