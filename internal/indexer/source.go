package indexer

import (
	"context"
	"fmt"

	indexermodels "github.com/canopy-network/dao-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/dao-indexer/pkg/contracts"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/canopy-network/dao-indexer/pkg/transform"
)

// LogStore reads stored logs of one contract and signature.
type LogStore interface {
	EventLogs(ctx context.Context, contract, topic0 string, from uint64, to *uint64) ([]indexermodels.EventLog, error)
}

// EventSource replays events from the index instead of the chain.
type EventSource struct {
	store LogStore
}

// NewEventSource creates an EventSource over store.
func NewEventSource(store LogStore) *EventSource {
	return &EventSource{store: store}
}

// Events implements ledger.EventSource.
func (s *EventSource) Events(ctx context.Context, q ledger.EventQuery) ([]ledger.Event, error) {
	def, err := contracts.Def(q.Kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.EventLogs(ctx, transform.AddressToHex(q.Contract), def.Topic().Hex(), q.FromBlock, q.ToBlock)
	if err != nil {
		return nil, fmt.Errorf("%s events of %s: %w", q.Kind, q.Contract.Hex(), err)
	}

	events := make([]ledger.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := transform.EventFromLog(q.Kind, RowToLog(row))
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
