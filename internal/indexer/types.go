package indexer

import (
	indexermodels "github.com/canopy-network/dao-indexer/pkg/db/models/indexer"
	"github.com/ethereum/go-ethereum/core/types"
)

// RangeData holds all RPC-fetched data for a block range.
// Phase 1 (fetchRange) populates this struct.
// Phase 2 (writeRange) consumes it for DB writes.
type RangeData struct {
	From uint64
	To   uint64

	// Organizations created inside the range.
	Organizations []indexermodels.Organization

	// Logs of every watched contract, removed logs excluded.
	Logs []types.Log

	// Backlog holds logs of newly found organizations above To and up to the
	// last indexed height. They are stored but not counted as range progress.
	Backlog []types.Log
}

// eventsByHeight counts logs per block.
func (d *RangeData) eventsByHeight() map[uint64]int {
	counts := make(map[uint64]int)
	for _, l := range d.Logs {
		counts[l.BlockNumber]++
	}
	return counts
}
