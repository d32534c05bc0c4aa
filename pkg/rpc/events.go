package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/canopy-network/dao-indexer/pkg/contracts"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/canopy-network/dao-indexer/pkg/transform"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// LogFilter selects raw logs in an inclusive block range.
// A nil To means "latest".
type LogFilter struct {
	From      uint64
	To        *uint64
	Addresses []common.Address
	Topics    []common.Hash
}

// Logs fetches raw logs matching the filter. An empty address list matches nothing.
func (c *Client) Logs(ctx context.Context, f LogFilter) ([]types.Log, error) {
	if len(f.Addresses) == 0 {
		return nil, nil
	}

	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(f.From),
		Addresses: f.Addresses,
	}
	if f.To != nil {
		q.ToBlock = new(big.Int).SetUint64(*f.To)
	}
	if len(f.Topics) > 0 {
		q.Topics = [][]common.Hash{f.Topics}
	}

	var logs []types.Log
	err := c.do(ctx, "eth_getLogs", func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		logs, err = ec.FilterLogs(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("rpc logs", "from", f.From, "addresses", len(f.Addresses), "count", len(logs))
	return logs, nil
}

// Events replays one event stream of one contract from the chain.
func (c *Client) Events(ctx context.Context, q ledger.EventQuery) ([]ledger.Event, error) {
	def, err := contracts.Def(q.Kind)
	if err != nil {
		return nil, err
	}

	logs, err := c.Logs(ctx, LogFilter{
		From:      q.FromBlock,
		To:        q.ToBlock,
		Addresses: []common.Address{q.Contract},
		Topics:    []common.Hash{def.Topic()},
	})
	if err != nil {
		return nil, fmt.Errorf("%s events of %s: %w", q.Kind, q.Contract.Hex(), err)
	}

	events := make([]ledger.Event, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		ev, err := transform.EventFromLog(q.Kind, l)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
