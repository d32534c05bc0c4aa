package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	indexermodels "github.com/canopy-network/dao-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/dao-indexer/pkg/contracts"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/canopy-network/dao-indexer/pkg/rpc"
	"github.com/canopy-network/dao-indexer/pkg/transform"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

// fetchRange fetches all data needed for indexing [from, to].
// Any RPC failure causes immediate return with error (NACK semantics).
func (idx *Indexer) fetchRange(ctx context.Context, from, to uint64) (*RangeData, error) {
	orgs, err := idx.discover(ctx, from, to)
	if err != nil {
		return nil, err
	}

	stored, err := idx.orgs.WatchedAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("watched addresses: %w", err)
	}

	logs, err := idx.rpc.Logs(ctx, rpc.LogFilter{
		From:      from,
		To:        &to,
		Addresses: idx.watched(stored, orgs),
		Topics:    contracts.Topics(),
	})
	if err != nil {
		return nil, fmt.Errorf("logs: %w", err)
	}

	data := &RangeData{From: from, To: to, Organizations: orgs, Logs: live(logs)}

	// Heights above the range may already be indexed without these contracts.
	if fresh := unregistered(stored, orgs); len(fresh) > 0 {
		last, err := idx.progress.LastIndexed(ctx)
		if err != nil {
			return nil, fmt.Errorf("last indexed: %w", err)
		}
		if last > to {
			if data.Backlog, err = idx.backlog(ctx, fresh, to+1, last); err != nil {
				return nil, err
			}
		}
	}
	return data, nil
}

// backlog fetches the logs orgs emitted in [from, to], starting no earlier than
// each organization's creation height.
func (idx *Indexer) backlog(ctx context.Context, orgs []indexermodels.Organization, from, to uint64) ([]types.Log, error) {
	var out []types.Log
	for _, o := range orgs {
		start := max(from, o.CreatedHeight)
		if start > to {
			continue
		}
		addrs := orgContracts(o)
		for lo := start; lo <= to; lo += idx.cfg.BacklogChunk {
			hi := min(lo+idx.cfg.BacklogChunk-1, to)
			logs, err := idx.rpc.Logs(ctx, rpc.LogFilter{
				From:      lo,
				To:        &hi,
				Addresses: addrs,
				Topics:    contracts.Topics(),
			})
			if err != nil {
				return nil, fmt.Errorf("backlog of %s [%d, %d]: %w", o.Avatar, lo, hi, err)
			}
			out = append(out, live(logs)...)
		}
		slog.Info("caught up organization history",
			"org", o.Avatar,
			"from", start,
			"to", to,
		)
	}
	return out, nil
}

// unregistered returns the organizations whose token contract is not watched yet.
func unregistered(stored []string, orgs []indexermodels.Organization) []indexermodels.Organization {
	known := make(map[string]bool, len(stored))
	for _, s := range stored {
		known[strings.ToLower(s)] = true
	}
	var out []indexermodels.Organization
	for _, o := range orgs {
		if !known[strings.ToLower(o.TokenAddress)] {
			out = append(out, o)
		}
	}
	return out
}

func live(logs []types.Log) []types.Log {
	out := make([]types.Log, 0, len(logs))
	for _, l := range logs {
		if !l.Removed {
			out = append(out, l)
		}
	}
	return out
}

// discover finds organizations created in [from, to] and reads their identity.
func (idx *Indexer) discover(ctx context.Context, from, to uint64) ([]indexermodels.Organization, error) {
	logs, err := idx.rpc.Logs(ctx, rpc.LogFilter{
		From:      from,
		To:        &to,
		Addresses: []common.Address{idx.cfg.Creator},
		Topics:    []common.Hash{contracts.Topic(ledger.OrganizationCreated)},
	})
	if err != nil {
		return nil, fmt.Errorf("organization logs: %w", err)
	}

	var (
		avatars []common.Address
		heights = make(map[common.Address]uint64)
	)
	for _, l := range logs {
		if l.Removed {
			continue
		}
		ev, err := transform.EventFromLog(ledger.OrganizationCreated, l)
		if err != nil {
			return nil, err
		}
		if _, ok := heights[ev.Organization]; ok {
			continue
		}
		heights[ev.Organization] = ev.BlockNumber
		avatars = append(avatars, ev.Organization)
	}
	if len(avatars) == 0 {
		return nil, nil
	}

	orgs := make([]indexermodels.Organization, len(avatars))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(idx.cfg.DiscoveryConcurrency)
	for i, avatar := range avatars {
		i, avatar := i, avatar
		g.Go(func() error {
			id, err := idx.rpc.Identity(gCtx, avatar)
			if err != nil {
				return fmt.Errorf("identity of %s: %w", avatar.Hex(), err)
			}
			machine, err := idx.rpc.VotingMachine(gCtx, avatar, idx.cfg.Scheme)
			if errors.Is(err, ledger.ErrNotFound) {
				slog.Warn("organization has no voting machine for scheme",
					"org", avatar.Hex(),
					"scheme", idx.cfg.Scheme.Hex(),
				)
			} else if err != nil {
				return fmt.Errorf("voting machine of %s: %w", avatar.Hex(), err)
			}
			orgs[i] = organizationRow(id, machine, heights[avatar])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("discovered organizations",
		"from", from,
		"to", to,
		"count", len(orgs),
	)
	return orgs, nil
}

// watched merges the shared contracts, stored organization contracts and newly
// discovered ones.
func (idx *Indexer) watched(stored []string, discovered []indexermodels.Organization) []common.Address {
	seen := make(map[common.Address]struct{})
	var out []common.Address
	add := func(a common.Address) {
		if a == (common.Address{}) {
			return
		}
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}

	add(idx.cfg.Creator)
	add(idx.cfg.Scheme)
	for _, s := range stored {
		add(common.HexToAddress(s))
	}
	for _, o := range discovered {
		for _, a := range orgContracts(o) {
			add(a)
		}
	}
	return out
}

// orgContracts returns the organization's token, reputation and voting machine.
func orgContracts(o indexermodels.Organization) []common.Address {
	out := []common.Address{
		common.HexToAddress(o.TokenAddress),
		common.HexToAddress(o.ReputationAddress),
	}
	if o.VotingMachine != "" {
		out = append(out, common.HexToAddress(o.VotingMachine))
	}
	return out
}
