// Package ledger defines the domain types and the query surface the reconstructor
// uses to read organization state from an EVM chain.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound is returned when an organization or contract has no code or state.
	ErrNotFound = errors.New("ledger: not found")

	// ErrNoSigner is returned by transaction submission when no key is configured.
	ErrNoSigner = errors.New("ledger: no signer configured")
)

// Reader answers point-in-time queries against the latest block.
type Reader interface {
	Identity(ctx context.Context, org common.Address) (*Identity, error)
	TotalSupply(ctx context.Context, contract common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error)
	Reputation(ctx context.Context, reputation, holder common.Address) (*big.Int, error)
	VotingMachine(ctx context.Context, org, scheme common.Address) (common.Address, error)
	VotesStatus(ctx context.Context, machine common.Address, proposalID common.Hash) (*VoteStatus, error)
}

// EventSource replays historical events of one kind emitted by one contract,
// ordered by block number and log index.
type EventSource interface {
	Events(ctx context.Context, q EventQuery) ([]Event, error)
}

// Transactor submits transactions and waits for them to be mined.
type Transactor interface {
	ProposeContributionReward(ctx context.Context, scheme common.Address, req ProposalRequest) (*Receipt, error)
	Vote(ctx context.Context, machine common.Address, proposalID common.Hash, vote uint64) (*Receipt, error)
}

// FindEvent returns the first event of the given kind in the receipt.
func (r *Receipt) FindEvent(kind EventKind) (Event, bool) {
	if r == nil {
		return Event{}, false
	}
	for _, ev := range r.Events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}
