// Package reconstruct rebuilds organization snapshots by replaying contract
// event streams and reading current balances.
package reconstruct

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Describer looks up the human-written description of a proposal.
type Describer interface {
	Description(ctx context.Context, proposalID common.Hash) (string, bool, error)
}

// Config locates the contracts every organization shares.
type Config struct {
	// Scheme is the ContributionReward scheme that grants proposals.
	Scheme common.Address
	// Creator is the DaoCreator contract that emits NewOrg.
	Creator common.Address
	// GenesisBlock is the first block replayed.
	GenesisBlock uint64
}

// Reconstructor builds organization snapshots. All reads within one snapshot are
// sequential.
type Reconstructor struct {
	cfg       Config
	reader    ledger.Reader
	events    ledger.EventSource
	describer Describer
}

// New creates a Reconstructor. describer may be nil, in which case proposals
// are described by their on-chain hash.
func New(cfg Config, reader ledger.Reader, events ledger.EventSource, describer Describer) *Reconstructor {
	return &Reconstructor{
		cfg:       cfg,
		reader:    reader,
		events:    events,
		describer: describer,
	}
}

// Snapshot returns the state of org. Summary snapshots carry identity and supply
// only; detailed snapshots add members and proposals. Any ledger failure aborts
// the whole snapshot.
func (r *Reconstructor) Snapshot(ctx context.Context, org common.Address, detailed bool) (*Organization, error) {
	start := time.Now()

	snap, err := r.summary(ctx, org)
	if err != nil {
		return nil, err
	}
	if !detailed {
		return snap, nil
	}

	members, err := r.members(ctx, snap.TokenAddress, snap.ReputationAddress)
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", org.Hex(), err)
	}
	snap.Members = members

	proposals, err := r.proposals(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("proposals of %s: %w", org.Hex(), err)
	}
	snap.Proposals = proposals

	slog.Debug("reconstructed organization",
		"org", org.Hex(),
		"members", len(members),
		"proposals", len(proposals),
		"duration", time.Since(start),
	)
	return snap, nil
}

// ListOrganizations returns a summary snapshot of every organization the creator
// contract has registered, in registration order.
func (r *Reconstructor) ListOrganizations(ctx context.Context) ([]Organization, error) {
	created, err := r.replay(ctx, ledger.OrganizationCreated, r.cfg.Creator)
	if err != nil {
		return nil, err
	}

	avatars := newAddressSet()
	for _, ev := range created {
		avatars.add(ev.Organization)
	}

	orgs := make([]Organization, 0, avatars.len())
	for _, avatar := range avatars.list() {
		snap, err := r.Snapshot(ctx, avatar, false)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *snap)
	}
	return orgs, nil
}

func (r *Reconstructor) summary(ctx context.Context, org common.Address) (*Organization, error) {
	id, err := r.reader.Identity(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("identity of %s: %w", org.Hex(), err)
	}
	tokenSupply, err := r.reader.TotalSupply(ctx, id.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("token supply of %s: %w", org.Hex(), err)
	}
	reputationSupply, err := r.reader.TotalSupply(ctx, id.ReputationAddress)
	if err != nil {
		return nil, fmt.Errorf("reputation supply of %s: %w", org.Hex(), err)
	}

	return &Organization{
		Address:           org,
		Name:              id.Name,
		Controller:        id.Controller,
		TokenAddress:      id.TokenAddress,
		ReputationAddress: id.ReputationAddress,
		TokenName:         id.TokenName,
		TokenSymbol:       id.TokenSymbol,
		TokenCount:        ledger.Descale(tokenSupply),
		ReputationCount:   ledger.Descale(reputationSupply),
		Members:           []Member{},
		Proposals:         []Proposal{},
	}, nil
}

// members collects every recipient of a token mint, token transfer or reputation
// mint and reads its current balances.
func (r *Reconstructor) members(ctx context.Context, token, reputation common.Address) ([]Member, error) {
	streams := []struct {
		kind     ledger.EventKind
		contract common.Address
	}{
		{ledger.TokenMinted, token},
		{ledger.TokenTransferred, token},
		{ledger.ReputationMinted, reputation},
	}

	holders := newAddressSet()
	for _, s := range streams {
		events, err := r.replay(ctx, s.kind, s.contract)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			holders.add(ev.To)
		}
	}

	members := make([]Member, 0, holders.len())
	for _, addr := range holders.list() {
		tokens, err := r.reader.TokenBalance(ctx, token, addr)
		if err != nil {
			return nil, fmt.Errorf("token balance of %s: %w", addr.Hex(), err)
		}
		rep, err := r.reader.Reputation(ctx, reputation, addr)
		if err != nil {
			return nil, fmt.Errorf("reputation of %s: %w", addr.Hex(), err)
		}
		members = append(members, Member{
			Address:    addr,
			Tokens:     ledger.Descale(tokens),
			Reputation: ledger.Descale(rep),
		})
	}
	return members, nil
}

func (r *Reconstructor) proposals(ctx context.Context, org common.Address) ([]Proposal, error) {
	created, err := r.replay(ctx, ledger.ProposalCreated, r.cfg.Scheme)
	if err != nil {
		return nil, err
	}
	executed, err := r.proposalIDs(ctx, ledger.ProposalExecuted)
	if err != nil {
		return nil, err
	}
	failed, err := r.proposalIDs(ctx, ledger.ProposalFailed)
	if err != nil {
		return nil, err
	}

	var machine common.Address
	proposals := make([]Proposal, 0)
	for _, ev := range created {
		if ev.Organization != org {
			continue
		}

		p := Proposal{
			ID:               ev.ProposalID,
			Organization:     org,
			Beneficiary:      ev.Beneficiary,
			Description:      r.describe(ctx, ev.ProposalID, ev.DescriptionHash),
			DescriptionHash:  ev.DescriptionHash,
			RewardToken:      ledger.Descale(ev.Rewards.Token),
			RewardReputation: ledger.Descale(ev.Rewards.Reputation),
			RewardEth:        ledger.Descale(ev.Rewards.Eth),
			ExternalToken:    ev.Rewards.ExternalToken,
			RewardExternal:   ledger.Descale(ev.Rewards.External),
			State:            NotBoosted,
			VotesYes:         decimal.Zero,
			VotesNo:          decimal.Zero,
		}

		switch {
		case executed[ev.ProposalID]:
			p.State = Executed
			p.WinningVote = WinnerYes
		case failed[ev.ProposalID]:
			p.State = Executed
			p.WinningVote = WinnerNo
		default:
			if machine == (common.Address{}) {
				machine, err = r.reader.VotingMachine(ctx, org, r.cfg.Scheme)
				if err != nil {
					return nil, fmt.Errorf("voting machine: %w", err)
				}
			}
			status, err := r.reader.VotesStatus(ctx, machine, ev.ProposalID)
			if err != nil {
				return nil, fmt.Errorf("votes of %s: %w", ev.ProposalID.Hex(), err)
			}
			p.VotesYes = ledger.Descale(status.Yes)
			p.VotesNo = ledger.Descale(status.No)
		}

		proposals = append(proposals, p)
	}
	return proposals, nil
}

// describe returns the off-chain description of a proposal, falling back to the
// on-chain hash when the description service has none or fails.
func (r *Reconstructor) describe(ctx context.Context, id, hash common.Hash) string {
	if r.describer == nil {
		return hash.Hex()
	}
	desc, ok, err := r.describer.Description(ctx, id)
	if err != nil {
		slog.Warn("description lookup failed",
			"proposal", id.Hex(),
			"err", err,
		)
		return hash.Hex()
	}
	if !ok {
		return hash.Hex()
	}
	return desc
}

func (r *Reconstructor) proposalIDs(ctx context.Context, kind ledger.EventKind) (map[common.Hash]bool, error) {
	events, err := r.replay(ctx, kind, r.cfg.Scheme)
	if err != nil {
		return nil, err
	}
	ids := make(map[common.Hash]bool, len(events))
	for _, ev := range events {
		ids[ev.ProposalID] = true
	}
	return ids, nil
}

func (r *Reconstructor) replay(ctx context.Context, kind ledger.EventKind, contract common.Address) ([]ledger.Event, error) {
	events, err := r.events.Events(ctx, ledger.EventQuery{
		Kind:      kind,
		Contract:  contract,
		FromBlock: r.cfg.GenesisBlock,
	})
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", kind, err)
	}
	return events, nil
}

// addressSet keeps distinct addresses in first-seen order.
type addressSet struct {
	seen  map[common.Address]struct{}
	order []common.Address
}

func newAddressSet() *addressSet {
	return &addressSet{seen: make(map[common.Address]struct{})}
}

func (s *addressSet) add(a common.Address) {
	if _, ok := s.seen[a]; ok {
		return
	}
	s.seen[a] = struct{}{}
	s.order = append(s.order, a)
}

func (s *addressSet) len() int { return len(s.order) }

func (s *addressSet) list() []common.Address { return s.order }
