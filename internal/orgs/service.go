// Package orgs forges new organizations and registers the contribution reward
// scheme on them.
package orgs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/canopy-network/dao-indexer/internal/reconstruct"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid organization request")

// Transactor sends the founding transactions.
type Transactor interface {
	ForgeOrg(ctx context.Context, creator common.Address, req ledger.OrganizationRequest) (*ledger.Receipt, error)
	SetVoteParameters(ctx context.Context, machine, reputation common.Address, precReq uint64, ownerVote bool) (common.Hash, error)
	SetRewardParameters(ctx context.Context, scheme common.Address, voteParams common.Hash, machine common.Address) (common.Hash, error)
	SetSchemes(ctx context.Context, creator, avatar, scheme common.Address, params common.Hash) (*ledger.Receipt, error)
}

// IdentityReader reads a forged organization back.
type IdentityReader interface {
	Identity(ctx context.Context, org common.Address) (*ledger.Identity, error)
}

// Config names the shared contracts and the vote parameters of new organizations.
type Config struct {
	Creator       common.Address
	Scheme        common.Address
	VotingMachine common.Address

	// Precision is the share of reputation (percent) that decides a vote.
	Precision uint64
	OwnerVote bool
}

// FounderRequest is a founder as entered by a user. Amounts are whole units.
type FounderRequest struct {
	Address    common.Address
	Tokens     decimal.Decimal
	Reputation decimal.Decimal
}

// CreateRequest describes the organization to create.
type CreateRequest struct {
	Name        string
	TokenName   string
	TokenSymbol string
	Founders    []FounderRequest
}

// Service runs the founding sequence: forge the organization, register vote and
// scheme parameters, then attach the scheme. Nothing is retried.
type Service struct {
	cfg    Config
	tx     Transactor
	reader IdentityReader
}

// New creates a Service.
func New(cfg Config, tx Transactor, reader IdentityReader) *Service {
	if cfg.Precision == 0 {
		cfg.Precision = 50
	}
	return &Service{cfg: cfg, tx: tx, reader: reader}
}

// Create forges an organization and returns its initial snapshot. Founders are
// ordered by reputation, highest first.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*reconstruct.Organization, error) {
	orgReq, founders, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	receipt, err := s.tx.ForgeOrg(ctx, s.cfg.Creator, orgReq)
	if err != nil {
		return nil, fmt.Errorf("forge organization: %w", err)
	}
	created, ok := receipt.FindEvent(ledger.OrganizationCreated)
	if !ok || created.Contract != s.cfg.Creator {
		return nil, fmt.Errorf("tx %s: organization address missing from receipt", receipt.TxHash.Hex())
	}
	avatar := created.Organization

	// From here on the organization exists; failures name it so setup can be finished by hand.
	id, err := s.reader.Identity(ctx, avatar)
	if err != nil {
		return nil, fmt.Errorf("organization %s forged, read identity: %w", avatar.Hex(), err)
	}
	voteParams, err := s.tx.SetVoteParameters(ctx, s.cfg.VotingMachine, id.ReputationAddress, s.cfg.Precision, s.cfg.OwnerVote)
	if err != nil {
		return nil, fmt.Errorf("organization %s forged, vote parameters: %w", avatar.Hex(), err)
	}
	schemeParams, err := s.tx.SetRewardParameters(ctx, s.cfg.Scheme, voteParams, s.cfg.VotingMachine)
	if err != nil {
		return nil, fmt.Errorf("organization %s forged, scheme parameters: %w", avatar.Hex(), err)
	}
	if _, err := s.tx.SetSchemes(ctx, s.cfg.Creator, avatar, s.cfg.Scheme, schemeParams); err != nil {
		return nil, fmt.Errorf("organization %s forged, register scheme: %w", avatar.Hex(), err)
	}

	org := &reconstruct.Organization{
		Address:           avatar,
		Name:              id.Name,
		Controller:        id.Controller,
		TokenAddress:      id.TokenAddress,
		ReputationAddress: id.ReputationAddress,
		TokenName:         id.TokenName,
		TokenSymbol:       id.TokenSymbol,
		TokenCount:        decimal.Zero,
		ReputationCount:   decimal.Zero,
		Members:           make([]reconstruct.Member, 0, len(founders)),
		Proposals:         make([]reconstruct.Proposal, 0),
	}
	for _, f := range founders {
		org.TokenCount = org.TokenCount.Add(f.Tokens)
		org.ReputationCount = org.ReputationCount.Add(f.Reputation)
		org.Members = append(org.Members, reconstruct.Member{
			Address:    f.Address,
			Tokens:     f.Tokens,
			Reputation: f.Reputation,
		})
	}

	slog.Info("organization created",
		"org", avatar.Hex(),
		"name", org.Name,
		"founders", len(founders),
		"tx", receipt.TxHash.Hex(),
	)
	return org, nil
}

func (s *Service) validate(req CreateRequest) (ledger.OrganizationRequest, []FounderRequest, error) {
	invalid := func(format string, args ...any) (ledger.OrganizationRequest, []FounderRequest, error) {
		return ledger.OrganizationRequest{}, nil, fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
	}

	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return invalid("name is required")
	case len(name) > 32:
		return invalid("name is longer than 32 bytes")
	case strings.TrimSpace(req.TokenName) == "":
		return invalid("token name is required")
	case strings.TrimSpace(req.TokenSymbol) == "":
		return invalid("token symbol is required")
	case len(req.Founders) == 0:
		return invalid("at least one founder is required")
	}

	founders := slices.Clone(req.Founders)
	slices.SortStableFunc(founders, func(a, b FounderRequest) int {
		return b.Reputation.Cmp(a.Reputation)
	})

	out := ledger.OrganizationRequest{
		Name:        name,
		TokenName:   strings.TrimSpace(req.TokenName),
		TokenSymbol: strings.TrimSpace(req.TokenSymbol),
		Founders:    make([]ledger.Founder, 0, len(founders)),
	}
	seen := make(map[common.Address]bool, len(founders))
	for _, f := range founders {
		if f.Address == (common.Address{}) {
			return invalid("founder address is required")
		}
		if seen[f.Address] {
			return invalid("founder %s listed twice", f.Address.Hex())
		}
		seen[f.Address] = true
		if f.Tokens.IsNegative() || f.Reputation.IsNegative() {
			return invalid("founder %s has a negative amount", f.Address.Hex())
		}
		tokens, err := ledger.Scale(f.Tokens)
		if err != nil {
			return invalid("founder %s tokens: %v", f.Address.Hex(), err)
		}
		rep, err := ledger.Scale(f.Reputation)
		if err != nil {
			return invalid("founder %s reputation: %v", f.Address.Hex(), err)
		}
		out.Founders = append(out.Founders, ledger.Founder{Address: f.Address, Tokens: tokens, Reputation: rep})
	}
	return out, founders, nil
}
