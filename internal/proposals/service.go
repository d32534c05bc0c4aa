// Package proposals submits contribution reward proposals and votes, and reports
// the resulting proposal state.
package proposals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/canopy-network/dao-indexer/internal/enrichment"
	"github.com/canopy-network/dao-indexer/internal/reconstruct"
	"github.com/canopy-network/dao-indexer/pkg/contracts"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownDecision is returned when a vote closes a proposal with a decision
	// other than yes or no.
	ErrUnknownDecision = errors.New("unknown proposal decision")

	// ErrProposalIDMissing is returned when a proposal transaction is mined without
	// emitting the new proposal event.
	ErrProposalIDMissing = errors.New("proposal id missing from receipt")

	// ErrInvalidVote is returned for votes other than yes (1) or no (2).
	ErrInvalidVote = errors.New("vote must be 1 (yes) or 2 (no)")

	// ErrExternalTokenMissing is returned when an external token reward names no token.
	ErrExternalTokenMissing = errors.New("external token reward requires an external token")
)

// Publisher mirrors proposal text to the description service.
type Publisher interface {
	Publish(ctx context.Context, rec enrichment.ProposalRecord) error
}

// CreateRequest is a proposal as entered by a user. Amounts are whole units;
// RewardExternal is paid in ExternalToken and assumes 18 decimals.
type CreateRequest struct {
	Organization     common.Address
	Title            string
	Description      string
	Beneficiary      common.Address
	RewardToken      decimal.Decimal
	RewardReputation decimal.Decimal
	RewardEth        decimal.Decimal
	ExternalToken    common.Address
	RewardExternal   decimal.Decimal
}

// VoteResult is the state of a proposal right after a vote.
type VoteResult struct {
	Organization common.Address            `json:"daoAvatarAddress"`
	ProposalID   common.Hash               `json:"proposalId"`
	TxHash       common.Hash               `json:"txHash"`
	State        reconstruct.ProposalState `json:"state"`
	VotesYes     decimal.Decimal           `json:"votesYes"`
	VotesNo      decimal.Decimal           `json:"votesNo"`
	WinningVote  int                       `json:"winningVote"`
}

// Service runs the submission and voting sequences. Nothing is retried: a
// second call sends a second transaction.
type Service struct {
	scheme    common.Address
	tx        ledger.Transactor
	reader    ledger.Reader
	publisher Publisher
}

// New creates a Service. publisher may be nil.
func New(scheme common.Address, tx ledger.Transactor, reader ledger.Reader, publisher Publisher) *Service {
	return &Service{
		scheme:    scheme,
		tx:        tx,
		reader:    reader,
		publisher: publisher,
	}
}

// Create submits a proposal, mirrors its description and returns it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*reconstruct.Proposal, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("description is required")
	}
	if req.RewardToken.IsNegative() || req.RewardEth.IsNegative() || req.RewardExternal.IsNegative() {
		return nil, fmt.Errorf("rewards must not be negative")
	}
	if req.RewardExternal.IsPositive() && req.ExternalToken == (common.Address{}) {
		return nil, ErrExternalTokenMissing
	}

	tokens, err := ledger.Scale(req.RewardToken)
	if err != nil {
		return nil, fmt.Errorf("token reward: %w", err)
	}
	rep, err := ledger.Scale(req.RewardReputation)
	if err != nil {
		return nil, fmt.Errorf("reputation reward: %w", err)
	}
	eth, err := ledger.Scale(req.RewardEth)
	if err != nil {
		return nil, fmt.Errorf("eth reward: %w", err)
	}
	external, err := ledger.Scale(req.RewardExternal)
	if err != nil {
		return nil, fmt.Errorf("external token reward: %w", err)
	}

	descHash := crypto.Keccak256Hash([]byte(req.Description))
	receipt, err := s.tx.ProposeContributionReward(ctx, s.scheme, ledger.ProposalRequest{
		Organization:    req.Organization,
		DescriptionHash: descHash,
		Rewards: ledger.Rewards{
			Token:         tokens,
			Eth:           eth,
			Reputation:    rep,
			External:      external,
			ExternalToken: req.ExternalToken,
		},
		Beneficiary:     req.Beneficiary,
	})
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	created, ok := receipt.FindEvent(ledger.ProposalCreated)
	if !ok {
		return nil, fmt.Errorf("tx %s: %w", receipt.TxHash.Hex(), ErrProposalIDMissing)
	}

	s.mirror(ctx, enrichment.ProposalRecord{
		ArcID:            created.ProposalID.Hex(),
		DaoAvatarAddress: req.Organization.Hex(),
		DescriptionHash:  created.DescriptionHash.Hex(),
		Description:      req.Description,
		Title:            req.Title,
	})

	p := &reconstruct.Proposal{
		ID:               created.ProposalID,
		Organization:     req.Organization,
		Beneficiary:      req.Beneficiary,
		Description:      req.Description,
		DescriptionHash:  created.DescriptionHash,
		RewardToken:      req.RewardToken,
		RewardReputation: req.RewardReputation,
		RewardEth:        req.RewardEth,
		ExternalToken:    req.ExternalToken,
		RewardExternal:   req.RewardExternal,
		State:            reconstruct.NotBoosted,
		VotesYes:         decimal.Zero,
		VotesNo:          decimal.Zero,
	}
	for _, ev := range receipt.Events {
		if ev.Kind == ledger.ProposalExecuted && ev.Contract == s.scheme && ev.ProposalID == created.ProposalID {
			p.State = reconstruct.Executed
			p.WinningVote = reconstruct.WinnerYes
		}
	}

	slog.Info("proposal created",
		"org", req.Organization.Hex(),
		"proposal", created.ProposalID.Hex(),
		"tx", receipt.TxHash.Hex(),
	)
	return p, nil
}

// Vote casts vote on a proposal of org and reports the tallies afterwards. A vote
// that closes the proposal marks it executed with the machine's decision.
func (s *Service) Vote(ctx context.Context, org common.Address, proposalID common.Hash, vote uint64) (*VoteResult, error) {
	if vote != contracts.VoteYes && vote != contracts.VoteNo {
		return nil, ErrInvalidVote
	}

	machine, err := s.reader.VotingMachine(ctx, org, s.scheme)
	if err != nil {
		return nil, fmt.Errorf("voting machine: %w", err)
	}
	receipt, err := s.tx.Vote(ctx, machine, proposalID, vote)
	if err != nil {
		return nil, fmt.Errorf("vote: %w", err)
	}
	status, err := s.reader.VotesStatus(ctx, machine, proposalID)
	if err != nil {
		return nil, fmt.Errorf("votes status: %w", err)
	}

	res := &VoteResult{
		Organization: org,
		ProposalID:   proposalID,
		TxHash:       receipt.TxHash,
		State:        reconstruct.NotBoosted,
		VotesYes:     ledger.Descale(status.Yes),
		VotesNo:      ledger.Descale(status.No),
		WinningVote:  reconstruct.NoWinner,
	}

	if decided, ok := findDecision(receipt, machine, proposalID); ok {
		switch decided.Decision {
		case contracts.VoteYes:
			res.WinningVote = reconstruct.WinnerYes
		case contracts.VoteNo:
			res.WinningVote = reconstruct.WinnerNo
		default:
			return nil, fmt.Errorf("%w %d", ErrUnknownDecision, decided.Decision)
		}
		res.State = reconstruct.Executed
	}

	slog.Info("vote cast",
		"org", org.Hex(),
		"proposal", proposalID.Hex(),
		"vote", vote,
		"state", res.State,
	)
	return res, nil
}

// findDecision returns the decision the machine emitted for proposalID. A vote
// may trigger other proposals or machines in the same transaction.
func findDecision(receipt *ledger.Receipt, machine common.Address, proposalID common.Hash) (ledger.Event, bool) {
	for _, ev := range receipt.Events {
		if ev.Kind == ledger.ProposalDecided && ev.Contract == machine && ev.ProposalID == proposalID {
			return ev, true
		}
	}
	return ledger.Event{}, false
}

func (s *Service) mirror(ctx context.Context, rec enrichment.ProposalRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, rec); err != nil {
		slog.Warn("description mirror failed",
			"proposal", rec.ArcID,
			"err", err,
		)
	}
}
