package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind tags a decoded contract event.
type EventKind string

const (
	OrganizationCreated EventKind = "OrganizationCreated"
	TokenMinted         EventKind = "TokenMinted"
	TokenTransferred    EventKind = "TokenTransferred"
	ReputationMinted    EventKind = "ReputationMinted"
	ProposalCreated     EventKind = "ProposalCreated"
	ProposalExecuted    EventKind = "ProposalExecuted"
	ProposalFailed      EventKind = "ProposalFailed"
	VoteCast            EventKind = "VoteCast"

	// ProposalDecided is emitted by the voting machine when a vote closes a proposal.
	ProposalDecided EventKind = "ProposalDecided"
)

// Kinds lists every kind the decoder understands.
var Kinds = []EventKind{
	OrganizationCreated,
	TokenMinted,
	TokenTransferred,
	ReputationMinted,
	ProposalCreated,
	ProposalExecuted,
	ProposalFailed,
	VoteCast,
	ProposalDecided,
}

// Rewards holds the raw fixed-point reward amounts attached to a proposal.
// External is paid in ExternalToken.
type Rewards struct {
	Token         *big.Int
	Eth           *big.Int
	Reputation    *big.Int
	External      *big.Int
	ExternalToken common.Address
}

// Event is a single decoded contract log. Only the fields relevant to Kind are set.
type Event struct {
	Kind        EventKind
	Contract    common.Address
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint

	// Organization is the avatar address for OrganizationCreated, proposal and vote events.
	Organization common.Address

	// Token and reputation movements.
	From   common.Address
	To     common.Address
	Amount *big.Int

	// Proposal lifecycle.
	ProposalID      common.Hash
	Beneficiary     common.Address
	DescriptionHash common.Hash
	Rewards         Rewards
	VotingMachine   common.Address

	// Votes and decisions.
	Voter    common.Address
	Vote     uint64
	Decision uint64
}

// EventQuery selects one event stream of one contract.
// A nil ToBlock means "latest".
type EventQuery struct {
	Kind      EventKind
	Contract  common.Address
	FromBlock uint64
	ToBlock   *uint64
}

// Identity holds the static fields of an organization.
type Identity struct {
	Avatar            common.Address
	Name              string
	Controller        common.Address
	TokenAddress      common.Address
	ReputationAddress common.Address
	TokenName         string
	TokenSymbol       string
}

// VoteStatus holds the live tallies of a proposal on its voting machine.
type VoteStatus struct {
	Yes *big.Int
	No  *big.Int
}

// ProposalRequest is a contribution reward proposal ready for submission.
type ProposalRequest struct {
	Organization    common.Address
	DescriptionHash common.Hash
	Rewards         Rewards
	Beneficiary     common.Address
}

// Founder is an initial holder of a new organization. Amounts are fixed-point.
type Founder struct {
	Address    common.Address
	Tokens     *big.Int
	Reputation *big.Int
}

// OrganizationRequest describes an organization to forge through the creator.
type OrganizationRequest struct {
	Name        string
	TokenName   string
	TokenSymbol string
	Founders    []Founder
}

// Receipt describes a mined transaction and the events it emitted.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Events      []Event
}
