// Package contracts holds the parsed Arc contract ABIs and maps ledger event kinds
// to the contract events that carry them.
package contracts

import (
	"fmt"
	"strings"

	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Parsed contract ABIs.
var (
	DaoCreator         = mustParse(daoCreatorABI)
	Avatar             = mustParse(avatarABI)
	Controller         = mustParse(controllerABI)
	Token              = mustParse(tokenABI)
	Reputation         = mustParse(reputationABI)
	ContributionReward = mustParse(contributionRewardABI)
	AbsoluteVote       = mustParse(absoluteVoteABI)
)

// Reward slots of the ContributionReward _rewards array.
const (
	RewardSlotNativeToken = 0
	RewardSlotEth         = 1
	RewardSlotExternal    = 2
	RewardSlotPeriod      = 3
	RewardSlotPeriods     = 4
)

// PermissionRegistered lets a scheme act for the organization without
// managing other schemes or constraints.
var PermissionRegistered = [4]byte{0, 0, 0, 1}

// Votes understood by the AbsoluteVote machine.
const (
	VoteYes uint64 = 1
	VoteNo  uint64 = 2
)

// EventDef binds a ledger kind to a contract event.
type EventDef struct {
	Kind  ledger.EventKind
	ABI   *abi.ABI
	Event abi.Event
}

// Topic returns the event signature hash (topic 0).
func (d EventDef) Topic() common.Hash {
	return d.Event.ID
}

var defs = map[ledger.EventKind]EventDef{}

func init() {
	register(ledger.OrganizationCreated, &DaoCreator, "NewOrg")
	register(ledger.TokenMinted, &Token, "Mint")
	register(ledger.TokenTransferred, &Token, "Transfer")
	register(ledger.ReputationMinted, &Reputation, "Mint")
	register(ledger.ProposalCreated, &ContributionReward, "NewContributionProposal")
	register(ledger.ProposalExecuted, &ContributionReward, "ProposalExecuted")
	register(ledger.ProposalFailed, &ContributionReward, "ProposalDeleted")
	register(ledger.VoteCast, &AbsoluteVote, "LogVoteProposal")
	register(ledger.ProposalDecided, &AbsoluteVote, "LogExecuteProposal")
}

func register(kind ledger.EventKind, parsed *abi.ABI, name string) {
	ev, ok := parsed.Events[name]
	if !ok {
		panic(fmt.Sprintf("contracts: event %s missing from ABI", name))
	}
	defs[kind] = EventDef{Kind: kind, ABI: parsed, Event: ev}
}

// Def returns the event definition of a kind.
func Def(kind ledger.EventKind) (EventDef, error) {
	d, ok := defs[kind]
	if !ok {
		return EventDef{}, fmt.Errorf("unknown event kind %q", kind)
	}
	return d, nil
}

// Topic returns topic 0 of a kind. It panics on unknown kinds.
func Topic(kind ledger.EventKind) common.Hash {
	d, err := Def(kind)
	if err != nil {
		panic(err)
	}
	return d.Topic()
}

// Topics returns the distinct topic 0 hashes of all known kinds.
// TokenMinted and ReputationMinted share a signature.
func Topics() []common.Hash {
	seen := make(map[common.Hash]bool)
	out := make([]common.Hash, 0, len(ledger.Kinds))
	for _, kind := range ledger.Kinds {
		t := Topic(kind)
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("contracts: parse abi: %v", err))
	}
	return parsed
}
