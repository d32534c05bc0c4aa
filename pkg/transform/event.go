package transform

import (
	"fmt"
	"math/big"

	"github.com/canopy-network/dao-indexer/pkg/contracts"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventFromLog decodes a raw log as the given kind.
// The caller picks the kind because token and reputation Mint logs share a signature.
func EventFromLog(kind ledger.EventKind, l types.Log) (ledger.Event, error) {
	def, err := contracts.Def(kind)
	if err != nil {
		return ledger.Event{}, err
	}
	if len(l.Topics) == 0 || l.Topics[0] != def.Topic() {
		return ledger.Event{}, fmt.Errorf("log %s:%d is not a %s event", l.TxHash.Hex(), l.Index, kind)
	}

	fields, err := unpackFields(def.Event, l)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("decode %s: %w", kind, err)
	}

	ev := ledger.Event{
		Kind:        kind,
		Contract:    l.Address,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
		LogIndex:    l.Index,
	}

	switch kind {
	case ledger.OrganizationCreated:
		ev.Organization = addressField(fields, "_avatar")
	case ledger.TokenMinted:
		ev.To = addressField(fields, "to")
		ev.Amount = bigField(fields, "amount")
	case ledger.TokenTransferred:
		ev.From = addressField(fields, "from")
		ev.To = addressField(fields, "to")
		ev.Amount = bigField(fields, "value")
	case ledger.ReputationMinted:
		ev.To = addressField(fields, "_to")
		ev.Amount = bigField(fields, "_amount")
	case ledger.ProposalCreated:
		ev.Organization = addressField(fields, "_avatar")
		ev.ProposalID = hashField(fields, "_proposalId")
		ev.VotingMachine = addressField(fields, "_intVoteInterface")
		ev.DescriptionHash = hashField(fields, "_contributionDescription")
		ev.Beneficiary = addressField(fields, "_beneficiary")
		ev.Rewards = rewardsField(fields)
	case ledger.ProposalExecuted, ledger.ProposalFailed:
		ev.Organization = addressField(fields, "_avatar")
		ev.ProposalID = hashField(fields, "_proposalId")
	case ledger.VoteCast:
		ev.Organization = addressField(fields, "_avatar")
		ev.ProposalID = hashField(fields, "_proposalId")
		ev.Voter = addressField(fields, "_voter")
		ev.Vote = bigField(fields, "_vote").Uint64()
		ev.Amount = bigField(fields, "_reputation")
	case ledger.ProposalDecided:
		ev.Organization = addressField(fields, "_avatar")
		ev.ProposalID = hashField(fields, "_proposalId")
		ev.Decision = bigField(fields, "_decision").Uint64()
		ev.Amount = bigField(fields, "_totalReputation")
	}

	return ev, nil
}

// Matches reports whether the log carries the signature of kind.
func Matches(kind ledger.EventKind, l types.Log) bool {
	def, err := contracts.Def(kind)
	if err != nil || len(l.Topics) == 0 {
		return false
	}
	return l.Topics[0] == def.Topic()
}

// EventsFromReceipt decodes every receipt log matching one of kinds, in log order.
// Logs that match no kind are skipped.
func EventsFromReceipt(logs []*types.Log, kinds ...ledger.EventKind) ([]ledger.Event, error) {
	out := make([]ledger.Event, 0, len(logs))
	for _, l := range logs {
		if l == nil {
			continue
		}
		for _, kind := range kinds {
			if !Matches(kind, *l) {
				continue
			}
			ev, err := EventFromLog(kind, *l)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
			break
		}
	}
	return out, nil
}

func unpackFields(event abi.Event, l types.Log) (map[string]any, error) {
	fields := make(map[string]any)
	if err := event.Inputs.NonIndexed().UnpackIntoMap(fields, l.Data); err != nil {
		return nil, fmt.Errorf("unpack data: %w", err)
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(l.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("expected %d indexed topics, got %d", len(indexed), len(l.Topics)-1)
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
		return nil, fmt.Errorf("unpack topics: %w", err)
	}
	return fields, nil
}

func addressField(fields map[string]any, name string) common.Address {
	if v, ok := fields[name].(common.Address); ok {
		return v
	}
	return common.Address{}
}

func hashField(fields map[string]any, name string) common.Hash {
	switch v := fields[name].(type) {
	case [32]byte:
		return common.Hash(v)
	case common.Hash:
		return v
	}
	return common.Hash{}
}

func bigField(fields map[string]any, name string) *big.Int {
	if v, ok := fields[name].(*big.Int); ok && v != nil {
		return v
	}
	return new(big.Int)
}

func rewardsField(fields map[string]any) ledger.Rewards {
	r := ledger.Rewards{
		Token:         new(big.Int),
		Eth:           new(big.Int),
		Reputation:    bigField(fields, "_reputationChange"),
		External:      new(big.Int),
		ExternalToken: addressField(fields, "_externalToken"),
	}
	if arr, ok := fields["_rewards"].([5]*big.Int); ok {
		if arr[contracts.RewardSlotNativeToken] != nil {
			r.Token = arr[contracts.RewardSlotNativeToken]
		}
		if arr[contracts.RewardSlotEth] != nil {
			r.Eth = arr[contracts.RewardSlotEth]
		}
		if arr[contracts.RewardSlotExternal] != nil {
			r.External = arr[contracts.RewardSlotExternal]
		}
	}
	return r
}
