package transform

import (
	"math/big"
	"testing"

	"github.com/canopy-network/dao-indexer/pkg/contracts"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddr = common.HexToAddress("0x1000000000000000000000000000000000000001")
	avatar    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	alice     = common.HexToAddress("0x3000000000000000000000000000000000000003")
	bob       = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

func packLog(t *testing.T, kind ledger.EventKind, topics []common.Hash, values ...any) types.Log {
	t.Helper()
	def, err := contracts.Def(kind)
	require.NoError(t, err)
	data, err := def.Event.Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err)
	return types.Log{
		Address:     tokenAddr,
		Topics:      append([]common.Hash{def.Topic()}, topics...),
		Data:        data,
		BlockNumber: 7,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}
}

func TestEventFromLogTransfer(t *testing.T) {
	l := packLog(t, ledger.TokenTransferred,
		[]common.Hash{common.BytesToHash(alice.Bytes()), common.BytesToHash(bob.Bytes())},
		big.NewInt(500),
	)

	ev, err := EventFromLog(ledger.TokenTransferred, l)
	require.NoError(t, err)
	assert.Equal(t, ledger.TokenTransferred, ev.Kind)
	assert.Equal(t, alice, ev.From)
	assert.Equal(t, bob, ev.To)
	assert.Equal(t, int64(500), ev.Amount.Int64())
	assert.Equal(t, uint64(7), ev.BlockNumber)
	assert.Equal(t, uint(3), ev.LogIndex)
	assert.Equal(t, tokenAddr, ev.Contract)
}

func TestMintSignatureIsShared(t *testing.T) {
	assert.Equal(t, contracts.Topic(ledger.TokenMinted), contracts.Topic(ledger.ReputationMinted))

	l := packLog(t, ledger.TokenMinted, []common.Hash{common.BytesToHash(bob.Bytes())}, big.NewInt(9))
	ev, err := EventFromLog(ledger.ReputationMinted, l)
	require.NoError(t, err)
	assert.Equal(t, ledger.ReputationMinted, ev.Kind)
	assert.Equal(t, bob, ev.To)
	assert.Equal(t, int64(9), ev.Amount.Int64())
}

func TestEventFromLogProposalCreated(t *testing.T) {
	id := common.HexToHash("0x01")
	machine := common.HexToAddress("0x5000000000000000000000000000000000000005")
	desc := common.HexToHash("0xdead")
	gen := common.HexToAddress("0x6000000000000000000000000000000000000006")
	rewards := [5]*big.Int{big.NewInt(10), big.NewInt(2), big.NewInt(7), big.NewInt(0), big.NewInt(1)}

	l := packLog(t, ledger.ProposalCreated,
		[]common.Hash{common.BytesToHash(avatar.Bytes()), id, common.BytesToHash(machine.Bytes())},
		desc, big.NewInt(30), rewards, gen, bob,
	)

	ev, err := EventFromLog(ledger.ProposalCreated, l)
	require.NoError(t, err)
	assert.Equal(t, avatar, ev.Organization)
	assert.Equal(t, id, ev.ProposalID)
	assert.Equal(t, machine, ev.VotingMachine)
	assert.Equal(t, desc, ev.DescriptionHash)
	assert.Equal(t, bob, ev.Beneficiary)
	assert.Equal(t, int64(10), ev.Rewards.Token.Int64())
	assert.Equal(t, int64(2), ev.Rewards.Eth.Int64())
	assert.Equal(t, int64(30), ev.Rewards.Reputation.Int64())
	assert.Equal(t, int64(7), ev.Rewards.External.Int64())
	assert.Equal(t, gen, ev.Rewards.ExternalToken)
}

func TestEventFromLogProposalDeletedHasNoData(t *testing.T) {
	id := common.HexToHash("0x02")
	l := packLog(t, ledger.ProposalFailed, []common.Hash{common.BytesToHash(avatar.Bytes()), id})

	ev, err := EventFromLog(ledger.ProposalFailed, l)
	require.NoError(t, err)
	assert.Equal(t, id, ev.ProposalID)
	assert.Equal(t, avatar, ev.Organization)
}

func TestEventFromLogRejectsWrongTopic(t *testing.T) {
	l := packLog(t, ledger.TokenTransferred,
		[]common.Hash{common.BytesToHash(alice.Bytes()), common.BytesToHash(bob.Bytes())},
		big.NewInt(1),
	)
	_, err := EventFromLog(ledger.ProposalCreated, l)
	require.Error(t, err)
}

func TestEventFromLogRejectsMissingTopics(t *testing.T) {
	l := packLog(t, ledger.TokenTransferred, []common.Hash{common.BytesToHash(alice.Bytes())}, big.NewInt(1))
	_, err := EventFromLog(ledger.TokenTransferred, l)
	require.Error(t, err)
}

func TestEventsFromReceipt(t *testing.T) {
	id := common.HexToHash("0x03")
	vote := packLog(t, ledger.VoteCast,
		[]common.Hash{id, common.BytesToHash(avatar.Bytes()), common.BytesToHash(alice.Bytes())},
		big.NewInt(1), big.NewInt(100),
	)
	decided := packLog(t, ledger.ProposalDecided,
		[]common.Hash{id, common.BytesToHash(avatar.Bytes())},
		big.NewInt(2), big.NewInt(100),
	)
	unrelated := types.Log{Topics: []common.Hash{common.HexToHash("0xffff")}}

	events, err := EventsFromReceipt([]*types.Log{&vote, &unrelated, nil, &decided}, ledger.VoteCast, ledger.ProposalDecided)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ledger.VoteCast, events[0].Kind)
	assert.Equal(t, alice, events[0].Voter)
	assert.Equal(t, uint64(1), events[0].Vote)
	assert.Equal(t, ledger.ProposalDecided, events[1].Kind)
	assert.Equal(t, uint64(2), events[1].Decision)
}

func TestHexRoundTrip(t *testing.T) {
	hashes := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")}
	assert.Equal(t, hashes, HexToHashes(HashesToHex(hashes)))
	assert.Equal(t, "0x3000000000000000000000000000000000000003", AddressToHex(alice))
}
