package reconstruct

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	org        = common.HexToAddress("0xa0")
	otherOrg   = common.HexToAddress("0xa1")
	token      = common.HexToAddress("0xb0")
	reputation = common.HexToAddress("0xc0")
	scheme     = common.HexToAddress("0xd0")
	creator    = common.HexToAddress("0xe0")
	machine    = common.HexToAddress("0xf0")

	alice = common.HexToAddress("0x01")
	bob   = common.HexToAddress("0x02")
	carol = common.HexToAddress("0x03")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type fakeReader struct {
	identityErr error
	balanceErr  error
	supplies    map[common.Address]*big.Int
	tokens      map[common.Address]*big.Int
	rep         map[common.Address]*big.Int
	votes       map[common.Hash]*ledger.VoteStatus

	votesCalls   int
	machineCalls int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		supplies: map[common.Address]*big.Int{token: ether(300), reputation: ether(100)},
		tokens:   map[common.Address]*big.Int{},
		rep:      map[common.Address]*big.Int{},
		votes:    map[common.Hash]*ledger.VoteStatus{},
	}
}

func (f *fakeReader) Identity(_ context.Context, avatar common.Address) (*ledger.Identity, error) {
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return &ledger.Identity{
		Avatar:            avatar,
		Name:              "Genesis Alpha",
		Controller:        common.HexToAddress("0x99"),
		TokenAddress:      token,
		ReputationAddress: reputation,
		TokenName:         "Genesis Token",
		TokenSymbol:       "GDT",
	}, nil
}

func (f *fakeReader) TotalSupply(_ context.Context, contract common.Address) (*big.Int, error) {
	if v, ok := f.supplies[contract]; ok {
		return v, nil
	}
	return new(big.Int), nil
}

func (f *fakeReader) TokenBalance(_ context.Context, _, holder common.Address) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	if v, ok := f.tokens[holder]; ok {
		return v, nil
	}
	return new(big.Int), nil
}

func (f *fakeReader) Reputation(_ context.Context, _, holder common.Address) (*big.Int, error) {
	if v, ok := f.rep[holder]; ok {
		return v, nil
	}
	return new(big.Int), nil
}

func (f *fakeReader) VotingMachine(_ context.Context, _, _ common.Address) (common.Address, error) {
	f.machineCalls++
	return machine, nil
}

func (f *fakeReader) VotesStatus(_ context.Context, m common.Address, id common.Hash) (*ledger.VoteStatus, error) {
	f.votesCalls++
	if m != machine {
		return nil, errors.New("wrong voting machine")
	}
	if v, ok := f.votes[id]; ok {
		return v, nil
	}
	return &ledger.VoteStatus{Yes: new(big.Int), No: new(big.Int)}, nil
}

type streamKey struct {
	kind     ledger.EventKind
	contract common.Address
}

type fakeEvents struct {
	streams map[streamKey][]ledger.Event
	err     error
	queries []ledger.EventQuery
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{streams: map[streamKey][]ledger.Event{}}
}

func (f *fakeEvents) add(ev ledger.Event) {
	k := streamKey{ev.Kind, ev.Contract}
	f.streams[k] = append(f.streams[k], ev)
}

func (f *fakeEvents) Events(_ context.Context, q ledger.EventQuery) ([]ledger.Event, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.streams[streamKey{q.Kind, q.Contract}], nil
}

type fakeDescriber struct {
	descriptions map[common.Hash]string
	err          error
}

func (f *fakeDescriber) Description(_ context.Context, id common.Hash) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	d, ok := f.descriptions[id]
	return d, ok, nil
}

var externalToken = common.HexToAddress("0x00000000000000000000000000000000000000e7")

func newReconstructor(reader ledger.Reader, events ledger.EventSource, d Describer) *Reconstructor {
	return New(Config{Scheme: scheme, Creator: creator, GenesisBlock: 7}, reader, events, d)
}

func proposalCreated(id common.Hash, avatar common.Address) ledger.Event {
	return ledger.Event{
		Kind:            ledger.ProposalCreated,
		Contract:        scheme,
		Organization:    avatar,
		ProposalID:      id,
		Beneficiary:     carol,
		DescriptionHash: common.HexToHash("0xde5c" + id.Hex()[2:6]),
		Rewards: ledger.Rewards{
			Token:         ether(5),
			Eth:           big.NewInt(0),
			Reputation:    ether(2),
			External:      ether(4),
			ExternalToken: externalToken,
		},
	}
}

func TestSummarySnapshot(t *testing.T) {
	events := newFakeEvents()
	r := newReconstructor(newFakeReader(), events, nil)

	snap, err := r.Snapshot(context.Background(), org, false)
	require.NoError(t, err)

	assert.Equal(t, org, snap.Address)
	assert.Equal(t, "Genesis Alpha", snap.Name)
	assert.Equal(t, "GDT", snap.TokenSymbol)
	assert.Equal(t, "300", snap.TokenCount.String())
	assert.Equal(t, "100", snap.ReputationCount.String())
	assert.NotNil(t, snap.Members)
	assert.NotNil(t, snap.Proposals)
	assert.Empty(t, events.queries, "summary snapshots replay nothing")
}

func TestEmptyOrganization(t *testing.T) {
	r := newReconstructor(newFakeReader(), newFakeEvents(), nil)

	snap, err := r.Snapshot(context.Background(), org, true)
	require.NoError(t, err)
	assert.Empty(t, snap.Members)
	assert.Empty(t, snap.Proposals)
}

func TestMembersDeduplicated(t *testing.T) {
	reader := newFakeReader()
	reader.tokens[alice] = ether(10)
	reader.tokens[bob] = big.NewInt(1)
	reader.rep[alice] = ether(40)

	events := newFakeEvents()
	events.add(ledger.Event{Kind: ledger.TokenMinted, Contract: token, To: alice, Amount: ether(100)})
	events.add(ledger.Event{Kind: ledger.TokenTransferred, Contract: token, From: alice, To: bob, Amount: ether(90)})
	events.add(ledger.Event{Kind: ledger.TokenTransferred, Contract: token, From: bob, To: alice, Amount: ether(1)})
	events.add(ledger.Event{Kind: ledger.ReputationMinted, Contract: reputation, To: alice, Amount: ether(40)})
	events.add(ledger.Event{Kind: ledger.ReputationMinted, Contract: reputation, To: carol, Amount: ether(1)})

	r := newReconstructor(reader, events, nil)
	snap, err := r.Snapshot(context.Background(), org, true)
	require.NoError(t, err)

	require.Len(t, snap.Members, 3)
	assert.Equal(t, []common.Address{alice, bob, carol},
		[]common.Address{snap.Members[0].Address, snap.Members[1].Address, snap.Members[2].Address})

	// Balances are current lookups, not sums of the replayed amounts.
	assert.Equal(t, "10", snap.Members[0].Tokens.String())
	assert.Equal(t, "40", snap.Members[0].Reputation.String())
	assert.Equal(t, "0.000000000000000001", snap.Members[1].Tokens.String())
	assert.True(t, snap.Members[2].Tokens.IsZero())

	for _, q := range events.queries {
		assert.Equal(t, uint64(7), q.FromBlock)
		assert.Nil(t, q.ToBlock)
	}
}

func TestProposalClassification(t *testing.T) {
	passed := common.HexToHash("0x1111")
	rejected := common.HexToHash("0x2222")
	open := common.HexToHash("0x3333")
	foreign := common.HexToHash("0x4444")

	reader := newFakeReader()
	reader.votes[open] = &ledger.VoteStatus{Yes: ether(3), No: ether(1)}
	// Tallies for closed proposals must never be read.
	reader.votes[passed] = &ledger.VoteStatus{Yes: ether(99), No: ether(99)}

	events := newFakeEvents()
	events.add(proposalCreated(passed, org))
	events.add(proposalCreated(rejected, org))
	events.add(proposalCreated(foreign, otherOrg))
	events.add(proposalCreated(open, org))
	events.add(ledger.Event{Kind: ledger.ProposalExecuted, Contract: scheme, Organization: org, ProposalID: passed})
	events.add(ledger.Event{Kind: ledger.ProposalFailed, Contract: scheme, Organization: org, ProposalID: rejected})

	r := newReconstructor(reader, events, nil)
	snap, err := r.Snapshot(context.Background(), org, true)
	require.NoError(t, err)

	require.Len(t, snap.Proposals, 3)
	byID := map[common.Hash]Proposal{}
	for _, p := range snap.Proposals {
		byID[p.ID] = p
	}
	assert.NotContains(t, byID, foreign)

	assert.Equal(t, Executed, byID[passed].State)
	assert.Equal(t, WinnerYes, byID[passed].WinningVote)
	assert.True(t, byID[passed].VotesYes.IsZero())

	assert.Equal(t, Executed, byID[rejected].State)
	assert.Equal(t, WinnerNo, byID[rejected].WinningVote)

	assert.Equal(t, NotBoosted, byID[open].State)
	assert.Equal(t, NoWinner, byID[open].WinningVote)
	assert.Equal(t, "3", byID[open].VotesYes.String())
	assert.Equal(t, "1", byID[open].VotesNo.String())

	assert.Equal(t, "5", byID[open].RewardToken.String())
	assert.Equal(t, "2", byID[open].RewardReputation.String())
	assert.True(t, byID[open].RewardEth.IsZero())
	assert.Equal(t, "4", byID[open].RewardExternal.String())
	assert.Equal(t, externalToken, byID[open].ExternalToken)
	assert.Equal(t, carol, byID[open].Beneficiary)

	assert.Equal(t, 1, reader.votesCalls)
	assert.Equal(t, 1, reader.machineCalls)
}

func TestDescriptionEnrichment(t *testing.T) {
	known := common.HexToHash("0x1111")
	unknown := common.HexToHash("0x2222")

	events := newFakeEvents()
	events.add(proposalCreated(known, org))
	events.add(proposalCreated(unknown, org))

	d := &fakeDescriber{descriptions: map[common.Hash]string{known: "Fund the audit"}}
	snap, err := newReconstructor(newFakeReader(), events, d).Snapshot(context.Background(), org, true)
	require.NoError(t, err)

	require.Len(t, snap.Proposals, 2)
	assert.Equal(t, "Fund the audit", snap.Proposals[0].Description)
	assert.Equal(t, snap.Proposals[1].DescriptionHash.Hex(), snap.Proposals[1].Description)
}

func TestDescriptionFallbackOnError(t *testing.T) {
	id := common.HexToHash("0x1111")
	events := newFakeEvents()
	events.add(proposalCreated(id, org))

	d := &fakeDescriber{err: errors.New("connection refused")}
	snap, err := newReconstructor(newFakeReader(), events, d).Snapshot(context.Background(), org, true)
	require.NoError(t, err)

	require.Len(t, snap.Proposals, 1)
	p := snap.Proposals[0]
	assert.Equal(t, p.DescriptionHash.Hex(), p.Description)
}

func TestLedgerFailuresAreFatal(t *testing.T) {
	boom := errors.New("execution reverted")

	t.Run("identity", func(t *testing.T) {
		reader := newFakeReader()
		reader.identityErr = boom

		snap, err := newReconstructor(reader, newFakeEvents(), nil).Snapshot(context.Background(), org, true)
		require.ErrorIs(t, err, boom)
		assert.Nil(t, snap)
	})

	t.Run("balance", func(t *testing.T) {
		reader := newFakeReader()
		reader.balanceErr = boom
		events := newFakeEvents()
		events.add(ledger.Event{Kind: ledger.TokenMinted, Contract: token, To: alice, Amount: ether(1)})

		snap, err := newReconstructor(reader, events, nil).Snapshot(context.Background(), org, true)
		require.ErrorIs(t, err, boom)
		assert.Nil(t, snap)
	})

	t.Run("events", func(t *testing.T) {
		events := newFakeEvents()
		events.err = boom

		snap, err := newReconstructor(newFakeReader(), events, nil).Snapshot(context.Background(), org, true)
		require.ErrorIs(t, err, boom)
		assert.Nil(t, snap)
	})
}

func TestSnapshotIdempotent(t *testing.T) {
	reader := newFakeReader()
	reader.tokens[alice] = ether(10)
	open := common.HexToHash("0x3333")
	reader.votes[open] = &ledger.VoteStatus{Yes: ether(3), No: big.NewInt(5)}

	events := newFakeEvents()
	events.add(ledger.Event{Kind: ledger.TokenMinted, Contract: token, To: alice, Amount: ether(10)})
	events.add(ledger.Event{Kind: ledger.ReputationMinted, Contract: reputation, To: bob, Amount: ether(1)})
	events.add(proposalCreated(open, org))

	r := newReconstructor(reader, events, &fakeDescriber{})

	first, err := r.Snapshot(context.Background(), org, true)
	require.NoError(t, err)
	second, err := r.Snapshot(context.Background(), org, true)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestListOrganizations(t *testing.T) {
	events := newFakeEvents()
	events.add(ledger.Event{Kind: ledger.OrganizationCreated, Contract: creator, Organization: otherOrg})
	events.add(ledger.Event{Kind: ledger.OrganizationCreated, Contract: creator, Organization: org})
	events.add(ledger.Event{Kind: ledger.OrganizationCreated, Contract: creator, Organization: otherOrg})

	orgs, err := newReconstructor(newFakeReader(), events, nil).ListOrganizations(context.Background())
	require.NoError(t, err)

	require.Len(t, orgs, 2)
	assert.Equal(t, otherOrg, orgs[0].Address)
	assert.Equal(t, org, orgs[1].Address)
	assert.Empty(t, orgs[0].Members)
}
