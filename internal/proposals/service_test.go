package proposals

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/canopy-network/dao-indexer/internal/enrichment"
	"github.com/canopy-network/dao-indexer/internal/reconstruct"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	org         = common.HexToAddress("0xa0")
	scheme      = common.HexToAddress("0xd0")
	machine     = common.HexToAddress("0xf0")
	beneficiary = common.HexToAddress("0x03")
	proposalID  = common.HexToHash("0x1234")
)

type fakeTransactor struct {
	receipt *ledger.Receipt
	err     error

	proposed []ledger.ProposalRequest
	votes    []uint64
}

func (f *fakeTransactor) ProposeContributionReward(_ context.Context, s common.Address, req ledger.ProposalRequest) (*ledger.Receipt, error) {
	if s != scheme {
		return nil, errors.New("wrong scheme")
	}
	f.proposed = append(f.proposed, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

func (f *fakeTransactor) Vote(_ context.Context, m common.Address, _ common.Hash, vote uint64) (*ledger.Receipt, error) {
	if m != machine {
		return nil, errors.New("wrong machine")
	}
	f.votes = append(f.votes, vote)
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

type fakeReader struct {
	ledger.Reader
	status *ledger.VoteStatus
}

func (f *fakeReader) VotingMachine(context.Context, common.Address, common.Address) (common.Address, error) {
	return machine, nil
}

func (f *fakeReader) VotesStatus(context.Context, common.Address, common.Hash) (*ledger.VoteStatus, error) {
	return f.status, nil
}

type fakePublisher struct {
	records []enrichment.ProposalRecord
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, rec enrichment.ProposalRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func createdReceipt() *ledger.Receipt {
	return &ledger.Receipt{
		TxHash: common.HexToHash("0xfeed"),
		Events: []ledger.Event{{
			Kind:            ledger.ProposalCreated,
			Organization:    org,
			ProposalID:      proposalID,
			DescriptionHash: crypto.Keccak256Hash([]byte("Fund the audit")),
		}},
	}
}

func request() CreateRequest {
	return CreateRequest{
		Organization:     org,
		Title:            "Audit",
		Description:      "Fund the audit",
		Beneficiary:      beneficiary,
		RewardToken:      decimal.RequireFromString("12.5"),
		RewardReputation: decimal.NewFromInt(3),
	}
}

func TestCreate(t *testing.T) {
	tx := &fakeTransactor{receipt: createdReceipt()}
	pub := &fakePublisher{}
	svc := New(scheme, tx, &fakeReader{}, pub)

	p, err := svc.Create(context.Background(), request())
	require.NoError(t, err)

	require.Len(t, tx.proposed, 1)
	sent := tx.proposed[0]
	assert.Equal(t, crypto.Keccak256Hash([]byte("Fund the audit")), sent.DescriptionHash)
	assert.Equal(t, "12500000000000000000", sent.Rewards.Token.String())
	assert.Equal(t, "3000000000000000000", sent.Rewards.Reputation.String())
	assert.Equal(t, int64(0), sent.Rewards.Eth.Int64())
	assert.Equal(t, int64(0), sent.Rewards.External.Int64())
	assert.Equal(t, common.Address{}, sent.Rewards.ExternalToken)

	assert.Equal(t, proposalID, p.ID)
	assert.Equal(t, reconstruct.NotBoosted, p.State)
	assert.Equal(t, "Fund the audit", p.Description)
	assert.True(t, p.VotesYes.IsZero())

	require.Len(t, pub.records, 1)
	assert.Equal(t, proposalID.Hex(), pub.records[0].ArcID)
	assert.Equal(t, "Audit", pub.records[0].Title)
	assert.Equal(t, org.Hex(), pub.records[0].DaoAvatarAddress)
}

func TestCreateExternalTokenReward(t *testing.T) {
	gen := common.HexToAddress("0x0e")
	tx := &fakeTransactor{receipt: createdReceipt()}
	req := request()
	req.ExternalToken = gen
	req.RewardExternal = decimal.RequireFromString("0.25")

	p, err := New(scheme, tx, &fakeReader{}, nil).Create(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, tx.proposed, 1)
	assert.Equal(t, gen, tx.proposed[0].Rewards.ExternalToken)
	assert.Equal(t, "250000000000000000", tx.proposed[0].Rewards.External.String())
	assert.Equal(t, gen, p.ExternalToken)
	assert.Equal(t, "0.25", p.RewardExternal.String())

	req.ExternalToken = common.Address{}
	_, err = New(scheme, tx, &fakeReader{}, nil).Create(context.Background(), req)
	require.ErrorIs(t, err, ErrExternalTokenMissing)
	assert.Len(t, tx.proposed, 1)
}

func TestCreateMirrorFailureSwallowed(t *testing.T) {
	svc := New(scheme, &fakeTransactor{receipt: createdReceipt()}, &fakeReader{}, &fakePublisher{err: errors.New("503")})

	p, err := svc.Create(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, proposalID, p.ID)
}

func TestCreateErrors(t *testing.T) {
	t.Run("transaction", func(t *testing.T) {
		boom := errors.New("insufficient funds")
		_, err := New(scheme, &fakeTransactor{err: boom}, &fakeReader{}, nil).Create(context.Background(), request())
		require.ErrorIs(t, err, boom)
	})

	t.Run("missing proposal id", func(t *testing.T) {
		tx := &fakeTransactor{receipt: &ledger.Receipt{}}
		_, err := New(scheme, tx, &fakeReader{}, nil).Create(context.Background(), request())
		require.ErrorIs(t, err, ErrProposalIDMissing)
	})

	t.Run("empty description", func(t *testing.T) {
		tx := &fakeTransactor{receipt: createdReceipt()}
		req := request()
		req.Description = "  "
		_, err := New(scheme, tx, &fakeReader{}, nil).Create(context.Background(), req)
		require.Error(t, err)
		assert.Empty(t, tx.proposed)
	})

	t.Run("too precise", func(t *testing.T) {
		tx := &fakeTransactor{receipt: createdReceipt()}
		req := request()
		req.RewardToken = decimal.RequireFromString("0.0000000000000000001")
		_, err := New(scheme, tx, &fakeReader{}, nil).Create(context.Background(), req)
		require.Error(t, err)
		assert.Empty(t, tx.proposed)
	})
}

func TestVoteOpen(t *testing.T) {
	reader := &fakeReader{status: &ledger.VoteStatus{
		Yes: new(big.Int).Mul(big.NewInt(4), big.NewInt(1e18)),
		No:  big.NewInt(0),
	}}
	tx := &fakeTransactor{receipt: &ledger.Receipt{Events: []ledger.Event{{Kind: ledger.VoteCast}}}}

	res, err := New(scheme, tx, reader, nil).Vote(context.Background(), org, proposalID, 1)
	require.NoError(t, err)

	assert.Equal(t, []uint64{1}, tx.votes)
	assert.Equal(t, reconstruct.NotBoosted, res.State)
	assert.Equal(t, reconstruct.NoWinner, res.WinningVote)
	assert.Equal(t, "4", res.VotesYes.String())
}

func TestVoteDecides(t *testing.T) {
	reader := &fakeReader{status: &ledger.VoteStatus{Yes: big.NewInt(0), No: big.NewInt(0)}}

	for _, tc := range []struct {
		decision uint64
		winner   int
	}{
		{1, reconstruct.WinnerYes},
		{2, reconstruct.WinnerNo},
	} {
		tx := &fakeTransactor{receipt: &ledger.Receipt{Events: []ledger.Event{
			{Kind: ledger.VoteCast},
			{Kind: ledger.ProposalDecided, Contract: machine, ProposalID: proposalID, Decision: tc.decision},
		}}}
		res, err := New(scheme, tx, reader, nil).Vote(context.Background(), org, proposalID, 2)
		require.NoError(t, err)
		assert.Equal(t, reconstruct.Executed, res.State)
		assert.Equal(t, tc.winner, res.WinningVote)
	}
}

func TestVoteIgnoresOtherDecisions(t *testing.T) {
	reader := &fakeReader{status: &ledger.VoteStatus{Yes: big.NewInt(1), No: big.NewInt(0)}}
	other := common.HexToHash("0x9999")
	tx := &fakeTransactor{receipt: &ledger.Receipt{Events: []ledger.Event{
		{Kind: ledger.VoteCast, Contract: machine, ProposalID: proposalID},
		{Kind: ledger.ProposalDecided, Contract: machine, ProposalID: other, Decision: 1},
		{Kind: ledger.ProposalDecided, Contract: common.HexToAddress("0xf1"), ProposalID: proposalID, Decision: 2},
	}}}

	res, err := New(scheme, tx, reader, nil).Vote(context.Background(), org, proposalID, 1)
	require.NoError(t, err)
	assert.Equal(t, reconstruct.NotBoosted, res.State)
	assert.Equal(t, reconstruct.NoWinner, res.WinningVote)
}

func TestVoteErrors(t *testing.T) {
	reader := &fakeReader{status: &ledger.VoteStatus{Yes: big.NewInt(0), No: big.NewInt(0)}}

	_, err := New(scheme, &fakeTransactor{}, reader, nil).Vote(context.Background(), org, proposalID, 3)
	require.ErrorIs(t, err, ErrInvalidVote)

	tx := &fakeTransactor{receipt: &ledger.Receipt{Events: []ledger.Event{
		{Kind: ledger.ProposalDecided, Contract: machine, ProposalID: proposalID, Decision: 0},
	}}}
	_, err = New(scheme, tx, reader, nil).Vote(context.Background(), org, proposalID, 1)
	require.ErrorIs(t, err, ErrUnknownDecision)

	_, err = New(scheme, &fakeTransactor{err: ledger.ErrNoSigner}, reader, nil).Vote(context.Background(), org, proposalID, 1)
	require.ErrorIs(t, err, ledger.ErrNoSigner)
}
