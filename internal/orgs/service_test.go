package orgs

import (
	"context"
	"errors"
	"testing"

	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	creator    = common.HexToAddress("0xc0")
	scheme     = common.HexToAddress("0xd0")
	machine    = common.HexToAddress("0xf0")
	avatar     = common.HexToAddress("0xa0")
	token      = common.HexToAddress("0xb0")
	reputation = common.HexToAddress("0xb1")
	alice      = common.HexToAddress("0x01")
	bob        = common.HexToAddress("0x02")

	voteParams   = common.HexToHash("0x7001")
	schemeParams = common.HexToHash("0x7002")
)

type fakeTransactor struct {
	calls   []string
	forged  []ledger.OrganizationRequest
	schemes []common.Hash
	failAt  string
}

func (f *fakeTransactor) step(name string) error {
	f.calls = append(f.calls, name)
	if f.failAt == name {
		return errors.New(name + " reverted")
	}
	return nil
}

func (f *fakeTransactor) ForgeOrg(_ context.Context, c common.Address, req ledger.OrganizationRequest) (*ledger.Receipt, error) {
	if err := f.step("forge"); err != nil {
		return nil, err
	}
	f.forged = append(f.forged, req)
	return &ledger.Receipt{
		TxHash: common.HexToHash("0xfeed"),
		Events: []ledger.Event{{Kind: ledger.OrganizationCreated, Contract: c, Organization: avatar}},
	}, nil
}

func (f *fakeTransactor) SetVoteParameters(_ context.Context, m, rep common.Address, prec uint64, owner bool) (common.Hash, error) {
	if m != machine || rep != reputation || prec != 50 || !owner {
		return common.Hash{}, errors.New("unexpected vote parameters")
	}
	return voteParams, f.step("vote")
}

func (f *fakeTransactor) SetRewardParameters(_ context.Context, s common.Address, vp common.Hash, m common.Address) (common.Hash, error) {
	if s != scheme || vp != voteParams || m != machine {
		return common.Hash{}, errors.New("unexpected scheme parameters")
	}
	return schemeParams, f.step("reward")
}

func (f *fakeTransactor) SetSchemes(_ context.Context, c, a, s common.Address, params common.Hash) (*ledger.Receipt, error) {
	if c != creator || a != avatar || s != scheme {
		return nil, errors.New("unexpected scheme registration")
	}
	f.schemes = append(f.schemes, params)
	return &ledger.Receipt{}, f.step("schemes")
}

type fakeReader struct{}

func (fakeReader) Identity(_ context.Context, org common.Address) (*ledger.Identity, error) {
	return &ledger.Identity{
		Avatar:            org,
		Name:              "Genesis Alpha",
		TokenAddress:      token,
		ReputationAddress: reputation,
		TokenName:         "Genesis",
		TokenSymbol:       "GDT",
	}, nil
}

func newService(tx Transactor) *Service {
	return New(Config{Creator: creator, Scheme: scheme, VotingMachine: machine, OwnerVote: true}, tx, fakeReader{})
}

func request() CreateRequest {
	return CreateRequest{
		Name:        " Genesis Alpha ",
		TokenName:   "Genesis",
		TokenSymbol: "GDT",
		Founders: []FounderRequest{
			{Address: alice, Tokens: decimal.NewFromInt(100), Reputation: decimal.NewFromInt(10)},
			{Address: bob, Tokens: decimal.RequireFromString("0.5"), Reputation: decimal.NewFromInt(40)},
		},
	}
}

func TestCreate(t *testing.T) {
	tx := &fakeTransactor{}

	org, err := newService(tx).Create(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, []string{"forge", "vote", "reward", "schemes"}, tx.calls)
	assert.Equal(t, []common.Hash{schemeParams}, tx.schemes)

	require.Len(t, tx.forged, 1)
	forged := tx.forged[0]
	assert.Equal(t, "Genesis Alpha", forged.Name)
	require.Len(t, forged.Founders, 2)
	assert.Equal(t, bob, forged.Founders[0].Address, "highest reputation first")
	assert.Equal(t, "500000000000000000", forged.Founders[0].Tokens.String())
	assert.Equal(t, "40000000000000000000", forged.Founders[0].Reputation.String())

	assert.Equal(t, avatar, org.Address)
	assert.Equal(t, token, org.TokenAddress)
	assert.Equal(t, "100.5", org.TokenCount.String())
	assert.Equal(t, "50", org.ReputationCount.String())
	require.Len(t, org.Members, 2)
	assert.Equal(t, bob, org.Members[0].Address)
	assert.NotNil(t, org.Proposals)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"empty name", func(r *CreateRequest) { r.Name = " " }},
		{"long name", func(r *CreateRequest) { r.Name = "an organization name past 32 bytes" }},
		{"no symbol", func(r *CreateRequest) { r.TokenSymbol = "" }},
		{"no founders", func(r *CreateRequest) { r.Founders = nil }},
		{"zero founder", func(r *CreateRequest) { r.Founders[0].Address = common.Address{} }},
		{"duplicate founder", func(r *CreateRequest) { r.Founders[1].Address = alice }},
		{"negative tokens", func(r *CreateRequest) { r.Founders[0].Tokens = decimal.NewFromInt(-1) }},
		{"too precise", func(r *CreateRequest) { r.Founders[0].Reputation = decimal.RequireFromString("1e-19") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &fakeTransactor{}
			req := request()
			tt.mutate(&req)

			_, err := newService(tx).Create(context.Background(), req)
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, tx.calls)
		})
	}
}

func TestCreateSetupFailureNamesOrganization(t *testing.T) {
	tx := &fakeTransactor{failAt: "reward"}

	_, err := newService(tx).Create(context.Background(), request())
	require.Error(t, err)
	assert.Contains(t, err.Error(), avatar.Hex())
	assert.Equal(t, []string{"forge", "vote", "reward"}, tx.calls)
}

func TestCreateForgeFailure(t *testing.T) {
	tx := &fakeTransactor{failAt: "forge"}

	_, err := newService(tx).Create(context.Background(), request())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), avatar.Hex())
}
