package contracts

import (
	"math/big"
	"testing"

	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryKindRegistered(t *testing.T) {
	for _, kind := range ledger.Kinds {
		def, err := Def(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, def.Kind)
	}
	_, err := Def("Bogus")
	require.Error(t, err)

	assert.Equal(t, Topic(ledger.TokenMinted), Topic(ledger.ReputationMinted))
	assert.Len(t, Topics(), len(ledger.Kinds)-1)
}

func TestPackFoundingCalls(t *testing.T) {
	var name [32]byte
	copy(name[:], "Genesis Alpha")
	founders := []common.Address{common.HexToAddress("0x01")}
	amounts := []*big.Int{big.NewInt(1)}

	_, err := DaoCreator.Pack("forgeOrg", name, "Genesis", "GDT", founders, amounts, amounts, common.Address{}, new(big.Int))
	require.NoError(t, err)

	params := common.HexToHash("0x7002")
	_, err = DaoCreator.Pack("setSchemes", common.HexToAddress("0xa0"),
		[]common.Address{common.HexToAddress("0xd0")}, [][32]byte{params}, [][4]byte{PermissionRegistered})
	require.NoError(t, err)

	_, err = AbsoluteVote.Pack("getParametersHash", common.HexToAddress("0xb1"), big.NewInt(50), true)
	require.NoError(t, err)

	_, err = ContributionReward.Pack("setParameters", new(big.Int), params, common.HexToAddress("0xf0"))
	require.NoError(t, err)
}

func TestPackProposalWithExternalToken(t *testing.T) {
	rewards := [5]*big.Int{big.NewInt(1), big.NewInt(0), big.NewInt(2), big.NewInt(0), big.NewInt(1)}
	_, err := ContributionReward.Pack("proposeContributionReward",
		common.HexToAddress("0xa0"), common.HexToHash("0xde"), big.NewInt(3), rewards,
		common.HexToAddress("0xe7"), common.HexToAddress("0x03"))
	require.NoError(t, err)
}
