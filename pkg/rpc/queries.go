package rpc

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/canopy-network/dao-indexer/pkg/contracts"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// call performs an eth_call against the latest block and unpacks the outputs.
func (c *Client) call(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var out []byte
	err = c.do(ctx, method, func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		out, err = ec.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s at %s: %w", method, to.Hex(), ledger.ErrNotFound)
	}

	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (c *Client) callAddress(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...any) (common.Address, error) {
	values, err := c.call(ctx, parsed, to, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected output %T", method, values[0])
	}
	return addr, nil
}

func (c *Client) callBig(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...any) (*big.Int, error) {
	values, err := c.call(ctx, parsed, to, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output %T", method, values[0])
	}
	return v, nil
}

func (c *Client) callString(ctx context.Context, parsed abi.ABI, to common.Address, method string) (string, error) {
	values, err := c.call(ctx, parsed, to, method)
	if err != nil {
		return "", err
	}
	s, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected output %T", method, values[0])
	}
	return s, nil
}

func (c *Client) callBytes32(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...any) ([32]byte, error) {
	values, err := c.call(ctx, parsed, to, method, args...)
	if err != nil {
		return [32]byte{}, err
	}
	b, ok := values[0].([32]byte)
	if !ok {
		return [32]byte{}, fmt.Errorf("%s: unexpected output %T", method, values[0])
	}
	return b, nil
}

// Identity reads the static fields of an organization from its avatar and token.
func (c *Client) Identity(ctx context.Context, org common.Address) (*ledger.Identity, error) {
	rawName, err := c.callBytes32(ctx, contracts.Avatar, org, "orgName")
	if err != nil {
		return nil, err
	}
	controller, err := c.callAddress(ctx, contracts.Avatar, org, "owner")
	if err != nil {
		return nil, err
	}
	token, err := c.callAddress(ctx, contracts.Avatar, org, "nativeToken")
	if err != nil {
		return nil, err
	}
	reputation, err := c.callAddress(ctx, contracts.Avatar, org, "nativeReputation")
	if err != nil {
		return nil, err
	}
	tokenName, err := c.callString(ctx, contracts.Token, token, "name")
	if err != nil {
		return nil, err
	}
	tokenSymbol, err := c.callString(ctx, contracts.Token, token, "symbol")
	if err != nil {
		return nil, err
	}

	return &ledger.Identity{
		Avatar:            org,
		Name:              bytes32ToString(rawName),
		Controller:        controller,
		TokenAddress:      token,
		ReputationAddress: reputation,
		TokenName:         tokenName,
		TokenSymbol:       tokenSymbol,
	}, nil
}

// TotalSupply reads totalSupply of a token or reputation contract.
func (c *Client) TotalSupply(ctx context.Context, contract common.Address) (*big.Int, error) {
	return c.callBig(ctx, contracts.Token, contract, "totalSupply")
}

// TokenBalance reads the token balance of holder.
func (c *Client) TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	return c.callBig(ctx, contracts.Token, token, "balanceOf", holder)
}

// Reputation reads the reputation of holder.
func (c *Client) Reputation(ctx context.Context, reputation, holder common.Address) (*big.Int, error) {
	return c.callBig(ctx, contracts.Reputation, reputation, "reputationOf", holder)
}

// VotingMachine resolves the voting machine a scheme uses for an organization:
// avatar owner (controller) → scheme parameters hash → scheme parameters.
func (c *Client) VotingMachine(ctx context.Context, org, scheme common.Address) (common.Address, error) {
	key := org.Hex() + ":" + scheme.Hex()
	if cached, ok := getCache[common.Address](c, key); ok {
		return cached, nil
	}

	controller, err := c.callAddress(ctx, contracts.Avatar, org, "owner")
	if err != nil {
		return common.Address{}, err
	}
	paramsHash, err := c.callBytes32(ctx, contracts.Controller, controller, "getSchemeParameters", scheme, org)
	if err != nil {
		return common.Address{}, err
	}
	params, err := c.call(ctx, contracts.ContributionReward, scheme, "parameters", paramsHash)
	if err != nil {
		return common.Address{}, err
	}
	if len(params) < 3 {
		return common.Address{}, fmt.Errorf("parameters: expected 3 outputs, got %d", len(params))
	}
	machine, ok := params[2].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("parameters: unexpected intVote %T", params[2])
	}
	if machine == (common.Address{}) {
		return common.Address{}, fmt.Errorf("scheme %s has no voting machine for %s: %w", scheme.Hex(), org.Hex(), ledger.ErrNotFound)
	}

	setCache(c, key, machine)
	return machine, nil
}

// VotesStatus reads the live yes/no tallies of a proposal.
func (c *Client) VotesStatus(ctx context.Context, machine common.Address, proposalID common.Hash) (*ledger.VoteStatus, error) {
	values, err := c.call(ctx, contracts.AbsoluteVote, machine, "votesStatus", proposalID)
	if err != nil {
		return nil, err
	}
	votes, ok := values[0].([3]*big.Int)
	if !ok {
		return nil, fmt.Errorf("votesStatus: unexpected output %T", values[0])
	}
	return &ledger.VoteStatus{
		Yes: votes[contracts.VoteYes],
		No:  votes[contracts.VoteNo],
	}, nil
}

// ChainHead returns the latest block number.
func (c *Client) ChainHead(ctx context.Context) (uint64, error) {
	var head uint64
	err := c.do(ctx, "eth_blockNumber", func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		head, err = ec.BlockNumber(ctx)
		return err
	})
	return head, err
}

func bytes32ToString(b [32]byte) string {
	return string(bytes.TrimRight(b[:], "\x00"))
}
