package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/canopy-network/dao-indexer/pkg/contracts"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/canopy-network/dao-indexer/pkg/transform"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ProposeContributionReward submits a contribution reward proposal to the scheme.
func (c *Client) ProposeContributionReward(ctx context.Context, scheme common.Address, req ledger.ProposalRequest) (*ledger.Receipt, error) {
	rewards := [5]*big.Int{new(big.Int), new(big.Int), new(big.Int), new(big.Int), big.NewInt(1)}
	if req.Rewards.Token != nil {
		rewards[contracts.RewardSlotNativeToken] = req.Rewards.Token
	}
	if req.Rewards.Eth != nil {
		rewards[contracts.RewardSlotEth] = req.Rewards.Eth
	}
	if req.Rewards.External != nil {
		rewards[contracts.RewardSlotExternal] = req.Rewards.External
	}
	reputation := req.Rewards.Reputation
	if reputation == nil {
		reputation = new(big.Int)
	}

	return c.transact(ctx, contracts.ContributionReward, scheme, "proposeContributionReward", c.gasLimit,
		[]ledger.EventKind{ledger.ProposalCreated, ledger.ProposalDecided, ledger.ProposalExecuted},
		req.Organization,
		req.DescriptionHash,
		reputation,
		rewards,
		req.Rewards.ExternalToken,
		req.Beneficiary,
	)
}

// Vote casts a vote on the voting machine.
func (c *Client) Vote(ctx context.Context, machine common.Address, proposalID common.Hash, vote uint64) (*ledger.Receipt, error) {
	return c.transact(ctx, contracts.AbsoluteVote, machine, "vote", c.gasLimit,
		[]ledger.EventKind{ledger.VoteCast, ledger.ProposalDecided, ledger.ProposalExecuted, ledger.ProposalFailed},
		proposalID,
		new(big.Int).SetUint64(vote),
	)
}

// ForgeOrg creates an organization with its token, reputation and founders.
// The receipt carries the OrganizationCreated event naming the new avatar.
func (c *Client) ForgeOrg(ctx context.Context, creator common.Address, req ledger.OrganizationRequest) (*ledger.Receipt, error) {
	if len(req.Name) > 32 {
		return nil, fmt.Errorf("organization name %q is longer than 32 bytes", req.Name)
	}
	var name [32]byte
	copy(name[:], req.Name)

	founders := make([]common.Address, len(req.Founders))
	tokens := make([]*big.Int, len(req.Founders))
	reputation := make([]*big.Int, len(req.Founders))
	for i, f := range req.Founders {
		founders[i] = f.Address
		tokens[i] = orZero(f.Tokens)
		reputation[i] = orZero(f.Reputation)
	}

	return c.transact(ctx, contracts.DaoCreator, creator, "forgeOrg", c.createGasLimit,
		[]ledger.EventKind{ledger.OrganizationCreated},
		name,
		req.TokenName,
		req.TokenSymbol,
		founders,
		tokens,
		reputation,
		common.Address{}, // no universal controller
		new(big.Int),     // uncapped token
	)
}

// SetVoteParameters registers AbsoluteVote parameters for a reputation system
// and returns their hash.
func (c *Client) SetVoteParameters(ctx context.Context, machine, reputation common.Address, precReq uint64, ownerVote bool) (common.Hash, error) {
	prec := new(big.Int).SetUint64(precReq)
	if _, err := c.transact(ctx, contracts.AbsoluteVote, machine, "setParameters", c.gasLimit, nil,
		reputation, prec, ownerVote); err != nil {
		return common.Hash{}, err
	}
	return c.callBytes32(ctx, contracts.AbsoluteVote, machine, "getParametersHash", reputation, prec, ownerVote)
}

// SetRewardParameters registers ContributionReward parameters voting on
// machine with voteParams and returns their hash. No native token fee is charged.
func (c *Client) SetRewardParameters(ctx context.Context, scheme common.Address, voteParams common.Hash, machine common.Address) (common.Hash, error) {
	if _, err := c.transact(ctx, contracts.ContributionReward, scheme, "setParameters", c.gasLimit, nil,
		new(big.Int), voteParams, machine); err != nil {
		return common.Hash{}, err
	}
	return c.callBytes32(ctx, contracts.ContributionReward, scheme, "getParametersHash", new(big.Int), voteParams, machine)
}

// SetSchemes registers scheme with params on a freshly forged organization.
// The creator only accepts this once per organization.
func (c *Client) SetSchemes(ctx context.Context, creator, avatar, scheme common.Address, params common.Hash) (*ledger.Receipt, error) {
	return c.transact(ctx, contracts.DaoCreator, creator, "setSchemes", c.gasLimit, nil,
		avatar,
		[]common.Address{scheme},
		[][32]byte{params},
		[][4]byte{contracts.PermissionRegistered},
	)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// transact signs and sends a transaction on the primary endpoint and waits for it
// to be mined. It never fails over: a retried send could broadcast twice.
func (c *Client) transact(ctx context.Context, parsed abi.ABI, to common.Address, method string, gasLimit uint64, kinds []ledger.EventKind, args ...any) (*ledger.Receipt, error) {
	if c.signer == nil {
		return nil, ledger.ErrNoSigner
	}

	ep, ec, err := c.primary()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.txTimeout)
	defer cancel()

	chainID, err := ec.ChainID(ctx)
	if err != nil {
		c.noteFailure(ep)
		return nil, fmt.Errorf("chain id: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.signer, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = gasLimit

	bound := bind.NewBoundContract(to, parsed, ec, ec, ec)
	tx, err := bound.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	slog.Info("transaction sent", "method", method, "to", to.Hex(), "tx", tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, ec, tx)
	if err != nil {
		return nil, fmt.Errorf("wait %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s transaction %s reverted", method, tx.Hash().Hex())
	}

	events, err := transform.EventsFromReceipt(receipt.Logs, kinds...)
	if err != nil {
		return nil, err
	}

	slog.Info("transaction mined",
		"method", method,
		"tx", tx.Hash().Hex(),
		"block", receipt.BlockNumber,
		"events", len(events),
	)

	return &ledger.Receipt{
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Events:      events,
	}, nil
}
