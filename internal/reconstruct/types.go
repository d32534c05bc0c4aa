package reconstruct

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ProposalState is the lifecycle stage of a proposal.
type ProposalState string

const (
	NotBoosted ProposalState = "NotBoosted"
	Boosted    ProposalState = "Boosted"
	Executed   ProposalState = "Executed"
)

// Winning votes reported for executed proposals.
const (
	NoWinner  = 0
	WinnerYes = 1
	WinnerNo  = 2
)

// Member is a holder of tokens or reputation in an organization.
type Member struct {
	Address    common.Address  `json:"address"`
	Tokens     decimal.Decimal `json:"tokens"`
	Reputation decimal.Decimal `json:"reputation"`
}

// Proposal is the point-in-time view of a contribution reward proposal.
type Proposal struct {
	ID               common.Hash     `json:"proposalId"`
	Organization     common.Address  `json:"daoAvatarAddress"`
	Beneficiary      common.Address  `json:"beneficiary"`
	Description      string          `json:"description"`
	DescriptionHash  common.Hash     `json:"descriptionHash"`
	RewardToken      decimal.Decimal `json:"rewardToken"`
	RewardReputation decimal.Decimal `json:"rewardReputation"`
	RewardEth        decimal.Decimal `json:"rewardEth"`
	ExternalToken    common.Address  `json:"externalToken"`
	RewardExternal   decimal.Decimal `json:"externalTokenReward"`
	State            ProposalState   `json:"state"`
	VotesYes         decimal.Decimal `json:"votesYes"`
	VotesNo          decimal.Decimal `json:"votesNo"`
	WinningVote      int             `json:"winningVote"`
}

// Organization is the snapshot of a DAO. Members and Proposals are only filled
// for detailed snapshots but are never nil.
type Organization struct {
	Address           common.Address  `json:"avatarAddress"`
	Name              string          `json:"name"`
	Controller        common.Address  `json:"controllerAddress"`
	TokenAddress      common.Address  `json:"tokenAddress"`
	ReputationAddress common.Address  `json:"reputationAddress"`
	TokenName         string          `json:"tokenName"`
	TokenSymbol       string          `json:"tokenSymbol"`
	TokenCount        decimal.Decimal `json:"tokenCount"`
	ReputationCount   decimal.Decimal `json:"reputationCount"`
	Members           []Member        `json:"members"`
	Proposals         []Proposal      `json:"proposals"`
}
