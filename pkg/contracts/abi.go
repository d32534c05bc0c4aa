package contracts

// Minimal ABIs for the DAOstack Arc contracts the indexer reads and writes.

const daoCreatorABI = `[
	{"constant":false,"inputs":[{"name":"_orgName","type":"bytes32"},{"name":"_tokenName","type":"string"},{"name":"_tokenSymbol","type":"string"},{"name":"_founders","type":"address[]"},{"name":"_foundersTokenAmount","type":"uint256[]"},{"name":"_foundersReputationAmount","type":"int256[]"},{"name":"_uController","type":"address"},{"name":"_cap","type":"uint256"}],"name":"forgeOrg","outputs":[{"name":"","type":"address"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"_avatar","type":"address"},{"name":"_schemes","type":"address[]"},{"name":"_params","type":"bytes32[]"},{"name":"_permissions","type":"bytes4[]"}],"name":"setSchemes","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":false,"name":"_avatar","type":"address"}],"name":"NewOrg","type":"event"}
]`

const avatarABI = `[
	{"constant":true,"inputs":[],"name":"orgName","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"nativeToken","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"nativeReputation","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const controllerABI = `[
	{"constant":true,"inputs":[{"name":"_scheme","type":"address"},{"name":"_avatar","type":"address"}],"name":"getSchemeParameters","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}
]`

const tokenABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"Mint","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

const reputationABI = `[
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"reputationOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"_to","type":"address"},{"indexed":false,"name":"_amount","type":"uint256"}],"name":"Mint","type":"event"}
]`

const contributionRewardABI = `[
	{"constant":false,"inputs":[{"name":"_orgNativeTokenFee","type":"uint256"},{"name":"_voteApproveParams","type":"bytes32"},{"name":"_intVote","type":"address"}],"name":"setParameters","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[{"name":"_orgNativeTokenFee","type":"uint256"},{"name":"_voteApproveParams","type":"bytes32"},{"name":"_intVote","type":"address"}],"name":"getParametersHash","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"pure","type":"function"},
	{"constant":true,"inputs":[{"name":"","type":"bytes32"}],"name":"parameters","outputs":[{"name":"orgNativeTokenFee","type":"uint256"},{"name":"voteApproveParams","type":"bytes32"},{"name":"intVote","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"_avatar","type":"address"},{"name":"_contributionDescriptionHash","type":"bytes32"},{"name":"_reputationChange","type":"int256"},{"name":"_rewards","type":"uint256[5]"},{"name":"_externalToken","type":"address"},{"name":"_beneficiary","type":"address"}],"name":"proposeContributionReward","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"_avatar","type":"address"},{"indexed":true,"name":"_proposalId","type":"bytes32"},{"indexed":true,"name":"_intVoteInterface","type":"address"},{"indexed":false,"name":"_contributionDescription","type":"bytes32"},{"indexed":false,"name":"_reputationChange","type":"int256"},{"indexed":false,"name":"_rewards","type":"uint256[5]"},{"indexed":false,"name":"_externalToken","type":"address"},{"indexed":false,"name":"_beneficiary","type":"address"}],"name":"NewContributionProposal","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"_avatar","type":"address"},{"indexed":true,"name":"_proposalId","type":"bytes32"},{"indexed":false,"name":"_param","type":"int256"}],"name":"ProposalExecuted","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"_avatar","type":"address"},{"indexed":true,"name":"_proposalId","type":"bytes32"}],"name":"ProposalDeleted","type":"event"}
]`

const absoluteVoteABI = `[
	{"constant":false,"inputs":[{"name":"_reputationSystem","type":"address"},{"name":"_precReq","type":"uint256"},{"name":"_allowOwner","type":"bool"}],"name":"setParameters","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[{"name":"_reputationSystem","type":"address"},{"name":"_precReq","type":"uint256"},{"name":"_allowOwner","type":"bool"}],"name":"getParametersHash","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"pure","type":"function"},
	{"constant":true,"inputs":[{"name":"_proposalId","type":"bytes32"}],"name":"votesStatus","outputs":[{"name":"votes","type":"uint256[3]"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"_proposalId","type":"bytes32"},{"name":"_vote","type":"uint256"}],"name":"vote","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"_proposalId","type":"bytes32"},{"indexed":true,"name":"_avatar","type":"address"},{"indexed":true,"name":"_voter","type":"address"},{"indexed":false,"name":"_vote","type":"uint256"},{"indexed":false,"name":"_reputation","type":"uint256"}],"name":"LogVoteProposal","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"_proposalId","type":"bytes32"},{"indexed":true,"name":"_avatar","type":"address"},{"indexed":false,"name":"_decision","type":"uint256"},{"indexed":false,"name":"_totalReputation","type":"uint256"}],"name":"LogExecuteProposal","type":"event"}
]`
