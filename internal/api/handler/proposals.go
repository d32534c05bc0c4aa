package handler

import (
	"net/http"
	"strings"

	"github.com/canopy-network/dao-indexer/internal/proposals"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type createProposalRequest struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Beneficiary      string          `json:"beneficiary"`
	RewardToken      decimal.Decimal `json:"rewardToken"`
	RewardReputation decimal.Decimal `json:"rewardReputation"`
	RewardEth        decimal.Decimal `json:"rewardEth"`
	ExternalToken    string          `json:"externalToken"`
	RewardExternal   decimal.Decimal `json:"externalTokenReward"`
}

type voteRequest struct {
	Vote uint64 `json:"vote"`
}

// HandleProposalCreate submits a contribution reward proposal
func (h *Handler) HandleProposalCreate(w http.ResponseWriter, r *http.Request) {
	org, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid organization address")
		return
	}

	var req createProposalRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.Logger.Warn("bad json in proposal request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	if !common.IsHexAddress(req.Beneficiary) {
		writeError(w, http.StatusBadRequest, "invalid beneficiary address")
		return
	}
	var externalToken common.Address
	if req.ExternalToken != "" {
		if !common.IsHexAddress(req.ExternalToken) {
			writeError(w, http.StatusBadRequest, "invalid external token address")
			return
		}
		externalToken = common.HexToAddress(req.ExternalToken)
	}

	p, err := h.Proposals.Create(r.Context(), proposals.CreateRequest{
		Organization:     org,
		Title:            req.Title,
		Description:      req.Description,
		Beneficiary:      common.HexToAddress(req.Beneficiary),
		RewardToken:      req.RewardToken,
		RewardReputation: req.RewardReputation,
		RewardEth:        req.RewardEth,
		ExternalToken:    externalToken,
		RewardExternal:   req.RewardExternal,
	})
	if err != nil {
		h.fail(w, "create proposal", err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// HandleVote casts a vote on a proposal
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	org, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid organization address")
		return
	}

	id, err := hexutil.Decode(mux.Vars(r)["id"])
	if err != nil || len(id) != common.HashLength {
		writeError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	var req voteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.Logger.Warn("bad json in vote request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	res, err := h.Proposals.Vote(r.Context(), org, common.BytesToHash(id), req.Vote)
	if err != nil {
		h.fail(w, "vote", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
