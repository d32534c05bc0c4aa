package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/canopy-network/dao-indexer/internal/orgs"
	"github.com/canopy-network/dao-indexer/internal/reconstruct"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type founderRequest struct {
	Address    string          `json:"address"`
	Tokens     decimal.Decimal `json:"tokens"`
	Reputation decimal.Decimal `json:"reputation"`
}

type createDAORequest struct {
	Name        string           `json:"name"`
	TokenName   string           `json:"tokenName"`
	TokenSymbol string           `json:"tokenSymbol"`
	Founders    []founderRequest `json:"founders"`
}

// HandleDAOList returns a summary of every registered organization
func (h *Handler) HandleDAOList(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Snapshots.ListOrganizations(r.Context())
	if err != nil {
		h.fail(w, "list organizations", err)
		return
	}

	if orgs == nil {
		orgs = make([]reconstruct.Organization, 0)
	}
	writeJSON(w, http.StatusOK, orgs)
}

// HandleDAODetail returns the snapshot of one organization
// Query param: ?detailed=false for identity and supply only
func (h *Handler) HandleDAODetail(w http.ResponseWriter, r *http.Request) {
	org, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid organization address")
		return
	}

	detailed := true
	if v := r.URL.Query().Get("detailed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "detailed must be a boolean")
			return
		}
		detailed = b
	}

	// Identical concurrent requests share one reconstruction, which must outlive
	// the request that started it.
	ctx := context.WithoutCancel(r.Context())
	key := org.Hex() + ":" + strconv.FormatBool(detailed)
	v, err, shared := h.inflight.Do(key, func() (any, error) {
		return h.Snapshots.Snapshot(ctx, org, detailed)
	})
	if err != nil {
		h.fail(w, "snapshot", err)
		return
	}
	if shared {
		h.Logger.Debug("snapshot shared", zap.String("org", org.Hex()), zap.Bool("detailed", detailed))
	}

	writeJSON(w, http.StatusOK, v)
}

// HandleDAOCreate forges an organization with its founders
func (h *Handler) HandleDAOCreate(w http.ResponseWriter, r *http.Request) {
	if h.Organizations == nil {
		writeError(w, http.StatusServiceUnavailable, "organization creation not configured")
		return
	}

	var req createDAORequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.Logger.Warn("bad json in organization request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	founders := make([]orgs.FounderRequest, 0, len(req.Founders))
	for _, f := range req.Founders {
		if !common.IsHexAddress(f.Address) {
			writeError(w, http.StatusBadRequest, "invalid founder address")
			return
		}
		founders = append(founders, orgs.FounderRequest{
			Address:    common.HexToAddress(f.Address),
			Tokens:     f.Tokens,
			Reputation: f.Reputation,
		})
	}

	org, err := h.Organizations.Create(r.Context(), orgs.CreateRequest{
		Name:        req.Name,
		TokenName:   req.TokenName,
		TokenSymbol: req.TokenSymbol,
		Founders:    founders,
	})
	if err != nil {
		h.fail(w, "create organization", err)
		return
	}

	writeJSON(w, http.StatusCreated, org)
}
