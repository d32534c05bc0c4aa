package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/canopy-network/dao-indexer/internal/listener"
	"github.com/canopy-network/dao-indexer/internal/orgs"
	"github.com/canopy-network/dao-indexer/internal/proposals"
	"github.com/canopy-network/dao-indexer/internal/reconstruct"
	"github.com/canopy-network/dao-indexer/internal/worker"
	adminmodels "github.com/canopy-network/dao-indexer/pkg/db/models/admin"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Snapshotter reconstructs organization state.
type Snapshotter interface {
	Snapshot(ctx context.Context, org common.Address, detailed bool) (*reconstruct.Organization, error)
	ListOrganizations(ctx context.Context) ([]reconstruct.Organization, error)
}

// ProposalService submits proposals and votes.
type ProposalService interface {
	Create(ctx context.Context, req proposals.CreateRequest) (*reconstruct.Proposal, error)
	Vote(ctx context.Context, org common.Address, proposalID common.Hash, vote uint64) (*proposals.VoteResult, error)
}

// OrganizationCreator forges organizations.
type OrganizationCreator interface {
	Create(ctx context.Context, req orgs.CreateRequest) (*reconstruct.Organization, error)
}

// ProgressStore reports what the indexer has written.
type ProgressStore interface {
	LastIndexed(ctx context.Context) (uint64, error)
	FindGaps(ctx context.Context) ([]adminmodels.Gap, error)
	IndexProgressHistory(ctx context.Context, hours, intervalMinutes int) ([]adminmodels.ProgressPoint, error)
}

// QueueReporter reports the block queue. The worker implements it.
type QueueReporter interface {
	QueueStats(ctx context.Context) (worker.QueueStats, error)
}

// ListenerReporter reports the new heads subscription.
type ListenerReporter interface {
	Stats() listener.Stats
}

// Deps are the services behind the API. Organizations, Progress, Queue and
// Listener may be nil.
type Deps struct {
	Snapshots     Snapshotter
	Proposals     ProposalService
	Organizations OrganizationCreator
	Progress      ProgressStore
	Queue         QueueReporter
	Listener      ListenerReporter
}

// Handler holds the dependencies for API handlers
type Handler struct {
	Deps
	Logger     *zap.Logger
	AdminToken string

	inflight singleflight.Group
}

// NewHandler creates a new Handler instance
func NewHandler(deps Deps, logger *zap.Logger, adminToken string) *Handler {
	return &Handler{
		Deps:       deps,
		Logger:     logger,
		AdminToken: adminToken,
	}
}

// NewRouter creates and configures the HTTP router with all API routes
func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/health", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/daos", h.HandleDAOList).Methods(http.MethodGet)
	r.HandleFunc("/api/daos/{address}", h.HandleDAODetail).Methods(http.MethodGet)

	// Protected endpoints send transactions or expose indexer internals
	r.HandleFunc("/api/daos", h.RequireAuth(h.HandleDAOCreate)).Methods(http.MethodPost)
	r.HandleFunc("/api/daos/{address}/proposals", h.RequireAuth(h.HandleProposalCreate)).Methods(http.MethodPost)
	r.HandleFunc("/api/daos/{address}/proposals/{id}/votes", h.RequireAuth(h.HandleVote)).Methods(http.MethodPost)
	r.HandleFunc("/api/index/progress", h.RequireAuth(h.HandleIndexProgress)).Methods(http.MethodGet)

	return r
}

// RequireAuth is a middleware that validates the bearer token
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || h.AdminToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.AdminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next(w, r)
	}
}

// HandleHealth returns a simple health check response
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps a service error to a status code and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, proposals.ErrInvalidVote), errors.Is(err, proposals.ErrExternalTokenMissing),
		errors.Is(err, orgs.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNoSigner):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		h.Logger.Error(op+" failed", zap.Error(err))
	} else {
		h.Logger.Debug(op+" rejected", zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// pathAddress reads a hex address route variable.
func pathAddress(r *http.Request, key string) (common.Address, bool) {
	v := mux.Vars(r)[key]
	if !common.IsHexAddress(v) {
		return common.Address{}, false
	}
	return common.HexToAddress(v), true
}
