package handler

import (
	"net/http"
	"strconv"

	"github.com/canopy-network/dao-indexer/internal/listener"
	"github.com/canopy-network/dao-indexer/internal/worker"
	adminmodels "github.com/canopy-network/dao-indexer/pkg/db/models/admin"
	"go.uber.org/zap"
)

type indexProgressResponse struct {
	LastIndexed uint64                      `json:"last_indexed"`
	Gaps        []adminmodels.Gap           `json:"gaps"`
	History     []adminmodels.ProgressPoint `json:"history"`
	Queue       *worker.QueueStats          `json:"queue,omitempty"`
	Listener    *listener.Stats             `json:"listener,omitempty"`
}

// HandleIndexProgress reports the indexed height, gaps and recent throughput
// Query params: ?hours=24&interval=60 (minutes)
func (h *Handler) HandleIndexProgress(w http.ResponseWriter, r *http.Request) {
	if h.Progress == nil {
		writeError(w, http.StatusServiceUnavailable, "index not configured")
		return
	}

	hours := queryInt(r, "hours", 24)
	interval := queryInt(r, "interval", 60)
	ctx := r.Context()

	last, err := h.Progress.LastIndexed(ctx)
	if err != nil {
		h.fail(w, "last indexed", err)
		return
	}
	gaps, err := h.Progress.FindGaps(ctx)
	if err != nil {
		h.fail(w, "find gaps", err)
		return
	}
	history, err := h.Progress.IndexProgressHistory(ctx, hours, interval)
	if err != nil {
		h.fail(w, "progress history", err)
		return
	}

	resp := indexProgressResponse{
		LastIndexed: last,
		Gaps:        gaps,
		History:     history,
	}
	if resp.Gaps == nil {
		resp.Gaps = make([]adminmodels.Gap, 0)
	}
	if resp.History == nil {
		resp.History = make([]adminmodels.ProgressPoint, 0)
	}

	if h.Queue != nil {
		stats, err := h.Queue.QueueStats(ctx)
		if err != nil {
			// queue stats are informational
			h.Logger.Warn("failed to read queue stats", zap.Error(err))
		} else {
			resp.Queue = &stats
		}
	}

	if h.Listener != nil {
		stats := h.Listener.Stats()
		resp.Listener = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
