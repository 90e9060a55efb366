package api

import (
	"net/http"
	"strconv"

	"github.com/okian/nutrimon/internal/adapters/repository"
	"github.com/okian/nutrimon/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type syncDataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type syncIconsResponse struct {
	Success bool `json:"success"`
}

// handleSyncData handles POST /sync/data. The pass runs in the request
// context; a failed sync is still a 200 with success=false.
func (s *Server) handleSyncData(w http.ResponseWriter, r *http.Request) {
	ok, msg := s.deps.SyncData(r.Context())
	s.logger.Info(r.Context(), "data sync requested", logger.Bool("ok", ok), logger.String("message", msg))
	writeJSON(w, http.StatusOK, syncDataResponse{Success: ok, Message: msg})
}

// handleSyncIcons handles POST /sync/icons.
func (s *Server) handleSyncIcons(w http.ResponseWriter, r *http.Request) {
	ok := s.deps.SyncIcons(r.Context())
	writeJSON(w, http.StatusOK, syncIconsResponse{Success: ok})
}

// handleHistory handles GET /sync/history?limit=n.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, NewKind("history", ErrBadRequest, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}
	runs, err := s.deps.History(r.Context(), limit)
	if err != nil {
		writeError(w, WrapKind("history", ErrInternal, err))
		return
	}
	if runs == nil {
		runs = []repository.SyncRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
