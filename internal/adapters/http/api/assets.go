package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/nutrimon/pkg/logger"
)

// handleIcon handles GET /icons/{crop}; the lookup is case-insensitive.
func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	crop := chi.URLParam(r, "crop")
	path, err := s.deps.IconPath(crop)
	if err != nil {
		s.logger.Debug(r.Context(), "icon not found", logger.String("crop", crop), logger.Error(err))
		writeError(w, WrapKind("icon", ErrNotFound, err))
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	http.ServeFile(w, r, path)
}

// handleLogo handles GET /logo.
func (s *Server) handleLogo(w http.ResponseWriter, r *http.Request) {
	path, err := s.deps.LogoPath()
	if err != nil {
		writeError(w, WrapKind("logo", ErrNotFound, err))
		return
	}
	http.ServeFile(w, r, path)
}
