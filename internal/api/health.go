package api

import (
	"context"
	"net/http"
	"time"

	"github.com/safar/license-store/internal/database"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := database.Health(ctx, s.db)
	status := http.StatusOK
	if report["status"] != "healthy" {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, report)
}
