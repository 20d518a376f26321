package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

func (s *Server) handleTriggerFetch(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	s.logger.Info("Manual OSINT fetch triggered", zap.String("user_id", actor.ID))

	// The cycle outlives a client disconnect so its writes are not cut short.
	result := s.scheduler.RunCycle(context.WithoutCancel(r.Context()))
	writeOK(w, http.StatusOK, "OSINT fetch completed", result)
}

func (s *Server) handleFetchStatus(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "", s.scheduler.Status())
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "", map[string]any{"sources": s.scheduler.Sources()})
}
