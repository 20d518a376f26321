package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lvonguyen/cyberguard/internal/model"
	"github.com/lvonguyen/cyberguard/internal/service"
)

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(r, "page")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	result, err := s.alerts.List(r.Context(), service.AlertListParams{
		Severity:  model.Severity(q.Get("severity")),
		Status:    model.AlertStatus(q.Get("status")),
		Category:  model.AlertCategory(q.Get("category")),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch alerts")
		return
	}
	writeOK(w, http.StatusOK, "", result)
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var in service.CreateAlertInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, "Failed to create alert")
		return
	}

	a, err := s.alerts.Create(r.Context(), in, actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "Failed to create alert")
		return
	}
	writeOK(w, http.StatusCreated, "Alert created successfully", map[string]any{"alert": a})
}

func (s *Server) handleAlertStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.alerts.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch alert statistics")
		return
	}
	writeOK(w, http.StatusOK, "", stats)
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := s.alerts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch alert")
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"alert": a})
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateAlertInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, "Failed to update alert")
		return
	}

	a, err := s.alerts.Update(r.Context(), chi.URLParam(r, "id"), in, actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "Failed to update alert")
		return
	}
	writeOK(w, http.StatusOK, "Alert updated successfully", map[string]any{"alert": a})
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.alerts.Delete(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context())); err != nil {
		s.writeError(w, r, err, "Failed to delete alert")
		return
	}
	writeOK(w, http.StatusOK, "Alert deleted successfully", nil)
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	var in service.ResolveAlertInput
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &in); err != nil {
			s.writeError(w, r, err, "Failed to resolve alert")
			return
		}
	}

	a, err := s.alerts.Resolve(r.Context(), chi.URLParam(r, "id"), in, actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "Failed to resolve alert")
		return
	}
	writeOK(w, http.StatusOK, "Alert resolved successfully", map[string]any{"alert": a})
}
