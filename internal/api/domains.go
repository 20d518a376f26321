package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lvonguyen/cyberguard/internal/model"
	"github.com/lvonguyen/cyberguard/internal/service"
)

type checkDomainRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) handleCheckDomain(w http.ResponseWriter, r *http.Request) {
	var req checkDomainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "Failed to check domain")
		return
	}

	result, err := s.domains.Check(r.Context(), req.Domain)
	if err != nil {
		s.writeError(w, r, err, "Failed to check domain")
		return
	}
	if s.metrics != nil {
		s.metrics.DomainChecks.WithLabelValues(result.Source).Inc()
	}
	writeOK(w, http.StatusOK, "", result)
}

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
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

	result, err := s.domains.List(r.Context(), service.DomainListParams{
		RiskLevel: model.RiskLevel(q.Get("riskLevel")),
		Category:  model.DomainCategory(q.Get("category")),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch suspicious domains")
		return
	}
	writeOK(w, http.StatusOK, "", result)
}

func (s *Server) handleAddDomain(w http.ResponseWriter, r *http.Request) {
	var in service.AddDomainInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, "Failed to add suspicious domain")
		return
	}

	d, err := s.domains.Add(r.Context(), in, actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "Failed to add suspicious domain")
		return
	}
	writeOK(w, http.StatusCreated, "Domain added to suspicious list successfully", map[string]any{"domain": d})
}

func (s *Server) handleDomainStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.domains.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch domain statistics")
		return
	}
	writeOK(w, http.StatusOK, "", stats)
}

func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := s.domains.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch domain")
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"domain": d})
}

func (s *Server) handleUpdateDomain(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateDomainInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, "Failed to update domain")
		return
	}

	d, err := s.domains.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err, "Failed to update domain")
		return
	}
	writeOK(w, http.StatusOK, "Domain updated successfully", map[string]any{"domain": d})
}

func (s *Server) handleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := s.domains.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err, "Failed to delete domain")
		return
	}
	writeOK(w, http.StatusOK, "Domain deleted successfully", nil)
}

func (s *Server) handleAddIndicator(w http.ResponseWriter, r *http.Request) {
	var ind model.Indicator
	if err := decodeJSON(w, r, &ind); err != nil {
		s.writeError(w, r, err, "Failed to add indicator")
		return
	}

	d, err := s.domains.AddIndicator(r.Context(), chi.URLParam(r, "id"), ind)
	if err != nil {
		s.writeError(w, r, err, "Failed to add indicator")
		return
	}
	writeOK(w, http.StatusOK, "Indicator added successfully", map[string]any{"domain": d})
}
