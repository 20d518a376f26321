package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lvonguyen/cyberguard/internal/model"
	"github.com/lvonguyen/cyberguard/internal/store"
)

// maxAlertPageSize bounds alert list pages.
const maxAlertPageSize = 100

// Alerts manages security alerts.
type Alerts struct {
	repo   store.AlertRepository
	locks  *store.KeyedMutex
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewAlerts creates the alert service.
func NewAlerts(repo store.AlertRepository, clock clockwork.Clock, logger *zap.Logger) *Alerts {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerts{
		repo:   repo,
		locks:  store.NewKeyedMutex(),
		clock:  clock,
		logger: logger,
	}
}

// CreateAlertInput is a manually entered alert.
type CreateAlertInput struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"required,max=1000"`
	Severity    model.Severity      `json:"severity" validate:"omitempty,severity"`
	Category    model.AlertCategory `json:"category" validate:"omitempty,alert_category"`
	Domain      string              `json:"domain" validate:"omitempty,domain"`
	IPAddress   string              `json:"ipAddress" validate:"omitempty,ipv4"`
	Tags        []string            `json:"tags"`
	Evidence    []model.Evidence    `json:"evidence" validate:"dive"`
	AssignedTo  string              `json:"assignedTo"`
}

// UpdateAlertInput patches an alert. Nil fields are left unchanged.
type UpdateAlertInput struct {
	Title       *string              `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string              `json:"description" validate:"omitempty,min=1,max=1000"`
	Severity    *model.Severity      `json:"severity" validate:"omitempty,severity"`
	Category    *model.AlertCategory `json:"category" validate:"omitempty,alert_category"`
	Status      *model.AlertStatus   `json:"status" validate:"omitempty,oneof=new investigating false_positive"`
	Domain      *string              `json:"domain" validate:"omitempty,domain"`
	IPAddress   *string              `json:"ipAddress" validate:"omitempty,ipv4"`
	Tags        *[]string            `json:"tags"`
	Evidence    *[]model.Evidence    `json:"evidence" validate:"omitempty,dive"`
	AssignedTo  *string              `json:"assignedTo"`
}

// ResolveAlertInput closes an alert.
type ResolveAlertInput struct {
	Resolution string `json:"resolution" validate:"max=500"`
}

// AlertListParams filters and pages an alert listing.
type AlertListParams struct {
	Severity  model.Severity      `json:"severity" validate:"omitempty,severity"`
	Status    model.AlertStatus   `json:"status" validate:"omitempty,alert_status"`
	Category  model.AlertCategory `json:"category" validate:"omitempty,alert_category"`
	Search    string              `json:"search"`
	SortBy    string              `json:"sortBy" validate:"omitempty,oneof=createdAt updatedAt severity status title"`
	SortOrder string              `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int                 `json:"page" validate:"min=0"`
	Limit     int                 `json:"limit" validate:"min=0,max=100"`
}

// AlertPage is one page of alerts.
type AlertPage struct {
	Alerts     []*model.Alert `json:"alerts"`
	Pagination Pagination     `json:"pagination"`
}

// AlertOverview counts alerts by status and severity.
type AlertOverview struct {
	Total         int `json:"total"`
	New           int `json:"new"`
	Investigating int `json:"investigating"`
	Resolved      int `json:"resolved"`
	FalsePositive int `json:"falsePositive"`
	Critical      int `json:"critical"`
	High          int `json:"high"`
	Medium        int `json:"medium"`
	Low           int `json:"low"`
}

// AlertStats summarizes all alerts.
type AlertStats struct {
	Overview          AlertOverview `json:"overview"`
	SeverityBreakdown []Bucket      `json:"severityBreakdown"`
	CategoryBreakdown []Bucket      `json:"categoryBreakdown"`
}

// Create stores a manually entered alert owned by actor.
func (s *Alerts) Create(ctx context.Context, in CreateAlertInput, actor Actor) (*model.Alert, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	a := &model.Alert{
		Title:       in.Title,
		Description: in.Description,
		Severity:    in.Severity,
		Category:    in.Category,
		Source:      model.AlertSourceManual,
		Domain:      in.Domain,
		IPAddress:   in.IPAddress,
		Tags:        in.Tags,
		Evidence:    in.Evidence,
		AssignedTo:  in.AssignedTo,
	}
	if actor.ID != "" {
		a.CreatedBy = &actor.ID
	}
	if err := s.insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// insert fills defaults and persists a.
func (s *Alerts) insert(ctx context.Context, a *model.Alert) error {
	now := s.clock.Now()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Severity == "" {
		a.Severity = model.SeverityMedium
	}
	if a.Category == "" {
		a.Category = model.AlertOther
	}
	if a.Source == "" {
		a.Source = model.AlertSourceManual
	}
	if a.Status == "" {
		a.Status = model.StatusNew
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.repo.Create(ctx, a); err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// CreateIfAbsent stores a unless an alert with the same domain and title was
// created within window. It reports whether a was stored.
func (s *Alerts) CreateIfAbsent(ctx context.Context, a *model.Alert, window time.Duration) (bool, error) {
	unlock := s.locks.Lock(a.Domain + "\x00" + a.Title)
	defer unlock()

	since := s.clock.Now().Add(-window)
	_, err := s.repo.FindDuplicate(ctx, a.Domain, a.Title, since)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, model.ErrNotFound):
		return false, fmt.Errorf("failed to check duplicate alert: %w", err)
	}

	if err := s.insert(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns one alert.
func (s *Alerts) Get(ctx context.Context, id string) (*model.Alert, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns a filtered page of alerts, newest first by default.
func (s *Alerts) List(ctx context.Context, p AlertListParams) (*AlertPage, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	page, limit := pageParams(p.Page, p.Limit)
	if limit > maxAlertPageSize {
		limit = maxAlertPageSize
	}
	sortBy := store.Sort{Field: p.SortBy, Desc: p.SortOrder != "asc"}
	if sortBy.Field == "" {
		sortBy.Field = "createdAt"
	}

	alerts, total, err := s.repo.List(ctx, store.AlertFilter{
		Severity: p.Severity,
		Status:   p.Status,
		Category: p.Category,
		Search:   p.Search,
		Sort:     sortBy,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	return &AlertPage{Alerts: alerts, Pagination: newPagination(page, limit, total)}, nil
}

// Update patches an alert. Only its creator or an admin may update it, and
// resolving goes through Resolve. A resolved alert keeps its status.
func (s *Alerts) Update(ctx context.Context, id string, in UpdateAlertInput, actor Actor) (*model.Alert, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(alertLockKey(id))
	defer unlock()

	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: not authorized to update this alert", model.ErrForbidden)
	}
	if in.Status != nil && a.Status == model.StatusResolved && *in.Status != model.StatusResolved {
		return nil, fmt.Errorf("%w: status cannot change", model.ErrAlreadyResolved)
	}

	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Severity != nil {
		a.Severity = *in.Severity
	}
	if in.Category != nil {
		a.Category = *in.Category
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.Domain != nil {
		a.Domain = *in.Domain
	}
	if in.IPAddress != nil {
		a.IPAddress = *in.IPAddress
	}
	if in.Tags != nil {
		a.Tags = *in.Tags
	}
	if in.Evidence != nil {
		a.Evidence = *in.Evidence
	}
	if in.AssignedTo != nil {
		a.AssignedTo = *in.AssignedTo
	}
	a.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Resolve marks an alert resolved by actor. Resolving twice fails with
// model.ErrAlreadyResolved.
func (s *Alerts) Resolve(ctx context.Context, id string, in ResolveAlertInput, actor Actor) (*model.Alert, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(alertLockKey(id))
	defer unlock()

	a, err := s.repo.Resolve(ctx, id, actor.ID, in.Resolution, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Alert resolved", zap.String("alert_id", id), zap.String("resolved_by", actor.ID))
	return a, nil
}

// Delete removes an alert. Only its creator or an admin may delete it.
func (s *Alerts) Delete(ctx context.Context, id string, actor Actor) error {
	unlock := s.locks.Lock(alertLockKey(id))
	defer unlock()

	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !a.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
		return fmt.Errorf("%w: not authorized to delete this alert", model.ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}

// alertLockKey keeps record locks apart from the dedup keys used by
// CreateIfAbsent.
func alertLockKey(id string) string {
	return "alert\x00" + id
}

// Stats counts all alerts by status, severity and category.
func (s *Alerts) Stats(ctx context.Context) (*AlertStats, error) {
	alerts, _, err := s.repo.List(ctx, store.AlertFilter{})
	if err != nil {
		return nil, err
	}

	var o AlertOverview
	severities := map[string]int{}
	categories := map[string]int{}
	for _, a := range alerts {
		o.Total++
		switch a.Status {
		case model.StatusNew:
			o.New++
		case model.StatusInvestigating:
			o.Investigating++
		case model.StatusResolved:
			o.Resolved++
		case model.StatusFalsePositive:
			o.FalsePositive++
		}
		switch a.Severity {
		case model.SeverityCritical:
			o.Critical++
		case model.SeverityHigh:
			o.High++
		case model.SeverityMedium:
			o.Medium++
		case model.SeverityLow:
			o.Low++
		}
		severities[string(a.Severity)]++
		categories[string(a.Category)]++
	}

	return &AlertStats{
		Overview:          o,
		SeverityBreakdown: breakdown(severities, []string{"critical", "high", "medium", "low"}),
		CategoryBreakdown: breakdown(categories, []string{
			"phishing", "malware", "suspicious_domain", "data_breach", "vulnerability", "other",
		}),
	}, nil
}
