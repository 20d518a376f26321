package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lvonguyen/cyberguard/internal/model"
	"github.com/lvonguyen/cyberguard/internal/scoring"
	"github.com/lvonguyen/cyberguard/internal/store"
)

// DefaultCheckCacheSize is the number of heuristic results kept in memory.
const DefaultCheckCacheSize = 1024

// Check result sources.
const (
	CheckSourceDatabase  = "database"
	CheckSourceHeuristic = "heuristic"
)

// Domains manages the suspicious domain list. Every read-modify-write of a
// record holds the per-domain lock and ends with a risk recomputation.
type Domains struct {
	repo   store.DomainRepository
	alerts *Alerts
	locks  *store.KeyedMutex
	checks *lru.Cache[string, scoring.Assessment]
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewDomains creates the domain service. cacheSize bounds the heuristic
// result cache.
func NewDomains(repo store.DomainRepository, alerts *Alerts, clock clockwork.Clock, logger *zap.Logger, cacheSize int) (*Domains, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCheckCacheSize
	}
	cache, err := lru.New[string, scoring.Assessment](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create check cache: %w", err)
	}
	return &Domains{
		repo:   repo,
		alerts: alerts,
		locks:  store.NewKeyedMutex(),
		checks: cache,
		clock:  clock,
		logger: logger,
	}, nil
}

// AddDomainInput is a manual addition to the suspicious list.
type AddDomainInput struct {
	Domain     string               `json:"domain" validate:"required"`
	Category   model.DomainCategory `json:"category" validate:"omitempty,domain_category"`
	Indicators []model.Indicator    `json:"indicators" validate:"dive"`
	Notes      string               `json:"notes" validate:"max=1000"`
	Tags       []string             `json:"tags"`
}

// UpdateDomainInput patches a domain record. Nil fields are left unchanged.
type UpdateDomainInput struct {
	Category    *model.DomainCategory `json:"category" validate:"omitempty,domain_category"`
	Indicators  *[]model.Indicator    `json:"indicators" validate:"omitempty,dive"`
	Tags        *[]string             `json:"tags"`
	IPAddresses *[]model.IPAddress    `json:"ipAddresses"`
	Whois       *model.Whois          `json:"whois"`
	SSLInfo     *model.SSLInfo        `json:"sslInfo"`
	IsActive    *bool                 `json:"isActive"`
}

// DomainListParams filters and pages a domain listing.
type DomainListParams struct {
	RiskLevel model.RiskLevel      `json:"riskLevel" validate:"omitempty,risk_level"`
	Category  model.DomainCategory `json:"category" validate:"omitempty,domain_category"`
	Search    string               `json:"search"`
	SortBy    string               `json:"sortBy" validate:"omitempty,oneof=riskScore domain firstSeen lastSeen createdAt"`
	SortOrder string               `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int                  `json:"page" validate:"min=0"`
	Limit     int                  `json:"limit" validate:"min=0,max=100"`
}

// DomainPage is one page of domains.
type DomainPage struct {
	Domains    []*model.SuspiciousDomain `json:"domains"`
	Pagination Pagination                `json:"pagination"`
}

// CheckResult is the verdict for a checked domain.
type CheckResult struct {
	Domain       string               `json:"domain"`
	IsSuspicious bool                 `json:"isSuspicious"`
	RiskLevel    model.RiskLevel      `json:"riskLevel"`
	RiskScore    int                  `json:"riskScore"`
	Category     model.DomainCategory `json:"category"`
	Indicators   []model.Indicator    `json:"indicators"`
	FirstSeen    *time.Time           `json:"firstSeen,omitempty"`
	LastSeen     *time.Time           `json:"lastSeen,omitempty"`
	Source       string               `json:"source"`
}

// DomainOverview counts active domains by level.
type DomainOverview struct {
	Total        int     `json:"total"`
	Critical     int     `json:"critical"`
	High         int     `json:"high"`
	Medium       int     `json:"medium"`
	Low          int     `json:"low"`
	AvgRiskScore float64 `json:"avgRiskScore"`
}

// RecentDomain is a short view of a newly added domain.
type RecentDomain struct {
	ID        string               `json:"id"`
	Domain    string               `json:"domain"`
	RiskLevel model.RiskLevel      `json:"riskLevel"`
	Category  model.DomainCategory `json:"category"`
	CreatedAt time.Time            `json:"createdAt"`
}

// DomainStats summarizes the active domain list.
type DomainStats struct {
	Overview          DomainOverview `json:"overview"`
	CategoryBreakdown []Bucket       `json:"categoryBreakdown"`
	RecentDomains     []RecentDomain `json:"recentDomains"`
}

const recentDomainCount = 5

// Check returns the stored verdict for an active known domain, otherwise
// the heuristic assessment of its name.
func (s *Domains) Check(ctx context.Context, raw string) (*CheckResult, error) {
	name := scoring.Normalize(raw)
	if name == "" {
		return nil, model.NewValidationError("domain", "domain is required")
	}

	d, err := s.repo.FindByName(ctx, name)
	switch {
	case err == nil && d.IsActive:
		return &CheckResult{
			Domain:       name,
			IsSuspicious: true,
			RiskLevel:    d.RiskLevel,
			RiskScore:    d.RiskScore,
			Category:     d.Category,
			Indicators:   d.Indicators,
			FirstSeen:    &d.FirstSeen,
			LastSeen:     &d.LastSeen,
			Source:       CheckSourceDatabase,
		}, nil
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	a, ok := s.checks.Get(name)
	if !ok {
		a = scoring.Assess(name)
		s.checks.Add(name, a)
	}
	return &CheckResult{
		Domain:       name,
		IsSuspicious: a.IsSuspicious,
		RiskLevel:    a.RiskLevel,
		RiskScore:    a.RiskScore,
		Category:     a.Category,
		Indicators:   a.Indicators,
		Source:       CheckSourceHeuristic,
	}, nil
}

// Add puts a domain on the suspicious list and raises an alert for it.
// It fails with model.ErrDomainExists when the domain is already known.
func (s *Domains) Add(ctx context.Context, in AddDomainInput, actor Actor) (*model.SuspiciousDomain, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	name := scoring.Normalize(in.Domain)
	if err := model.ValidateDomain(name); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	_, err := s.repo.FindByName(ctx, name)
	switch {
	case err == nil:
		return nil, model.ErrDomainExists
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	now := s.clock.Now()
	d := &model.SuspiciousDomain{
		ID:         uuid.NewString(),
		Domain:     name,
		Category:   in.Category,
		Source:     model.SourceManual,
		Indicators: withDefaultConfidence(in.Indicators),
		Tags:       in.Tags,
		IsActive:   true,
		FirstSeen:  now,
		LastSeen:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if d.Category == "" {
		d.Category = model.CategorySuspicious
	}
	if in.Notes != "" {
		d.Notes = []model.Note{{Text: in.Notes, AddedBy: actor.ID, AddedAt: now}}
	}
	*d = scoring.RecomputeRisk(*d, now)

	saved, err := s.repo.Upsert(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to save domain: %w", err)
	}
	s.checks.Remove(name)

	alert := &model.Alert{
		Title:       fmt.Sprintf("New Suspicious Domain Detected: %s", name),
		Description: fmt.Sprintf("Domain %s has been added to the suspicious domains list. Risk Level: %s", name, saved.RiskLevel),
		Severity:    model.SeverityForRiskLevel(saved.RiskLevel),
		Category:    model.AlertSuspiciousDomain,
		Source:      model.AlertSourceManual,
		Domain:      name,
		Tags:        []string{"domain", "suspicious", string(saved.Category)},
	}
	if actor.ID != "" {
		alert.CreatedBy = &actor.ID
	}
	if err := s.alerts.insert(ctx, alert); err != nil {
		s.logger.Error("Failed to create alert for added domain", zap.String("domain", name), zap.Error(err))
	}

	s.logger.Info("Domain added",
		zap.String("domain", name),
		zap.Int("risk_score", saved.RiskScore),
		zap.String("risk_level", string(saved.RiskLevel)),
	)
	return saved, nil
}

// Get returns one domain record, active or not.
func (s *Domains) Get(ctx context.Context, id string) (*model.SuspiciousDomain, error) {
	return s.repo.FindByID(ctx, id)
}

// Update patches a domain and recomputes its risk.
func (s *Domains) Update(ctx context.Context, id string, in UpdateDomainInput) (*model.SuspiciousDomain, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(d *model.SuspiciousDomain) {
		if in.Category != nil {
			d.Category = *in.Category
		}
		if in.Indicators != nil {
			d.Indicators = withDefaultConfidence(*in.Indicators)
		}
		if in.Tags != nil {
			d.Tags = *in.Tags
		}
		if in.IPAddresses != nil {
			d.IPAddresses = *in.IPAddresses
		}
		if in.Whois != nil {
			d.Whois = in.Whois
		}
		if in.SSLInfo != nil {
			d.SSLInfo = in.SSLInfo
		}
		if in.IsActive != nil {
			d.IsActive = *in.IsActive
		}
	})
}

// Delete soft-deletes a domain.
func (s *Domains) Delete(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(d *model.SuspiciousDomain) {
		d.IsActive = false
	})
	return err
}

// AddIndicator appends one indicator to a domain, touches lastSeen and
// recomputes its risk.
func (s *Domains) AddIndicator(ctx context.Context, id string, ind model.Indicator) (*model.SuspiciousDomain, error) {
	if err := Validate(ind); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(current.Domain)
	defer unlock()

	return s.appendAndRescore(ctx, current.Domain, withDefaultConfidence([]model.Indicator{ind}))
}

// RecordObservation applies one ingested finding: the indicators are
// appended to an existing record, or a new osint record is created with the
// given category. It reports whether a new record was created.
func (s *Domains) RecordObservation(ctx context.Context, name string, category model.DomainCategory, inds []model.Indicator) (bool, error) {
	unlock := s.locks.Lock(name)
	defer unlock()

	_, err := s.appendAndRescore(ctx, name, inds)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, model.ErrNotFound):
		return false, err
	}

	now := s.clock.Now()
	d := model.SuspiciousDomain{
		ID:         uuid.NewString(),
		Domain:     name,
		Category:   category,
		Source:     model.SourceOSINT,
		Indicators: append([]model.Indicator(nil), inds...),
		IsActive:   true,
		FirstSeen:  now,
		LastSeen:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	d = scoring.RecomputeRisk(d, now)
	if _, err := s.repo.Upsert(ctx, &d); err != nil {
		return false, fmt.Errorf("failed to save domain %s: %w", name, err)
	}
	s.checks.Remove(name)
	return true, nil
}

// appendAndRescore must be called with the lock for name held. The new
// indicators and the recomputed risk are written together.
func (s *Domains) appendAndRescore(ctx context.Context, name string, inds []model.Indicator) (*model.SuspiciousDomain, error) {
	d, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	d.Indicators = append(d.Indicators, inds...)
	d.LastSeen = now
	d.UpdatedAt = now
	*d = scoring.RecomputeRisk(*d, now)

	saved, err := s.repo.Upsert(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to save domain %s: %w", name, err)
	}
	return saved, nil
}

// mutate reloads the record under its domain lock, applies fn, recomputes
// risk and writes it back.
func (s *Domains) mutate(ctx context.Context, id string, fn func(*model.SuspiciousDomain)) (*model.SuspiciousDomain, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(current.Domain)
	defer unlock()

	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	fn(d)
	d.UpdatedAt = now
	*d = scoring.RecomputeRisk(*d, now)

	saved, err := s.repo.Upsert(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to save domain: %w", err)
	}
	return saved, nil
}

// List returns a filtered page of active domains, riskiest first by default.
func (s *Domains) List(ctx context.Context, p DomainListParams) (*DomainPage, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	page, limit := pageParams(p.Page, p.Limit)
	sortBy := store.Sort{Field: p.SortBy, Desc: p.SortOrder != "asc"}
	if sortBy.Field == "" {
		sortBy.Field = "riskScore"
	}

	domains, total, err := s.repo.List(ctx, store.DomainFilter{
		RiskLevel: p.RiskLevel,
		Category:  p.Category,
		Search:    p.Search,
		Sort:      sortBy,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	return &DomainPage{Domains: domains, Pagination: newPagination(page, limit, total)}, nil
}

// Stats summarizes active domains.
func (s *Domains) Stats(ctx context.Context) (*DomainStats, error) {
	domains, _, err := s.repo.List(ctx, store.DomainFilter{Sort: store.Sort{Field: "createdAt", Desc: true}})
	if err != nil {
		return nil, err
	}

	var o DomainOverview
	categories := map[string]int{}
	sum := 0
	for _, d := range domains {
		o.Total++
		sum += d.RiskScore
		switch d.RiskLevel {
		case model.RiskCritical:
			o.Critical++
		case model.RiskHigh:
			o.High++
		case model.RiskMedium:
			o.Medium++
		case model.RiskLow:
			o.Low++
		}
		categories[string(d.Category)]++
	}
	if o.Total > 0 {
		o.AvgRiskScore = float64(sum) / float64(o.Total)
	}

	recent := make([]RecentDomain, 0, recentDomainCount)
	for _, d := range domains {
		if len(recent) == recentDomainCount {
			break
		}
		recent = append(recent, RecentDomain{
			ID:        d.ID,
			Domain:    d.Domain,
			RiskLevel: d.RiskLevel,
			Category:  d.Category,
			CreatedAt: d.CreatedAt,
		})
	}

	return &DomainStats{
		Overview:          o,
		CategoryBreakdown: breakdown(categories, []string{"phishing", "malware", "spam", "suspicious", "unknown"}),
		RecentDomains:     recent,
	}, nil
}

func withDefaultConfidence(inds []model.Indicator) []model.Indicator {
	out := make([]model.Indicator, len(inds))
	for i, ind := range inds {
		ind.Confidence = ind.EffectiveConfidence()
		out[i] = ind
	}
	return out
}
