package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lvonguyen/cyberguard/internal/model"
)

// Memory is a process-local Store.
type Memory struct {
	domains *memoryDomains
	alerts  *memoryAlerts
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		domains: &memoryDomains{byID: make(map[string]*model.SuspiciousDomain), byName: make(map[string]string)},
		alerts:  &memoryAlerts{byID: make(map[string]*model.Alert)},
	}
}

func (m *Memory) Domains() DomainRepository { return m.domains }
func (m *Memory) Alerts() AlertRepository   { return m.alerts }

func (m *Memory) Ping(ctx context.Context) error  { return ctx.Err() }
func (m *Memory) Close(ctx context.Context) error { return nil }

// -----------------------------------------------------------------------------
// Domains
// -----------------------------------------------------------------------------

type memoryDomains struct {
	mu     sync.RWMutex
	byID   map[string]*model.SuspiciousDomain
	byName map[string]string
}

func (r *memoryDomains) FindByName(ctx context.Context, name string) (*model.SuspiciousDomain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, model.ErrDomainNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *memoryDomains) FindByID(ctx context.Context, id string) (*model.SuspiciousDomain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return nil, model.ErrDomainNotFound
	}
	return d.Clone(), nil
}

func (r *memoryDomains) Upsert(ctx context.Context, d *model.SuspiciousDomain) (*model.SuspiciousDomain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := d.Clone()
	if id, ok := r.byName[d.Domain]; ok {
		stored.ID = id
	} else if prev, ok := r.byID[d.ID]; ok {
		// Renamed record.
		delete(r.byName, prev.Domain)
	}
	r.byID[stored.ID] = stored
	r.byName[stored.Domain] = stored.ID
	return stored.Clone(), nil
}

func (r *memoryDomains) List(ctx context.Context, f DomainFilter) ([]*model.SuspiciousDomain, int, error) {
	r.mu.RLock()
	var out []*model.SuspiciousDomain
	search := strings.ToLower(f.Search)
	for _, d := range r.byID {
		if !f.IncludeInactive && !d.IsActive {
			continue
		}
		if f.RiskLevel != "" && d.RiskLevel != f.RiskLevel {
			continue
		}
		if f.Category != "" && d.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(d.Domain, search) {
			continue
		}
		out = append(out, d.Clone())
	}
	r.mu.RUnlock()

	sortBy := f.Sort
	if sortBy.Field == "" {
		sortBy = Sort{Field: "riskScore", Desc: true}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compareDomains(out[i], out[j], sortBy.Field)
		if c == 0 {
			c = strings.Compare(out[i].ID, out[j].ID)
			return c < 0
		}
		if sortBy.Desc {
			return c > 0
		}
		return c < 0
	})
	return paginate(out, f.Page, f.Limit), len(out), nil
}

func compareDomains(a, b *model.SuspiciousDomain, field string) int {
	switch field {
	case "domain":
		return strings.Compare(a.Domain, b.Domain)
	case "firstSeen":
		return a.FirstSeen.Compare(b.FirstSeen)
	case "lastSeen":
		return a.LastSeen.Compare(b.LastSeen)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return compareInts(a.RiskScore, b.RiskScore)
	}
}

// -----------------------------------------------------------------------------
// Alerts
// -----------------------------------------------------------------------------

type memoryAlerts struct {
	mu   sync.RWMutex
	byID map[string]*model.Alert
}

func (r *memoryAlerts) Create(ctx context.Context, a *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; ok {
		return model.ErrConflict
	}
	r.byID[a.ID] = a.Clone()
	return nil
}

func (r *memoryAlerts) FindByID(ctx context.Context, id string) (*model.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, model.ErrAlertNotFound
	}
	return a.Clone(), nil
}

func (r *memoryAlerts) FindDuplicate(ctx context.Context, domain, title string, since time.Time) (*model.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var newest *model.Alert
	for _, a := range r.byID {
		if a.Domain != domain || a.Title != title || a.CreatedAt.Before(since) {
			continue
		}
		if newest == nil || a.CreatedAt.After(newest.CreatedAt) {
			newest = a
		}
	}
	if newest == nil {
		return nil, model.ErrAlertNotFound
	}
	return newest.Clone(), nil
}

func (r *memoryAlerts) Update(ctx context.Context, a *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; !ok {
		return model.ErrAlertNotFound
	}
	r.byID[a.ID] = a.Clone()
	return nil
}

func (r *memoryAlerts) Resolve(ctx context.Context, id, by, resolution string, at time.Time) (*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, model.ErrAlertNotFound
	}
	if a.Status == model.StatusResolved {
		return nil, model.ErrAlreadyResolved
	}
	resolvedAt := at
	a.Status = model.StatusResolved
	a.ResolvedAt = &resolvedAt
	a.ResolvedBy = by
	a.Resolution = resolution
	a.UpdatedAt = at
	return a.Clone(), nil
}

func (r *memoryAlerts) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return model.ErrAlertNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memoryAlerts) List(ctx context.Context, f AlertFilter) ([]*model.Alert, int, error) {
	r.mu.RLock()
	var out []*model.Alert
	search := strings.ToLower(f.Search)
	for _, a := range r.byID {
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if search != "" && !alertMatches(a, search) {
			continue
		}
		out = append(out, a.Clone())
	}
	r.mu.RUnlock()

	sortBy := f.Sort
	if sortBy.Field == "" {
		sortBy = Sort{Field: "createdAt", Desc: true}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compareAlerts(out[i], out[j], sortBy.Field)
		if c == 0 {
			return out[i].ID < out[j].ID
		}
		if sortBy.Desc {
			return c > 0
		}
		return c < 0
	})
	return paginate(out, f.Page, f.Limit), len(out), nil
}

func alertMatches(a *model.Alert, search string) bool {
	return strings.Contains(strings.ToLower(a.Title), search) ||
		strings.Contains(strings.ToLower(a.Description), search) ||
		strings.Contains(strings.ToLower(a.Domain), search)
}

func compareAlerts(a, b *model.Alert, field string) int {
	switch field {
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "severity":
		return strings.Compare(string(a.Severity), string(b.Severity))
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "title":
		return strings.Compare(a.Title, b.Title)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	start := Offset(page, limit)
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
