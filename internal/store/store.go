// Package store defines the persistence interfaces for suspicious domains and
// alerts, with an in-memory implementation used for development and tests.
package store

import (
	"context"
	"time"

	"github.com/lvonguyen/cyberguard/internal/model"
)

// DomainRepository persists SuspiciousDomain records, unique by Domain.
// Lookups of a missing record return model.ErrDomainNotFound.
type DomainRepository interface {
	FindByName(ctx context.Context, name string) (*model.SuspiciousDomain, error)
	FindByID(ctx context.Context, id string) (*model.SuspiciousDomain, error)
	// Upsert inserts d, or replaces the record with the same Domain.
	Upsert(ctx context.Context, d *model.SuspiciousDomain) (*model.SuspiciousDomain, error)
	List(ctx context.Context, f DomainFilter) ([]*model.SuspiciousDomain, int, error)
}

// AlertRepository persists Alert records. Lookups of a missing record return
// model.ErrAlertNotFound.
type AlertRepository interface {
	Create(ctx context.Context, a *model.Alert) error
	FindByID(ctx context.Context, id string) (*model.Alert, error)
	// FindDuplicate returns the newest alert for domain with the given title
	// created at or after since.
	FindDuplicate(ctx context.Context, domain, title string, since time.Time) (*model.Alert, error)
	Update(ctx context.Context, a *model.Alert) error
	// Resolve sets status, resolvedAt, resolvedBy and resolution in one
	// write. It fails with model.ErrAlreadyResolved when the alert is
	// already resolved and leaves it untouched.
	Resolve(ctx context.Context, id, by, resolution string, at time.Time) (*model.Alert, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f AlertFilter) ([]*model.Alert, int, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Domains() DomainRepository
	Alerts() AlertRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Sort orders list results by a record field.
type Sort struct {
	Field string
	Desc  bool
}

// DomainFilter selects domains for List. A zero Limit returns every match.
type DomainFilter struct {
	RiskLevel       model.RiskLevel
	Category        model.DomainCategory
	Search          string
	IncludeInactive bool
	Sort            Sort
	Page            int
	Limit           int
}

// AlertFilter selects alerts for List. A zero Limit returns every match.
type AlertFilter struct {
	Severity model.Severity
	Status   model.AlertStatus
	Category model.AlertCategory
	Search   string
	Sort     Sort
	Page     int
	Limit    int
}

// Offset returns the number of records to skip for a 1-based page.
func Offset(page, limit int) int {
	if page < 1 || limit <= 0 {
		return 0
	}
	return (page - 1) * limit
}
