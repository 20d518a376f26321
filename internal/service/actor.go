// Package service implements the domain and alert use cases on top of the
// store, including the sinks the OSINT pipeline writes through.
package service

// RoleAdmin may modify any alert and trigger manual ingestion.
const RoleAdmin = "admin"

// Actor is the authenticated caller as reported by the upstream auth layer.
type Actor struct {
	ID   string
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Pagination describes one page of a list result.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// Bucket is one row of a breakdown.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

const (
	defaultPage  = 1
	defaultLimit = 10
)

func pageParams(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

func newPagination(page, limit, total int) Pagination {
	return Pagination{
		CurrentPage:  page,
		TotalPages:   (total + limit - 1) / limit,
		TotalItems:   total,
		ItemsPerPage: limit,
	}
}

func breakdown(counts map[string]int, order []string) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for _, k := range order {
		if n, ok := counts[k]; ok {
			out = append(out, Bucket{Key: k, Count: n})
		}
	}
	return out
}
