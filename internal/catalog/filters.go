// Package catalog holds master records (products, customers, suppliers)
// consumed by the ledger and by order placement.
package catalog

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sioms/sioms/internal/platform/httpx"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 200

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list filters.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
	Status  string

	// Entity specific filters
	Category   string
	SupplierID *int64
	LowStock   bool
}

// Normalize applies paging defaults and bounds.
func (f *ListFilters) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.SortDir != SortDesc {
		f.SortDir = SortAsc
	}
}

// Offset returns the row offset of the current page.
func (f ListFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}

// FiltersFromRequest reads the common list query parameters.
func FiltersFromRequest(r *http.Request) (ListFilters, error) {
	q := r.URL.Query()
	f := ListFilters{
		Search:   strings.TrimSpace(q.Get("search")),
		SortBy:   q.Get("sort"),
		SortDir:  q.Get("dir"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
	}
	var err error
	if f.Page, err = httpx.QueryInt(r, "page", DefaultPage); err != nil {
		return f, err
	}
	if f.Limit, err = httpx.QueryInt(r, "limit", DefaultLimit); err != nil {
		return f, err
	}
	if f.SupplierID, err = httpx.QueryInt64(r, "supplier_id"); err != nil {
		return f, err
	}
	lowStock, err := httpx.QueryBool(r, "low_stock")
	if err != nil {
		return f, err
	}
	f.LowStock = lowStock != nil && *lowStock
	f.Normalize()
	return f, nil
}

// SortOrder maps a requested sort key onto a whitelisted column.
func SortOrder(sortBy, sortDir string, allowed map[string]string, fallback string) string {
	dir := "ASC"
	if sortDir == SortDesc {
		dir = "DESC"
	}
	column, ok := allowed[sortBy]
	if !ok {
		column = fallback
	}
	return column + " " + dir
}

// Where accumulates SQL predicates with positional arguments.
type Where struct {
	clauses []string
	Args    []any
}

// Add appends a predicate. Each %d in cond is replaced by the new argument's position.
func (w *Where) Add(cond string, arg any) {
	w.Args = append(w.Args, arg)
	n := strings.Count(cond, "%d")
	pos := make([]any, n)
	for i := range pos {
		pos[i] = len(w.Args)
	}
	w.clauses = append(w.clauses, fmt.Sprintf(cond, pos...))
}

// AddRaw appends a predicate without arguments.
func (w *Where) AddRaw(cond string) {
	w.clauses = append(w.clauses, cond)
}

// SQL renders the WHERE clause, or an empty string.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Next returns the placeholder for the next argument and appends it.
func (w *Where) Next(arg any) string {
	w.Args = append(w.Args, arg)
	return fmt.Sprintf("$%d", len(w.Args))
}
