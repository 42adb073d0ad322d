package reports

import (
	"strings"
	"time"

	"github.com/sioms/sioms/internal/shared"
)

// GenerateRequest asks for a report to be computed and stored.
type GenerateRequest struct {
	Name       string     `json:"name" validate:"max=200"`
	Type       Type       `json:"report_type" validate:"required,oneof=sales inventory customer"`
	Parameters Parameters `json:"parameters"`
}

// Parameters is stored verbatim with the snapshot.
type Parameters struct {
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	CustomerID   *int64 `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	ProductID    *int64 `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	SupplierID   *int64 `json:"supplier_id,omitempty" validate:"omitempty,gt=0"`
	Category     string `json:"category,omitempty" validate:"max=100"`
	LowStockOnly bool   `json:"low_stock_only,omitempty"`
	TopN         int    `json:"top_n,omitempty" validate:"gte=0"`
}

func parseDate(field, raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, shared.NewValidationError(field, "must be a date (YYYY-MM-DD)")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (p Parameters) window() (Range, error) {
	start, err := parseDate("start_date", p.StartDate, false)
	if err != nil {
		return Range{}, err
	}
	end, err := parseDate("end_date", p.EndDate, true)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}
