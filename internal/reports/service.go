package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sioms/sioms/internal/shared"
)

const (
	maxTopN            = 50
	defaultReportLimit = 50
	maxReportLimit     = 200
)

// Service computes read-only aggregates and keeps a history of generated snapshots.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func clampTop(n int) int {
	switch {
	case n <= 0:
		return defaultTopN
	case n > maxTopN:
		return maxTopN
	}
	return n
}

func validateWindow(window Range) error {
	if window.Start != nil && window.End != nil && window.End.Before(*window.Start) {
		return shared.NewValidationError("end_date", "must not be before start_date")
	}
	return nil
}

// Sales aggregates orders placed within [Start, End].
func (s *Service) Sales(ctx context.Context, filter SalesFilter) (SalesReport, error) {
	fields := map[string]string{}
	if filter.Start.IsZero() {
		fields["start"] = "is required"
	}
	if filter.End.IsZero() {
		fields["end"] = "is required"
	}
	if len(fields) > 0 {
		return SalesReport{}, &shared.ValidationError{Fields: fields}
	}
	window := Range{Start: &filter.Start, End: &filter.End}
	if err := validateWindow(window); err != nil {
		return SalesReport{}, err
	}
	filter.TopN = clampTop(filter.TopN)
	rows, err := s.repo.OrderRows(ctx, window, filter.CustomerID)
	if err != nil {
		return SalesReport{}, fmt.Errorf("reports: sales orders: %w", err)
	}
	lines, err := s.repo.LineRows(ctx, window, filter.CustomerID)
	if err != nil {
		return SalesReport{}, fmt.Errorf("reports: sales lines: %w", err)
	}
	return BuildSales(filter, rows, lines), nil
}

// Inventory values the current stock.
func (s *Service) Inventory(ctx context.Context, filter InventoryFilter) (InventoryReport, error) {
	rows, err := s.repo.Products(ctx, filter)
	if err != nil {
		return InventoryReport{}, fmt.Errorf("reports: inventory: %w", err)
	}
	return BuildInventory(rows), nil
}

// TopCustomers ranks customers by revenue within window.
func (s *Service) TopCustomers(ctx context.Context, window Range, n int) ([]CustomerRank, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	rows, err := s.repo.OrderRows(ctx, window, nil)
	if err != nil {
		return nil, fmt.Errorf("reports: top customers: %w", err)
	}
	return rankCustomers(rows, clampTop(n)), nil
}

// Customer reports one customer's orders within window.
func (s *Service) Customer(ctx context.Context, customerID int64, window Range) (CustomerReport, error) {
	if err := validateWindow(window); err != nil {
		return CustomerReport{}, err
	}
	info, err := s.repo.Customer(ctx, customerID)
	if err != nil {
		return CustomerReport{}, err
	}
	rows, err := s.repo.OrderRows(ctx, window, &customerID)
	if err != nil {
		return CustomerReport{}, fmt.Errorf("reports: customer orders: %w", err)
	}
	lines, err := s.repo.LineRows(ctx, window, &customerID)
	if err != nil {
		return CustomerReport{}, fmt.Errorf("reports: customer lines: %w", err)
	}
	return BuildCustomer(info, rows, lines, defaultTopN), nil
}

// Generate computes a report and stores it as a snapshot.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (Report, error) {
	if err := shared.Validate(req); err != nil {
		return Report{}, err
	}
	p := req.Parameters
	window, err := p.window()
	if err != nil {
		return Report{}, err
	}

	var (
		result      any
		defaultName string
	)
	switch req.Type {
	case TypeSales:
		if window.Start == nil || window.End == nil {
			return Report{}, shared.NewValidationError("parameters", "start_date and end_date are required for sales reports")
		}
		result, err = s.Sales(ctx, SalesFilter{
			Start:      *window.Start,
			End:        *window.End,
			CustomerID: p.CustomerID,
			ProductID:  p.ProductID,
			Category:   p.Category,
			SupplierID: p.SupplierID,
			TopN:       p.TopN,
		})
		defaultName = fmt.Sprintf("Sales Report (%s to %s)", p.StartDate, p.EndDate)
	case TypeInventory:
		result, err = s.Inventory(ctx, InventoryFilter{Category: p.Category, SupplierID: p.SupplierID, LowStockOnly: p.LowStockOnly})
		defaultName = "Inventory Report " + s.now().Format(time.DateOnly)
	case TypeCustomer:
		if p.CustomerID == nil {
			return Report{}, shared.NewValidationError("parameters.customer_id", "is required for customer reports")
		}
		var rep CustomerReport
		rep, err = s.Customer(ctx, *p.CustomerID, window)
		result = rep
		defaultName = "Customer Report - " + rep.Customer.Name
	}
	if err != nil {
		return Report{}, err
	}

	params, err := json.Marshal(p)
	if err != nil {
		return Report{}, fmt.Errorf("reports: encode parameters: %w", err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return Report{}, fmt.Errorf("reports: encode result: %w", err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultName
	}
	stored, err := s.repo.Insert(ctx, Report{
		UserID:     shared.ActorID(ctx),
		Name:       name,
		Type:       req.Type,
		Parameters: params,
		Result:     data,
	})
	if err != nil {
		return Report{}, err
	}
	s.logger.Info("report generated", slog.Int64("report_id", stored.ID), slog.String("type", string(stored.Type)))
	return stored, nil
}

// List returns the snapshot history without result payloads.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Report, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, shared.NewValidationError("report_type", "unknown report type")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultReportLimit
	case filter.Limit > maxReportLimit:
		filter.Limit = maxReportLimit
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Report, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
