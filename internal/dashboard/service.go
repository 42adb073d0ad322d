package dashboard

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the landing page snapshot.
type Summary struct {
	TotalProducts       int             `json:"total_products"`
	LowStockProducts    int             `json:"low_stock_products"`
	PendingOrders       int             `json:"pending_orders"`
	TodayOrders         int             `json:"today_orders"`
	TodayRevenue        decimal.Decimal `json:"today_revenue"`
	UnreadNotifications int             `json:"unread_notifications"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

// Repository computes the summary counters. Today's figures cover
// [dayStart, dayEnd) and skip cancelled orders.
type Repository interface {
	Summary(ctx context.Context, userID int64, dayStart, dayEnd time.Time) (Summary, error)
}

type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// Summary returns the cached summary for userID, rebuilding it after a bump.
func (s *Service) Summary(ctx context.Context, userID int64) (Summary, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	key, err := s.cache.BuildKey(ctx, "dashboard", "summary", strconv.FormatInt(userID, 10), dayStart.Format(time.DateOnly))
	if err != nil {
		// Redis trouble degrades to an uncached read.
		s.logger.Warn("dashboard: cache key", slog.Any("error", err))
		return s.load(ctx, userID, dayStart, dayEnd, now)
	}
	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.load(ctx, userID, dayStart, dayEnd, now)
	})
	return out, err
}

func (s *Service) load(ctx context.Context, userID int64, dayStart, dayEnd, now time.Time) (Summary, error) {
	summary, err := s.repo.Summary(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return Summary{}, err
	}
	summary.GeneratedAt = now.UTC()
	return summary, nil
}
