package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

const (
	// MonthlyWindow is the number of months in the monthly trend.
	MonthlyWindow = 6
	// RecentLimit is the number of transactions shown on the dashboard.
	RecentLimit = 5
)

type AnalyticsService struct {
	repo   *storage.SQLiteRepository
	caches *Caches
	logger *applog.Logger
	now    func() time.Time
}

func NewAnalyticsService(repo *storage.SQLiteRepository, caches *Caches, logger *applog.Logger) *AnalyticsService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &AnalyticsService{
		repo:   repo,
		caches: caches,
		logger: logger.WithComponent(applog.ComponentAnalytics),
		now:    time.Now,
	}
}

// Summary aggregates the current month. The independent queries run
// concurrently; the result is cached per user until the next mutation.
// UnreadCount is read on every call: alerts stored by the worker process
// cannot invalidate this cache.
func (s *AnalyticsService) Summary(ctx context.Context, userID int64) (core.DashboardSummary, error) {
	sum, err := s.monthSummary(ctx, userID)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	sum.UnreadCount, err = s.repo.UnreadNotificationCount(ctx, userID)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	return sum, nil
}

func (s *AnalyticsService) monthSummary(ctx context.Context, userID int64) (core.DashboardSummary, error) {
	if s.caches != nil {
		if sum, ok := s.caches.Summaries.Get(userKey(userID)); ok {
			return sum, nil
		}
	}

	now := s.now()
	first, last := core.MonthBounds(now)

	var (
		sum    core.DashboardSummary
		user   core.User
		spent  core.Money
		count  int
		cards  core.Money
		cats   []core.CategoryTotal
		recent []core.Expense
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.repo.GetUserByID(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		spent, count, err = s.repo.MonthTotal(gctx, userID, now)
		return err
	})
	g.Go(func() (err error) {
		cards, err = s.repo.SumCardBalances(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.repo.CategoryTotals(gctx, userID, first, last)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.repo.ListExpenses(gctx, userID, core.ExpenseFilter{Limit: RecentLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, err
	}

	sum = core.DashboardSummary{
		MonthlySalary:     user.MonthlySalary,
		TotalExpenses:     spent,
		RemainingBalance:  user.MonthlySalary.Sub(spent),
		TotalBalance:      cards,
		TransactionCount:  count,
		CategoryBreakdown: cats,
		Recent:            recent,
		CurrentMonth:      now.Format(core.MonthLayout),
	}

	if s.caches != nil {
		s.caches.Summaries.Set(userKey(userID), sum)
	}
	s.logger.DebugContext(ctx, "Summary computed",
		applog.FieldUserID, userID,
		applog.FieldMonth, sum.CurrentMonth)
	return sum, nil
}

// Monthly returns the last MonthlyWindow months, oldest first, with zero
// totals for months without expenses.
func (s *AnalyticsService) Monthly(ctx context.Context, userID int64) ([]core.MonthlyTotal, error) {
	months := core.LastMonths(s.now(), MonthlyWindow)
	from, err := core.ParseMonth(months[0])
	if err != nil {
		return nil, err
	}
	sparse, err := s.repo.MonthlyTotals(ctx, userID, from)
	if err != nil {
		return nil, err
	}
	return core.FillMonths(months, sparse), nil
}

// Category breaks down one month (YYYY-MM, empty for the current one) by
// category, largest total first.
func (s *AnalyticsService) Category(ctx context.Context, userID int64, month string) ([]core.CategoryTotal, string, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		month = s.now().Format(core.MonthLayout)
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return nil, "", err
	}
	first, last := core.MonthBounds(m.Time)
	totals, err := s.repo.CategoryTotals(ctx, userID, first, last)
	if err != nil {
		return nil, "", err
	}
	return totals, m.Format(core.MonthLayout), nil
}
