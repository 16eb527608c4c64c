package services

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// SpendingMonitor compares a month's spending with the user's salary and
// writes an alert notification when the threshold is crossed.
type SpendingMonitor struct {
	repo      *storage.SQLiteRepository
	threshold float64
	caches    *Caches
	events    *applog.StructuredLogger
}

func NewSpendingMonitor(repo *storage.SQLiteRepository, threshold float64, caches *Caches, logger *applog.Logger) *SpendingMonitor {
	if logger == nil {
		logger = applog.Discard()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = core.DefaultAlertThreshold
	}
	logger = logger.WithComponent(applog.ComponentNotification)
	return &SpendingMonitor{
		repo:      repo,
		threshold: threshold,
		caches:    caches,
		events:    applog.NewStructuredLogger(logger),
	}
}

// Evaluate checks the month containing month. Every evaluation at or over
// the threshold stores one notification: warning below 100%, danger from
// 100% on. A zero salary disables alerts.
func (m *SpendingMonitor) Evaluate(ctx context.Context, userID int64, month time.Time) (core.SpendingStatus, error) {
	u, err := m.repo.GetUserByID(ctx, userID)
	if err != nil {
		return core.SpendingStatus{}, fmt.Errorf("evaluate spending: %w", err)
	}
	spent, _, err := m.repo.MonthTotal(ctx, userID, month)
	if err != nil {
		return core.SpendingStatus{}, fmt.Errorf("evaluate spending: %w", err)
	}

	status := core.EvaluateSpending(u.MonthlySalary, spent, m.threshold)
	if status.Level == core.SpendingOK {
		return status, nil
	}

	n, err := m.repo.CreateNotification(ctx, core.Notification{
		UserID:  userID,
		Message: status.Message(),
		Type:    status.NotificationType(),
	})
	if err != nil {
		return status, fmt.Errorf("store spending alert: %w", err)
	}
	m.caches.invalidateSummary(userID)

	m.events.LogSpendingAlert(ctx, userID, n.ID, month.Format(core.MonthLayout), status.Percent, string(n.Type))
	return status, nil
}
