package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func TestAnalyticsService_Summary(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 300000)

	if _, err := env.cards.Create(ctx, validCard(u.ID), "123"); err != nil {
		t.Fatalf("Create card error = %v", err)
	}
	env.addExpense(t, cashExpense(u.ID, "2026-09-28", 7000, core.CategoryFood))
	env.addExpense(t, cashExpense(u.ID, "2026-10-01", 1500, core.CategoryFood))
	env.addExpense(t, cashExpense(u.ID, "2026-10-02", 4000, core.CategoryBills))
	env.addExpense(t, cashExpense(u.ID, "2026-10-03", 500, core.CategoryFood))

	sum, err := env.analytics.Summary(ctx, u.ID)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if sum.MonthlySalary.Cents != 300000 {
		t.Errorf("MonthlySalary = %d", sum.MonthlySalary.Cents)
	}
	if sum.TotalExpenses.Cents != 6000 {
		t.Errorf("TotalExpenses = %d, want 6000", sum.TotalExpenses.Cents)
	}
	if sum.RemainingBalance.Cents != 294000 {
		t.Errorf("RemainingBalance = %d, want 294000", sum.RemainingBalance.Cents)
	}
	if sum.TotalBalance.Cents != 50000 {
		t.Errorf("TotalBalance = %d, want 50000", sum.TotalBalance.Cents)
	}
	if sum.TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", sum.TransactionCount)
	}
	if sum.CurrentMonth != "2026-10" {
		t.Errorf("CurrentMonth = %q", sum.CurrentMonth)
	}
	if len(sum.CategoryBreakdown) != 2 || sum.CategoryBreakdown[0].Category != core.CategoryBills {
		t.Errorf("CategoryBreakdown = %+v, want Bills first", sum.CategoryBreakdown)
	}
	if len(sum.Recent) != 4 || sum.Recent[0].Date.String() != "2026-10-03" {
		t.Errorf("Recent = %+v", sum.Recent)
	}
}

func TestAnalyticsService_SummaryCacheInvalidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 0)

	env.addExpense(t, cashExpense(u.ID, "2026-10-01", 1000, core.CategoryFood))
	sum, err := env.analytics.Summary(ctx, u.ID)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.TotalExpenses.Cents != 1000 {
		t.Fatalf("TotalExpenses = %d", sum.TotalExpenses.Cents)
	}
	if _, ok := env.caches.Summaries.Get(userKey(u.ID)); !ok {
		t.Fatalf("summary not cached")
	}

	env.addExpense(t, cashExpense(u.ID, "2026-10-02", 500, core.CategoryFood))
	if _, ok := env.caches.Summaries.Get(userKey(u.ID)); ok {
		t.Fatalf("summary still cached after expense create")
	}
	sum, err = env.analytics.Summary(ctx, u.ID)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.TotalExpenses.Cents != 1500 {
		t.Errorf("TotalExpenses after create = %d, want 1500", sum.TotalExpenses.Cents)
	}
}

func TestAnalyticsService_SummaryUnreadBypassesCache(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 0)

	if _, err := env.analytics.Summary(ctx, u.ID); err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if _, ok := env.caches.Summaries.Get(userKey(u.ID)); !ok {
		t.Fatalf("summary not cached")
	}

	// stored straight through the repository, as the worker does
	n := core.Notification{UserID: u.ID, Type: core.NotificationWarning, Message: "80% of salary spent"}
	if _, err := env.repo.CreateNotification(ctx, n); err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}
	if _, ok := env.caches.Summaries.Get(userKey(u.ID)); !ok {
		t.Fatalf("summary cache dropped without a service call")
	}

	sum, err := env.analytics.Summary(ctx, u.ID)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.UnreadCount != 1 {
		t.Errorf("UnreadCount = %d, want 1", sum.UnreadCount)
	}
}

func TestAnalyticsService_Monthly(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 0)

	env.addExpense(t, cashExpense(u.ID, "2026-03-31", 9999, core.CategoryFood)) // outside the window
	env.addExpense(t, cashExpense(u.ID, "2026-05-10", 1000, core.CategoryFood))
	env.addExpense(t, cashExpense(u.ID, "2026-05-20", 500, core.CategoryBills))
	env.addExpense(t, cashExpense(u.ID, "2026-08-01", 250, core.CategoryFood))
	env.addExpense(t, cashExpense(u.ID, "2026-10-18", 100, core.CategoryFood))

	got, err := env.analytics.Monthly(ctx, u.ID)
	if err != nil {
		t.Fatalf("Monthly() error = %v", err)
	}

	want := []core.MonthlyTotal{
		{Month: "2026-05", Total: core.Money{Cents: 1500}},
		{Month: "2026-06"},
		{Month: "2026-07"},
		{Month: "2026-08", Total: core.Money{Cents: 250}},
		{Month: "2026-09"},
		{Month: "2026-10", Total: core.Money{Cents: 100}},
	}
	if len(got) != len(want) {
		t.Fatalf("Monthly() = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Monthly()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAnalyticsService_Category(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 0)

	env.addExpense(t, cashExpense(u.ID, "2026-09-10", 3000, core.CategoryHealthcare))
	env.addExpense(t, cashExpense(u.ID, "2026-10-10", 1000, core.CategoryFood))

	tests := []struct {
		name      string
		month     string
		wantMonth string
		wantCat   core.Category
		wantErr   bool
	}{
		{"default current month", "", "2026-10", core.CategoryFood, false},
		{"explicit month", "2026-09", "2026-09", core.CategoryHealthcare, false},
		{"malformed", "09/2026", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, month, err := env.analytics.Category(ctx, u.ID, tt.month)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidDate) {
					t.Errorf("Category() error = %v, want ErrInvalidDate", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Category() error = %v", err)
			}
			if month != tt.wantMonth {
				t.Errorf("month = %q, want %q", month, tt.wantMonth)
			}
			if len(totals) != 1 || totals[0].Category != tt.wantCat {
				t.Errorf("totals = %+v", totals)
			}
		})
	}
}

func TestNotificationService(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 0)
	other := env.user(t, "bob", 0)

	a, err := env.notifications.Notify(ctx, u.ID, core.NotificationInfo, "first")
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	b, err := env.notifications.Notify(ctx, u.ID, core.NotificationSuccess, "second")
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if _, err := env.notifications.Notify(ctx, u.ID, "loud", "bad type"); !errors.Is(err, core.ErrInvalidNotification) {
		t.Errorf("Notify(bad type) error = %v, want ErrInvalidNotification", err)
	}

	if err := env.notifications.MarkRead(ctx, other.ID, a.ID); err == nil {
		t.Errorf("MarkRead(foreign) must fail")
	}
	if err := env.notifications.MarkRead(ctx, u.ID, a.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	n, err := env.notifications.UnreadCount(ctx, u.ID)
	if err != nil || n != 1 {
		t.Errorf("UnreadCount() = %d, %v, want 1", n, err)
	}

	// read notifications older than the retention are purged, unread ones stay
	env.notifications.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	purged, err := env.notifications.Purge(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("Purge() = %d, want 1", purged)
	}

	items, unread, err := env.notifications.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != b.ID || unread != 1 {
		t.Errorf("List() = %+v (unread %d)", items, unread)
	}

	marked, err := env.notifications.MarkAllRead(ctx, u.ID)
	if err != nil || marked != 1 {
		t.Errorf("MarkAllRead() = %d, %v, want 1", marked, err)
	}
	if err := env.notifications.Delete(ctx, u.ID, b.ID); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestWriteExpensesCSV(t *testing.T) {
	expenses := []core.Expense{
		cashExpense(1, "2026-10-01", 1250, core.CategoryFood),
		{
			Description:   `lunch, "team"`,
			Amount:        core.Money{Cents: 999},
			Category:      core.CategoryEntertainment,
			PaymentMethod: core.PaymentCard,
			Date:          core.NewDate(2026, 10, 2),
		},
	}

	var buf bytes.Buffer
	if err := WriteExpensesCSV(&buf, expenses); err != nil {
		t.Fatalf("WriteExpensesCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"Date,Category,Description,Amount,Payment Method",
		"2026-10-01,Food,Food on 2026-10-01,12.50,cash",
		`2026-10-02,Entertainment,"lunch, ""team""",9.99,card`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestExportFilename(t *testing.T) {
	got := ExportFilename(time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC))
	if got != "expenses_2026-10-18.csv" {
		t.Errorf("ExportFilename() = %q", got)
	}
}
