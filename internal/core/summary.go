package core

import (
	"fmt"
	"time"
)

// DefaultAlertThreshold is the share of the monthly salary that triggers a warning.
const DefaultAlertThreshold = 0.8

// CategoryTotal is an amount aggregated by category.
type CategoryTotal struct {
	Category Category
	Total    Money
	Count    int
}

// MonthlyTotal is the spending of one calendar month (Month is YYYY-MM).
type MonthlyTotal struct {
	Month string
	Total Money
}

// DashboardSummary aggregates the current month for one user.
type DashboardSummary struct {
	MonthlySalary     Money
	TotalExpenses     Money
	RemainingBalance  Money
	TotalBalance      Money // sum of card balances
	TransactionCount  int
	CategoryBreakdown []CategoryTotal
	Recent            []Expense
	CurrentMonth      string
	UnreadCount       int
}

// SpentPercent returns the share of salary spent, 0 when no salary is set.
func (s DashboardSummary) SpentPercent() float64 {
	if s.MonthlySalary.Cents <= 0 {
		return 0
	}
	return float64(s.TotalExpenses.Cents) / float64(s.MonthlySalary.Cents) * 100
}

type SpendingLevel int

const (
	SpendingOK SpendingLevel = iota
	SpendingWarning
	SpendingExceeded
)

// SpendingStatus is the result of comparing a month total to the salary.
type SpendingStatus struct {
	Salary  Money
	Spent   Money
	Percent float64
	Level   SpendingLevel
}

// EvaluateSpending classifies spent against salary. A non-positive salary
// disables alerts.
func EvaluateSpending(salary, spent Money, threshold float64) SpendingStatus {
	st := SpendingStatus{Salary: salary, Spent: spent}
	if salary.Cents <= 0 {
		return st
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultAlertThreshold
	}
	st.Percent = float64(spent.Cents) / float64(salary.Cents) * 100
	switch {
	case spent.Cents >= salary.Cents:
		st.Level = SpendingExceeded
	case float64(spent.Cents) >= float64(salary.Cents)*threshold:
		st.Level = SpendingWarning
	}
	return st
}

// Message renders the user-facing alert text for the status.
func (s SpendingStatus) Message() string {
	switch s.Level {
	case SpendingExceeded:
		return fmt.Sprintf("Budget exceeded! You've spent %.1f%% of your monthly salary (%s/%s)",
			s.Percent, s.Spent, s.Salary)
	case SpendingWarning:
		return fmt.Sprintf("Alert! You've spent %.1f%% of your monthly salary (%s/%s)",
			s.Percent, s.Spent, s.Salary)
	}
	return ""
}

// NotificationType maps the level to the notification severity.
func (s SpendingStatus) NotificationType() NotificationType {
	if s.Level == SpendingExceeded {
		return NotificationDanger
	}
	return NotificationWarning
}

// LastMonths returns the YYYY-MM keys of the n months ending with now's month,
// oldest first.
func LastMonths(now time.Time, n int) []string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = first.AddDate(0, -i, 0).Format(MonthLayout)
	}
	return out
}

// FillMonths returns one entry per key in months, taking totals from the
// sparse input and zero elsewhere.
func FillMonths(months []string, sparse []MonthlyTotal) []MonthlyTotal {
	byMonth := make(map[string]Money, len(sparse))
	for _, m := range sparse {
		byMonth[m.Month] = m.Total
	}
	out := make([]MonthlyTotal, len(months))
	for i, m := range months {
		out[i] = MonthlyTotal{Month: m, Total: byMonth[m]}
	}
	return out
}
