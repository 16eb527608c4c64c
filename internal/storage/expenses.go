package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/core"
)

type expenseRow struct {
	ID            int64         `db:"id"`
	UserID        int64         `db:"user_id"`
	CardID        sql.NullInt64 `db:"card_id"`
	CardName      string        `db:"card_name"`
	Description   string        `db:"description"`
	AmountCents   int64         `db:"amount_cents"`
	Category      string        `db:"category"`
	PaymentMethod string        `db:"payment_method"`
	ExpenseDate   string        `db:"expense_date"`
	CreatedAt     string        `db:"created_at"`
}

func (e expenseRow) toCore() core.Expense {
	out := core.Expense{
		ID:            e.ID,
		UserID:        e.UserID,
		CardName:      e.CardName,
		Description:   e.Description,
		Amount:        core.Money{Cents: e.AmountCents},
		Category:      core.NormalizeCategory(e.Category),
		PaymentMethod: core.PaymentMethod(e.PaymentMethod),
		CreatedAt:     parseTimestamp(e.CreatedAt),
	}
	if e.CardID.Valid {
		id := e.CardID.Int64
		out.CardID = &id
	}
	if d, err := core.ParseDate(e.ExpenseDate); err == nil {
		out.Date = d
	}
	return out
}

const expenseSelect = `
SELECT e.id, e.user_id, e.card_id, COALESCE(c.card_name, '') AS card_name, e.description,
       e.amount_cents, e.category, e.payment_method, e.expense_date, e.created_at
FROM expenses e
LEFT JOIN cards c ON c.id = e.card_id`

const queryCreateExpense = `
INSERT INTO expenses (user_id, card_id, description, amount_cents, category, payment_method,
                      expense_date, created_at, updated_at)
VALUES (:user_id, :card_id, :description, :amount, :category, :payment_method, :date, :now, :now)`

func cardIDArg(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.exec(ctx, queryCreateExpense, map[string]any{
		"user_id":        e.UserID,
		"card_id":        cardIDArg(e.CardID),
		"description":    strings.TrimSpace(e.Description),
		"amount":         e.Amount.Cents,
		"category":       string(e.Category),
		"payment_method": string(e.PaymentMethod),
		"date":           e.Date.String(),
		"now":            r.timestamp(),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: last insert id: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		"expense_id", id, "user_id", e.UserID, "amount_cents", e.Amount.Cents, "date", e.Date.String())

	return r.GetExpense(ctx, e.UserID, id)
}

// GetExpense returns ErrNotFound when the expense belongs to another user.
func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	var row expenseRow
	err := r.get(ctx, &row, expenseSelect+` WHERE e.id = :id AND e.user_id = :user_id`,
		map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return row.toCore(), nil
}

const queryUpdateExpense = `
UPDATE expenses
SET card_id = :card_id, description = :description, amount_cents = :amount, category = :category,
    payment_method = :payment_method, expense_date = :date, updated_at = :now
WHERE id = :id AND user_id = :user_id`

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.exec(ctx, queryUpdateExpense, map[string]any{
		"id":             e.ID,
		"user_id":        e.UserID,
		"card_id":        cardIDArg(e.CardID),
		"description":    strings.TrimSpace(e.Description),
		"amount":         e.Amount.Cents,
		"category":       string(e.Category),
		"payment_method": string(e.PaymentMethod),
		"date":           e.Date.String(),
		"now":            r.timestamp(),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if err := affectOne(res); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return r.GetExpense(ctx, e.UserID, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM expenses WHERE id = :id AND user_id = :user_id`,
		map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if err := affectOne(res); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

// ListExpenses returns the user's expenses matching f, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, f core.ExpenseFilter) ([]core.Expense, error) {
	conds := []string{"e.user_id = :user_id"}
	args := map[string]any{"user_id": userID}

	if !f.StartDate.IsZero() {
		conds = append(conds, "e.expense_date >= :start_date")
		args["start_date"] = f.StartDate.String()
	}
	if !f.EndDate.IsZero() {
		conds = append(conds, "e.expense_date <= :end_date")
		args["end_date"] = f.EndDate.String()
	}
	if f.Category != "" {
		conds = append(conds, "e.category = :category")
		args["category"] = string(f.Category)
	}
	if f.PaymentMethod != "" {
		conds = append(conds, "e.payment_method = :payment_method")
		args["payment_method"] = string(f.PaymentMethod)
	}
	if f.CardID > 0 {
		conds = append(conds, "e.card_id = :card_id")
		args["card_id"] = f.CardID
	}

	query := expenseSelect + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY e.expense_date DESC, e.id DESC"
	if f.Limit > 0 {
		query += " LIMIT :limit"
		args["limit"] = f.Limit
	}

	var rows []expenseRow
	if err := r.selectRows(ctx, &rows, query, args); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
}

type totalRow struct {
	Total int64 `db:"total"`
	Count int   `db:"count"`
}

// MonthTotal sums the expenses of the calendar month containing month.
func (r *SQLiteRepository) MonthTotal(ctx context.Context, userID int64, month time.Time) (core.Money, int, error) {
	first, last := core.MonthBounds(month)
	var row totalRow
	err := r.get(ctx, &row, `
SELECT COALESCE(SUM(amount_cents), 0) AS total, COUNT(*) AS count
FROM expenses
WHERE user_id = :user_id AND expense_date BETWEEN :first AND :last`, map[string]any{
		"user_id": userID,
		"first":   first.String(),
		"last":    last.String(),
	})
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("month total: %w", err)
	}
	return core.Money{Cents: row.Total}, row.Count, nil
}

type categoryRow struct {
	Category string `db:"category"`
	Total    int64  `db:"total"`
	Count    int    `db:"count"`
}

// CategoryTotals aggregates [from, to] by category, largest total first.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID int64, from, to core.Date) ([]core.CategoryTotal, error) {
	var rows []categoryRow
	err := r.selectRows(ctx, &rows, `
SELECT category, SUM(amount_cents) AS total, COUNT(*) AS count
FROM expenses
WHERE user_id = :user_id AND expense_date BETWEEN :from AND :to
GROUP BY category
ORDER BY total DESC, category`, map[string]any{
		"user_id": userID,
		"from":    from.String(),
		"to":      to.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	out := make([]core.CategoryTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategoryTotal{
			Category: core.NormalizeCategory(row.Category),
			Total:    core.Money{Cents: row.Total},
			Count:    row.Count,
		})
	}
	return out, nil
}

type monthRow struct {
	Month string `db:"month"`
	Total int64  `db:"total"`
}

// MonthlyTotals returns one entry per month with expenses since from, oldest first.
// Months without expenses are absent.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, userID int64, from core.Date) ([]core.MonthlyTotal, error) {
	var rows []monthRow
	err := r.selectRows(ctx, &rows, `
SELECT substr(expense_date, 1, 7) AS month, SUM(amount_cents) AS total
FROM expenses
WHERE user_id = :user_id AND expense_date >= :from
GROUP BY month
ORDER BY month`, map[string]any{
		"user_id": userID,
		"from":    from.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	out := make([]core.MonthlyTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.MonthlyTotal{Month: row.Month, Total: core.Money{Cents: row.Total}})
	}
	return out, nil
}
