package http

import (
	"time"

	"expensetracker/internal/core"
)

// JSON shapes of the API. Amounts are decimal numbers, dates YYYY-MM-DD.

type userJSON struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	MonthlySalary float64   `json:"monthly_salary"`
	CreatedAt     time.Time `json:"created_at"`
}

type cardJSON struct {
	ID         int64     `json:"id"`
	CardName   string    `json:"card_name"`
	CardHolder string    `json:"card_holder"`
	CardNumber string    `json:"card_number"`
	Last4      string    `json:"last4"`
	ExpiryDate string    `json:"expiry_date"`
	CardType   string    `json:"card_type"`
	BankName   string    `json:"bank_name"`
	Balance    float64   `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
}

type expenseJSON struct {
	ID            int64     `json:"id"`
	Description   string    `json:"description"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	PaymentMethod string    `json:"payment_method"`
	CardID        *int64    `json:"card_id"`
	CardName      string    `json:"card_name,omitempty"`
	ExpenseDate   string    `json:"expense_date"`
	CreatedAt     time.Time `json:"created_at"`
}

type notificationJSON struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type categoryJSON struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

type monthlyJSON struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

type summaryJSON struct {
	MonthlySalary      float64        `json:"monthly_salary"`
	TotalExpenses      float64        `json:"total_expenses"`
	RemainingBalance   float64        `json:"remaining_balance"`
	TotalBalance       float64        `json:"total_balance"`
	TransactionCount   int            `json:"transaction_count"`
	SpentPercent       float64        `json:"spent_percent"`
	CurrentMonth       string         `json:"current_month"`
	UnreadCount        int            `json:"unread_count"`
	CategoryBreakdown  []categoryJSON `json:"category_breakdown"`
	RecentTransactions []expenseJSON  `json:"recent_transactions"`
}

type notificationListJSON struct {
	Notifications []notificationJSON `json:"notifications"`
	UnreadCount   int                `json:"unread_count"`
}

func toUserJSON(u core.User) userJSON {
	return userJSON{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		MonthlySalary: u.MonthlySalary.Float(),
		CreatedAt:     u.CreatedAt,
	}
}

func toCardJSON(c core.Card) cardJSON {
	return cardJSON{
		ID:         c.ID,
		CardName:   c.Name,
		CardHolder: c.Holder,
		CardNumber: c.Number,
		Last4:      c.Last4,
		ExpiryDate: c.Expiry,
		CardType:   c.Type,
		BankName:   c.BankName,
		Balance:    c.Balance.Float(),
		CreatedAt:  c.CreatedAt,
	}
}

func toCardsJSON(cards []core.Card) []cardJSON {
	out := make([]cardJSON, len(cards))
	for i, c := range cards {
		out[i] = toCardJSON(c)
	}
	return out
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:            e.ID,
		Description:   e.Description,
		Amount:        e.Amount.Float(),
		Category:      string(e.Category),
		PaymentMethod: string(e.PaymentMethod),
		CardID:        e.CardID,
		CardName:      e.CardName,
		ExpenseDate:   e.Date.String(),
		CreatedAt:     e.CreatedAt,
	}
}

func toExpensesJSON(expenses []core.Expense) []expenseJSON {
	out := make([]expenseJSON, len(expenses))
	for i, e := range expenses {
		out[i] = toExpenseJSON(e)
	}
	return out
}

func toNotificationsJSON(items []core.Notification) []notificationJSON {
	out := make([]notificationJSON, len(items))
	for i, n := range items {
		out[i] = notificationJSON{
			ID:        n.ID,
			Message:   n.Message,
			Type:      string(n.Type),
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
	}
	return out
}

func toCategoriesJSON(totals []core.CategoryTotal) []categoryJSON {
	out := make([]categoryJSON, len(totals))
	for i, t := range totals {
		out[i] = categoryJSON{Category: string(t.Category), Total: t.Total.Float(), Count: t.Count}
	}
	return out
}

func toMonthlyJSON(totals []core.MonthlyTotal) []monthlyJSON {
	out := make([]monthlyJSON, len(totals))
	for i, t := range totals {
		out[i] = monthlyJSON{Month: t.Month, Total: t.Total.Float()}
	}
	return out
}

func toSummaryJSON(s core.DashboardSummary) summaryJSON {
	return summaryJSON{
		MonthlySalary:      s.MonthlySalary.Float(),
		TotalExpenses:      s.TotalExpenses.Float(),
		RemainingBalance:   s.RemainingBalance.Float(),
		TotalBalance:       s.TotalBalance.Float(),
		TransactionCount:   s.TransactionCount,
		SpentPercent:       s.SpentPercent(),
		CurrentMonth:       s.CurrentMonth,
		UnreadCount:        s.UnreadCount,
		CategoryBreakdown:  toCategoriesJSON(s.CategoryBreakdown),
		RecentTransactions: toExpensesJSON(s.Recent),
	}
}
