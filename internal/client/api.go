package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
)

type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	MonthlySalary float64   `json:"monthly_salary"`
	CreatedAt     time.Time `json:"created_at"`
}

type Expense struct {
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

// NewExpense is the payload of CreateExpense. An empty date means today and
// an empty payment method means cash.
type NewExpense struct {
	Amount        float64
	Category      string
	Description   string
	ExpenseDate   string
	PaymentMethod string
	CardID        int64
}

type Card struct {
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

type NewCard struct {
	CardName   string
	CardHolder string
	CardNumber string
	ExpiryDate string
	CVV        string
	CardType   string
	BankName   string
	Balance    float64
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

type Summary struct {
	MonthlySalary      float64         `json:"monthly_salary"`
	TotalExpenses      float64         `json:"total_expenses"`
	RemainingBalance   float64         `json:"remaining_balance"`
	TotalBalance       float64         `json:"total_balance"`
	TransactionCount   int             `json:"transaction_count"`
	SpentPercent       float64         `json:"spent_percent"`
	CurrentMonth       string          `json:"current_month"`
	UnreadCount        int             `json:"unread_count"`
	CategoryBreakdown  []CategoryTotal `json:"category_breakdown"`
	RecentTransactions []Expense       `json:"recent_transactions"`
}

type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpenseFilter narrows ListExpenses and ExportCSV. Zero fields are not
// sent.
type ExpenseFilter struct {
	StartDate     string
	EndDate       string
	Category      string
	PaymentMethod string
	CardID        int64
}

func (f ExpenseFilter) query() string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("start_date", f.StartDate)
	set("end_date", f.EndDate)
	set("category", f.Category)
	set("payment_method", f.PaymentMethod)
	if f.CardID > 0 {
		q.Set("card_id", strconv.FormatInt(f.CardID, 10))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Register creates the account and signs in.
func (c *Client) Register(ctx context.Context, username, email, password string) (int64, error) {
	var out struct {
		UserID int64 `json:"user_id"`
	}
	err := c.Do(ctx, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	return out.UserID, err
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.Do(ctx, http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out.User, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

func (c *Client) Profile(ctx context.Context) (User, error) {
	var u User
	err := c.Do(ctx, http.MethodGet, "/api/user/profile", nil, &u)
	return u, err
}

func (c *Client) ListExpenses(ctx context.Context, f ExpenseFilter) ([]Expense, error) {
	var out []Expense
	err := c.Do(ctx, http.MethodGet, "/api/expenses"+f.query(), nil, &out)
	return out, err
}

// CreateExpense checks the amount and category before anything is sent.
func (c *Client) CreateExpense(ctx context.Context, e NewExpense) (Expense, error) {
	if e.Amount <= 0 {
		return Expense{}, core.ErrInvalidAmount
	}
	category, err := core.ParseCategory(e.Category)
	if err != nil {
		return Expense{}, err
	}
	if strings.TrimSpace(e.Description) == "" {
		return Expense{}, core.ErrEmptyDescription
	}
	if e.ExpenseDate == "" {
		e.ExpenseDate = time.Now().Format(core.DateLayout)
	} else if _, err := core.ParseDate(e.ExpenseDate); err != nil {
		return Expense{}, err
	}

	in := map[string]any{
		"amount":       strconv.FormatFloat(e.Amount, 'f', 2, 64),
		"category":     string(category),
		"description":  strings.TrimSpace(e.Description),
		"expense_date": e.ExpenseDate,
	}
	if e.PaymentMethod != "" {
		in["payment_method"] = e.PaymentMethod
	}
	if e.CardID > 0 {
		in["card_id"] = strconv.FormatInt(e.CardID, 10)
	}

	var out struct {
		Expense Expense `json:"expense"`
	}
	err = c.Do(ctx, http.MethodPost, "/api/expenses", in, &out)
	return out.Expense, err
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), nil, nil)
}

func (c *Client) ListCards(ctx context.Context) ([]Card, error) {
	var out []Card
	err := c.Do(ctx, http.MethodGet, "/api/cards", nil, &out)
	return out, err
}

// AddCard checks the number, expiry and CVV before anything is sent.
func (c *Client) AddCard(ctx context.Context, card NewCard) (Card, error) {
	if err := core.ValidateCardNumber(card.CardNumber); err != nil {
		return Card{}, err
	}
	if err := core.ValidateExpiry(card.ExpiryDate, time.Now()); err != nil {
		return Card{}, err
	}
	if err := core.ValidateCVV(card.CVV); err != nil {
		return Card{}, err
	}
	if card.Balance < 0 {
		return Card{}, core.ErrNegativeBalance
	}

	in := map[string]string{
		"card_name":   card.CardName,
		"card_holder": card.CardHolder,
		"card_number": core.NormalizeCardNumber(card.CardNumber),
		"expiry_date": card.ExpiryDate,
		"cvv":         card.CVV,
		"card_type":   card.CardType,
		"bank_name":   card.BankName,
		"balance":     strconv.FormatFloat(card.Balance, 'f', 2, 64),
	}
	var out struct {
		Card Card `json:"card"`
	}
	err := c.Do(ctx, http.MethodPost, "/api/cards", in, &out)
	return out.Card, err
}

func (c *Client) DeleteCard(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/cards/%d", id), nil, nil)
}

func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	err := c.Do(ctx, http.MethodGet, "/api/analytics/summary", nil, &s)
	return s, err
}

// Notifications returns the newest notifications and the unread count.
func (c *Client) Notifications(ctx context.Context) ([]Notification, int, error) {
	var out struct {
		Notifications []Notification `json:"notifications"`
		UnreadCount   int            `json:"unread_count"`
	}
	err := c.Do(ctx, http.MethodGet, "/api/notifications", nil, &out)
	return out.Notifications, out.UnreadCount, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/notifications/%d/read", id), nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	err := c.Do(ctx, http.MethodPut, "/api/notifications/read-all", nil, &out)
	return out.Updated, err
}

// ExportCSV streams the CSV export into w.
func (c *Client) ExportCSV(ctx context.Context, f ExpenseFilter, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/expenses/export"+f.query(), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read export: %w", err)
	}
	return n, nil
}
