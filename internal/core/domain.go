package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the wire and storage format of expense dates.
const DateLayout = "2006-01-02"

// MonthLayout identifies a calendar month, e.g. "2025-03".
const MonthLayout = "2006-01"

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEducation     Category = "Education"
	CategoryOthers        Category = "Others"
)

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationDanger  NotificationType = "danger"
)

type (
	Category         string
	PaymentMethod    string
	NotificationType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID            int64
		Username      string
		Email         string
		PasswordHash  string
		MonthlySalary Money
		CreatedAt     time.Time
	}

	Card struct {
		ID         int64
		UserID     int64
		Name       string
		Holder     string
		Number     string // masked outside the card service
		Last4      string
		Expiry     string // MM/YY
		Type       string
		BankName   string
		Balance    Money
		CreatedAt  time.Time
	}

	Expense struct {
		ID            int64
		UserID        int64
		CardID        *int64
		CardName      string
		Description   string
		Amount        Money
		Category      Category
		PaymentMethod PaymentMethod
		Date          Date
		CreatedAt     time.Time
	}

	Notification struct {
		ID        int64
		UserID    int64
		Message   string
		Type      NotificationType
		IsRead    bool
		CreatedAt time.Time
	}

	// ExpenseFilter narrows expense listings. Zero values mean "no constraint".
	ExpenseFilter struct {
		StartDate     Date
		EndDate       Date
		Category      Category
		PaymentMethod PaymentMethod
		CardID        int64
		Limit         int
	}
)

var (
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = errors.New("description too long (max 200 characters)")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidPayment       = errors.New("invalid payment method")
	ErrCardRequired         = errors.New("card payment requires a card")
	ErrCardNotAllowed       = errors.New("cash payment cannot reference a card")
	ErrInvalidNotification  = errors.New("invalid notification")
	ErrNegativeBalance      = errors.New("balance cannot be negative")
	ErrEmptyCardName        = errors.New("empty card name")
	ErrEmptyCardHolder      = errors.New("empty card holder")
	ErrInvalidDateRange     = errors.New("start date must not be after end date")
	ErrNegativeSalary       = errors.New("monthly salary cannot be negative")
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryBills,
	CategoryEntertainment,
	CategoryHealthcare,
	CategoryEducation,
	CategoryOthers,
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// NormalizeCategory is ParseCategory with Others as the fallback.
func NormalizeCategory(s string) Category {
	c, err := ParseCategory(s)
	if err != nil {
		return CategoryOthers
	}
	return c
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// ParsePaymentMethod accepts "cash" or "card" in any case.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentCash:
		return PaymentCash, nil
	case PaymentCard:
		return PaymentCard, nil
	}
	return "", ErrInvalidPayment
}

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationDanger:
		return true
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM month the date falls in.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthBounds returns the first and last day of the month containing t.
func MonthBounds(t time.Time) (Date, Date) {
	first := NewDate(t.Year(), int(t.Month()), 1)
	last := Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

// ParseMonth parses a YYYY-MM string into the first day of that month.
func ParseMonth(s string) (Date, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	switch e.PaymentMethod {
	case PaymentCard:
		if e.CardID == nil {
			return ErrCardRequired
		}
	case PaymentCash:
		if e.CardID != nil {
			return ErrCardNotAllowed
		}
	default:
		return ErrInvalidPayment
	}
	return nil
}

// Validate checks card metadata. Number and expiry checks live in
// ValidateCardNumber and ValidateExpiry since they need the raw input.
func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCardName
	}
	if strings.TrimSpace(c.Holder) == "" {
		return ErrEmptyCardHolder
	}
	if c.Balance.Cents < 0 {
		return ErrNegativeBalance
	}
	return nil
}

func (u User) Validate() error {
	if err := ValidateUsername(u.Username); err != nil {
		return err
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.MonthlySalary.Cents < 0 {
		return ErrNegativeSalary
	}
	return nil
}

func (n Notification) Validate() error {
	if strings.TrimSpace(n.Message) == "" || !n.Type.Valid() {
		return ErrInvalidNotification
	}
	return nil
}

func (f ExpenseFilter) Validate() error {
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.StartDate.After(f.EndDate.Time) {
		return ErrInvalidDateRange
	}
	if f.Category != "" && !f.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}
