package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-03-09" || d.MonthKey() != "2025-03" {
		t.Fatalf("got %s / %s", d.String(), d.MonthKey())
	}
	for _, bad := range []string{"", "09/03/2025", "2025-13-01", "2025-02-30"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) err = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(time.Date(2024, 2, 17, 13, 0, 0, 0, time.UTC))
	if first.String() != "2024-02-01" || last.String() != "2024-02-29" {
		t.Fatalf("got %s..%s", first, last)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" food ")
	if err != nil || c != CategoryFood {
		t.Fatalf("ParseCategory(food) = %q, %v", c, err)
	}
	if _, err := ParseCategory("Groceries"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if got := NormalizeCategory("Groceries"); got != CategoryOthers {
		t.Fatalf("NormalizeCategory fallback = %q, want Others", got)
	}
}

func TestExpenseValidate(t *testing.T) {
	cardID := int64(7)
	good := Expense{
		Date:          NewDate(2025, 1, 1),
		Description:   "Lunch",
		Amount:        Money{Cents: 100},
		Category:      CategoryFood,
		PaymentMethod: PaymentCash,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	withCard := good
	withCard.PaymentMethod = PaymentCard
	withCard.CardID = &cardID
	if err := withCard.Validate(); err != nil {
		t.Fatalf("expected ok for card payment, got %v", err)
	}

	accented := good
	accented.Description = strings.Repeat("é", 200)
	if err := accented.Validate(); err != nil {
		t.Fatalf("expected 200 characters to be accepted, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"empty description", func(e *Expense) { e.Description = "  " }, ErrEmptyDescription},
		{"description too long", func(e *Expense) { e.Description = strings.Repeat("é", 201) }, ErrDescriptionTooLong},
		{"zero amount", func(e *Expense) { e.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"unknown category", func(e *Expense) { e.Category = "Travel" }, ErrInvalidCategory},
		{"unknown payment", func(e *Expense) { e.PaymentMethod = "cheque" }, ErrInvalidPayment},
		{"card without id", func(e *Expense) { e.PaymentMethod = PaymentCard }, ErrCardRequired},
		{"cash with card", func(e *Expense) { e.CardID = &cardID }, ErrCardNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := good
			tt.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpenseFilterValidate(t *testing.T) {
	f := ExpenseFilter{StartDate: NewDate(2025, 2, 1), EndDate: NewDate(2025, 1, 1)}
	if err := f.Validate(); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if err := (ExpenseFilter{}).Validate(); err != nil {
		t.Fatalf("empty filter should be valid: %v", err)
	}
}
