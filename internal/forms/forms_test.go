package forms

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"expensetracker/internal/core"
)

func validCard() CardForm {
	return CardForm{
		CardName:   "Daily",
		CardHolder: "Alice Doe",
		CardNumber: "4539 1488 0343 6467",
		ExpiryDate: "12/35",
		CVV:        "123",
		Balance:    "1500.00",
	}
}

func validExpense() ExpenseForm {
	return ExpenseForm{
		Amount:        "12.50",
		Category:      "food",
		Description:   "Lunch",
		ExpenseDate:   "2026-10-18",
		PaymentMethod: "cash",
	}
}

func TestValidate_Messages(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		form any
		want string
	}{
		{
			name: "signup invalid email",
			form: SignupForm{Username: "alice", Email: "alice@", Password: "secret123"},
			want: "Please enter a valid email address",
		},
		{
			name: "signup short password",
			form: SignupForm{Username: "alice", Email: "a@b.co", Password: "short"},
			want: "Password must be at least 8 characters",
		},
		{
			name: "signup mismatched confirmation",
			form: SignupForm{Username: "alice", Email: "a@b.co", Password: "secret123", ConfirmPassword: "secret124"},
			want: "Passwords do not match",
		},
		{
			name: "login missing password",
			form: LoginForm{Email: "a@b.co"},
			want: "Password is required",
		},
		{
			name: "card bad luhn",
			form: func() CardForm { c := validCard(); c.CardNumber = "4539148803436468"; return c }(),
			want: "Invalid card number",
		},
		{
			name: "card expired",
			form: func() CardForm { c := validCard(); c.ExpiryDate = "01/20"; return c }(),
			want: "Card has expired",
		},
		{
			name: "card malformed expiry",
			form: func() CardForm { c := validCard(); c.ExpiryDate = "2030-01"; return c }(),
			want: "Expiry date must be in MM/YY format",
		},
		{
			name: "card bad cvv",
			form: func() CardForm { c := validCard(); c.CVV = "12a"; return c }(),
			want: "CVV must be 3 or 4 digits",
		},
		{
			name: "expense zero amount",
			form: func() ExpenseForm { e := validExpense(); e.Amount = "0"; return e }(),
			want: "Amount must be greater than 0",
		},
		{
			name: "expense non-ascii digits",
			form: func() ExpenseForm { e := validExpense(); e.Amount = "1.٣"; return e }(),
			want: "Amount must be greater than 0",
		},
		{
			name: "expense unknown category",
			form: func() ExpenseForm { e := validExpense(); e.Category = "Crypto"; return e }(),
			want: "Please select a valid category",
		},
		{
			name: "expense bad date",
			form: func() ExpenseForm { e := validExpense(); e.ExpenseDate = "18/10/2026"; return e }(),
			want: "Date must be in YYYY-MM-DD format",
		},
		{
			name: "expense long description",
			form: func() ExpenseForm { e := validExpense(); e.Description = strings.Repeat("x", 201); return e }(),
			want: "Description must be at most 200 characters",
		},
		{
			name: "expense bad payment method",
			form: func() ExpenseForm { e := validExpense(); e.PaymentMethod = "crypto"; return e }(),
			want: "Payment method must be one of: cash card",
		},
		{
			name: "profile negative salary",
			form: ProfileForm{Username: "alice", Email: "a@b.co", MonthlySalary: "-1"},
			want: "Monthly salary must be a non-negative amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.form)
			if err == nil {
				t.Fatalf("Struct() should fail")
			}
			if got := Message(err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate_ValidForms(t *testing.T) {
	v := New()
	for name, form := range map[string]any{
		"signup":   SignupForm{Username: "alice", Email: "alice@example.com", Password: "secret123", ConfirmPassword: "secret123"},
		"login":    LoginForm{Email: "alice@example.com", Password: "x"},
		"card":     validCard(),
		"expense":  validExpense(),
		"profile":  ProfileForm{Username: "alice", Email: "alice@example.com", MonthlySalary: "3000"},
		"password": PasswordForm{CurrentPassword: "old", NewPassword: "newsecret1"},
	} {
		if err := v.Struct(form); err != nil {
			t.Errorf("%s: Struct() error = %v (%s)", name, err, Message(err))
		}
	}
}

func TestMessage_PlainError(t *testing.T) {
	if got := Message(errors.New("boom")); got != "Boom" {
		t.Errorf("Message() = %q", got)
	}
	if Message(nil) != "" {
		t.Errorf("Message(nil) should be empty")
	}
}

func TestExpenseForm_ToExpense(t *testing.T) {
	e, err := validExpense().ToExpense(3)
	if err != nil {
		t.Fatalf("ToExpense() error = %v", err)
	}
	if e.Amount.Cents != 1250 || e.Category != core.CategoryFood || e.PaymentMethod != core.PaymentCash || e.CardID != nil {
		t.Errorf("ToExpense() = %+v", e)
	}

	cashWithCard := validExpense()
	cashWithCard.CardID = "9"
	if e, _ := cashWithCard.ToExpense(3); e.CardID != nil {
		t.Errorf("cash payment should drop the card id")
	}

	accented := validExpense()
	accented.Description = strings.Repeat("é", 150)
	if _, err := accented.ToExpense(3); err != nil {
		t.Errorf("accented description error = %v", err)
	}

	card := validExpense()
	card.PaymentMethod = "card"
	if _, err := card.ToExpense(3); !errors.Is(err, core.ErrCardRequired) {
		t.Errorf("card without id error = %v, want ErrCardRequired", err)
	}
	card.CardID = "9"
	e, err = card.ToExpense(3)
	if err != nil || e.CardID == nil || *e.CardID != 9 {
		t.Errorf("card expense = %+v, %v", e, err)
	}
}

func TestCardForm_ToCard(t *testing.T) {
	c, err := validCard().ToCard(1)
	if err != nil {
		t.Fatalf("ToCard() error = %v", err)
	}
	if c.Number != "4539148803436467" || c.Balance.Cents != 150000 {
		t.Errorf("ToCard() = %+v", c)
	}

	upd, err := CardUpdateForm{CardName: "Renamed", CardHolder: "Alice", Balance: ""}.Apply(c)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if upd.Name != "Renamed" || upd.Number != c.Number || upd.Balance.Cents != 0 {
		t.Errorf("Apply() = %+v", upd)
	}
}

func TestParseExpenseFilter(t *testing.T) {
	f, err := ParseExpenseFilter(url.Values{
		"start_date":     {"2026-10-01"},
		"end_date":       {"2026-10-31"},
		"category":       {"transport"},
		"payment_method": {"all"},
		"card_id":        {"4"},
		"limit":          {"10"},
	})
	if err != nil {
		t.Fatalf("ParseExpenseFilter() error = %v", err)
	}
	if f.Category != core.CategoryTransport || f.PaymentMethod != "" || f.CardID != 4 || f.Limit != 10 {
		t.Errorf("filter = %+v", f)
	}

	bad := []url.Values{
		{"start_date": {"2026-13-01"}},
		{"category": {"Crypto"}},
		{"start_date": {"2026-10-31"}, "end_date": {"2026-10-01"}},
		{"card_id": {"x"}},
		{"limit": {"-1"}},
	}
	for _, q := range bad {
		if _, err := ParseExpenseFilter(q); err == nil {
			t.Errorf("ParseExpenseFilter(%v) should fail", q)
		}
	}
}
