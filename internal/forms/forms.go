// Package forms declares the request payloads accepted by the API and the
// HTMX endpoints, validated with go-playground/validator.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"expensetracker/internal/core"
)

type SignupForm struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,emailaddr"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"omitempty,eqfield=Password"`
}

type LoginForm struct {
	Email    string `json:"email" validate:"required,emailaddr"`
	Password string `json:"password" validate:"required"`
}

type CardForm struct {
	CardName   string `json:"card_name" validate:"required,max=100"`
	CardHolder string `json:"card_holder" validate:"required,max=100"`
	CardNumber string `json:"card_number" validate:"required,luhn"`
	ExpiryDate string `json:"expiry_date" validate:"required,expiry"`
	CVV        string `json:"cvv" validate:"required,cvv"`
	CardType   string `json:"card_type" validate:"omitempty,max=30"`
	BankName   string `json:"bank_name" validate:"omitempty,max=100"`
	Balance    string `json:"balance" validate:"omitempty,money"`
}

// CardUpdateForm edits card metadata. The number cannot change.
type CardUpdateForm struct {
	CardName   string `json:"card_name" validate:"required,max=100"`
	CardHolder string `json:"card_holder" validate:"required,max=100"`
	CardType   string `json:"card_type" validate:"omitempty,max=30"`
	BankName   string `json:"bank_name" validate:"omitempty,max=100"`
	Balance    string `json:"balance" validate:"omitempty,money"`
}

type ExpenseForm struct {
	Amount        string `json:"amount" validate:"required,amount"`
	Category      string `json:"category" validate:"required,category"`
	Description   string `json:"description" validate:"required,max=200"`
	ExpenseDate   string `json:"expense_date" validate:"required,datefmt"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=cash card"`
	CardID        string `json:"card_id" validate:"omitempty,numeric"`
}

type ProfileForm struct {
	Username      string `json:"username" validate:"required,min=3,max=50"`
	Email         string `json:"email" validate:"required,emailaddr"`
	MonthlySalary string `json:"monthly_salary" validate:"omitempty,money"`
}

type PasswordForm struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"omitempty,eqfield=NewPassword"`
}

// New returns a validator with the custom tags registered. Field names in
// errors are the json names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "emailaddr", func(fl validator.FieldLevel) bool {
		return core.ValidateEmail(fl.Field().String()) == nil
	})
	mustRegister(v, "luhn", func(fl validator.FieldLevel) bool {
		return core.ValidateCardNumber(fl.Field().String()) == nil
	})
	mustRegister(v, "expiry", func(fl validator.FieldLevel) bool {
		return core.ValidateExpiry(fl.Field().String(), time.Now()) == nil
	})
	mustRegister(v, "cvv", func(fl validator.FieldLevel) bool {
		return core.ValidateCVV(fl.Field().String()) == nil
	})
	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		_, err := core.ParseCategory(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDecimalToCents(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		_, err := core.ParseNonNegativeCents(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "datefmt", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Message turns a validation error into one sentence for the user. Only the
// first failing field is reported.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		if err == nil {
			return ""
		}
		return capitalize(err.Error())
	}

	fe := verrs[0]
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	value, _ := fe.Value().(string)

	switch fe.Tag() {
	case "required":
		return capitalize(field) + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", capitalize(field), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", capitalize(field), fe.Param())
	case "emailaddr":
		return capitalize(core.ErrInvalidEmail.Error())
	case "eqfield":
		return "Passwords do not match"
	case "luhn":
		return "Invalid card number"
	case "expiry":
		if err := core.ValidateExpiry(value, time.Now()); err != nil {
			return capitalize(err.Error())
		}
		return capitalize(core.ErrInvalidExpiry.Error())
	case "cvv":
		return core.ErrInvalidCVV.Error()
	case "category":
		return "Please select a valid category"
	case "amount":
		return "Amount must be greater than 0"
	case "money":
		return capitalize(field) + " must be a non-negative amount"
	case "datefmt":
		return "Date must be in YYYY-MM-DD format"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", capitalize(field), fe.Param())
	case "numeric":
		return capitalize(field) + " must be a number"
	}
	return capitalize(field) + " is invalid"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ToExpense converts a validated form. Cash payments drop any card id the
// browser sent along.
func (f ExpenseForm) ToExpense(userID int64) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(f.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	category, err := core.ParseCategory(f.Category)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(f.ExpenseDate)
	if err != nil {
		return core.Expense{}, err
	}
	method := core.PaymentCash
	if f.PaymentMethod != "" {
		if method, err = core.ParsePaymentMethod(f.PaymentMethod); err != nil {
			return core.Expense{}, err
		}
	}

	e := core.Expense{
		UserID:        userID,
		Description:   strings.TrimSpace(f.Description),
		Amount:        core.Money{Cents: cents},
		Category:      category,
		PaymentMethod: method,
		Date:          date,
	}
	if method == core.PaymentCard && f.CardID != "" {
		id, err := strconv.ParseInt(f.CardID, 10, 64)
		if err != nil || id <= 0 {
			return core.Expense{}, core.ErrCardRequired
		}
		e.CardID = &id
	}
	return e, e.Validate()
}

func (f CardForm) ToCard(userID int64) (core.Card, error) {
	balance, err := core.ParseNonNegativeCents(f.Balance)
	if err != nil {
		return core.Card{}, core.ErrNegativeBalance
	}
	c := core.Card{
		UserID:   userID,
		Name:     strings.TrimSpace(f.CardName),
		Holder:   strings.TrimSpace(f.CardHolder),
		Number:   core.NormalizeCardNumber(f.CardNumber),
		Expiry:   strings.TrimSpace(f.ExpiryDate),
		Type:     strings.TrimSpace(f.CardType),
		BankName: strings.TrimSpace(f.BankName),
		Balance:  core.Money{Cents: balance},
	}
	return c, c.Validate()
}

// Apply copies the editable fields onto an existing card.
func (f CardUpdateForm) Apply(c core.Card) (core.Card, error) {
	balance, err := core.ParseNonNegativeCents(f.Balance)
	if err != nil {
		return core.Card{}, core.ErrNegativeBalance
	}
	c.Name = strings.TrimSpace(f.CardName)
	c.Holder = strings.TrimSpace(f.CardHolder)
	c.Type = strings.TrimSpace(f.CardType)
	c.BankName = strings.TrimSpace(f.BankName)
	c.Balance = core.Money{Cents: balance}
	return c, c.Validate()
}

func (f ProfileForm) SalaryCents() (int64, error) {
	return core.ParseNonNegativeCents(f.MonthlySalary)
}

// ParseExpenseFilter reads list filters from a query string. Empty values
// are ignored.
func ParseExpenseFilter(q url.Values) (core.ExpenseFilter, error) {
	var f core.ExpenseFilter
	var err error

	if v := strings.TrimSpace(q.Get("start_date")); v != "" {
		if f.StartDate, err = core.ParseDate(v); err != nil {
			return f, err
		}
	}
	if v := strings.TrimSpace(q.Get("end_date")); v != "" {
		if f.EndDate, err = core.ParseDate(v); err != nil {
			return f, err
		}
	}
	if v := strings.TrimSpace(q.Get("category")); v != "" && !strings.EqualFold(v, "all") {
		if f.Category, err = core.ParseCategory(v); err != nil {
			return f, err
		}
	}
	if v := strings.TrimSpace(q.Get("payment_method")); v != "" && !strings.EqualFold(v, "all") {
		if f.PaymentMethod, err = core.ParsePaymentMethod(v); err != nil {
			return f, err
		}
	}
	if v := strings.TrimSpace(q.Get("card_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, fmt.Errorf("invalid card_id %q", v)
		}
		f.CardID = id
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = n
	}
	return f, f.Validate()
}
