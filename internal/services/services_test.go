package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/auth"
	"expensetracker/internal/cardvault"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

const testVaultKey = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
}

func (f *fakePublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) types() []amqp.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]amqp.EventType, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

type testEnv struct {
	repo          *storage.SQLiteRepository
	caches        *Caches
	accounts      *AccountService
	cards         *CardService
	monitor       *SpendingMonitor
	expenses      *ExpenseService
	analytics     *AnalyticsService
	notifications *NotificationService
}

// newTestEnv builds every service on a fresh database. A nil publisher
// makes alerts run inline.
func newTestEnv(t *testing.T, publisher EventPublisher) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	vault, err := cardvault.New(testVaultKey)
	if err != nil {
		t.Fatalf("cardvault.New() error = %v", err)
	}

	caches := NewCaches(100, time.Minute)
	env := &testEnv{
		repo:          repo,
		caches:        caches,
		accounts:      NewAccountService(repo, auth.NewBcryptWithCost(4), nil),
		cards:         NewCardService(repo, vault, caches, nil),
		monitor:       NewSpendingMonitor(repo, 0.8, caches, nil),
		analytics:     NewAnalyticsService(repo, caches, nil),
		notifications: NewNotificationService(repo, caches, nil),
	}
	env.cards.now = func() time.Time { return testNow }
	env.analytics.now = func() time.Time { return testNow }
	env.notifications.now = func() time.Time { return testNow }
	env.expenses = NewExpenseService(repo, publisher, env.monitor, caches, nil)
	return env
}

func (env *testEnv) user(t *testing.T, name string, salaryCents int64) core.User {
	t.Helper()
	ctx := context.Background()
	u, err := env.accounts.Register(ctx, name, name+"@example.com", "password123")
	if err != nil {
		t.Fatalf("Register(%s) error = %v", name, err)
	}
	if salaryCents > 0 {
		u, err = env.accounts.UpdateProfile(ctx, u.ID, u.Username, u.Email, core.Money{Cents: salaryCents})
		if err != nil {
			t.Fatalf("UpdateProfile() error = %v", err)
		}
	}
	return u
}

func cashExpense(userID int64, date string, cents int64, cat core.Category) core.Expense {
	d, _ := core.ParseDate(date)
	return core.Expense{
		UserID:        userID,
		Description:   string(cat) + " on " + date,
		Amount:        core.Money{Cents: cents},
		Category:      cat,
		PaymentMethod: core.PaymentCash,
		Date:          d,
	}
}

func (env *testEnv) addExpense(t *testing.T, e core.Expense) core.Expense {
	t.Helper()
	created, err := env.expenses.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return created
}

func validCard(userID int64) core.Card {
	return core.Card{
		UserID:   userID,
		Name:     "Everyday",
		Holder:   "Ada Lovelace",
		Number:   "4539 1488 0343 6467",
		Expiry:   "12/28",
		Type:     "visa",
		BankName: "Test Bank",
		Balance:  core.Money{Cents: 50000},
	}
}

func TestAccountService_Register(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	u, err := env.accounts.Register(ctx, " ada ", "Ada@Example.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.ID == 0 || u.Username != "ada" || u.Email != "ada@example.com" {
		t.Errorf("Register() = %+v", u)
	}
	if u.PasswordHash == "password123" || u.PasswordHash == "" {
		t.Errorf("password must be stored hashed")
	}

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"duplicate email", "other", "ADA@example.com", "password123", ErrUserExists},
		{"duplicate username", "ada", "other@example.com", "password123", ErrUserExists},
		{"bad email", "bob", "bob-at-example", "password123", core.ErrInvalidEmail},
		{"short password", "bob", "bob@example.com", "short", core.ErrPasswordTooShort},
		{"short username", "bo", "bob@example.com", "password123", core.ErrInvalidUsername},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.Register(ctx, tt.username, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccountService_Login(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.user(t, "ada", 0)

	if _, err := env.accounts.Login(ctx, "ADA@example.com", "password123"); err != nil {
		t.Errorf("Login(valid) error = %v", err)
	}
	if _, err := env.accounts.Login(ctx, "ada@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(wrong password) error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := env.accounts.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(unknown) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestAccountService_Profile(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ada := env.user(t, "ada", 0)
	env.user(t, "bob", 0)

	u, err := env.accounts.UpdateProfile(ctx, ada.ID, "ada2", "ada2@example.com", core.Money{Cents: 250000})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if u.Username != "ada2" || u.MonthlySalary.Cents != 250000 {
		t.Errorf("UpdateProfile() = %+v", u)
	}

	if _, err := env.accounts.UpdateProfile(ctx, ada.ID, "bob", "ada2@example.com", core.Money{}); !errors.Is(err, ErrUserExists) {
		t.Errorf("UpdateProfile(taken username) error = %v, want ErrUserExists", err)
	}
	if _, err := env.accounts.UpdateProfile(ctx, ada.ID, "ada2", "ada2@example.com", core.Money{Cents: -1}); !errors.Is(err, core.ErrNegativeSalary) {
		t.Errorf("UpdateProfile(negative salary) error = %v, want ErrNegativeSalary", err)
	}

	got, err := env.accounts.Profile(ctx, ada.ID)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if got.Email != "ada2@example.com" {
		t.Errorf("Profile().Email = %q", got.Email)
	}
}

func TestAccountService_ChangePassword(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.user(t, "ada", 0)

	if err := env.accounts.ChangePassword(ctx, u.ID, "wrong", "newpassword1"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("ChangePassword(wrong current) error = %v, want ErrWrongPassword", err)
	}
	if err := env.accounts.ChangePassword(ctx, u.ID, "password123", "short"); !errors.Is(err, core.ErrPasswordTooShort) {
		t.Errorf("ChangePassword(short) error = %v, want ErrPasswordTooShort", err)
	}
	if err := env.accounts.ChangePassword(ctx, u.ID, "password123", "newpassword1"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := env.accounts.Login(ctx, u.Email, "newpassword1"); err != nil {
		t.Errorf("Login(new password) error = %v", err)
	}
	if _, err := env.accounts.Login(ctx, u.Email, "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(old password) error = %v, want ErrInvalidCredentials", err)
	}
}
