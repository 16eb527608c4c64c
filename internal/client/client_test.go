package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"ftp://example.com", "://nope", "localhost:8081"} {
		if _, err := New(u); err == nil {
			t.Errorf("New(%q) succeeded", u)
		}
	}
}

func TestLoginKeepsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "et_session", Value: "token", Path: "/"})
		_, _ = w.Write([]byte(`{"message":"Login successful","user":{"id":7,"username":"ada"}}`))
	})
	mux.HandleFunc("GET /api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("et_session"); err != nil || c.Value != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"username":"ada","email":"ada@example.com"}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	if _, err := c.Profile(ctx); !IsUnauthorized(err) {
		t.Fatalf("Profile() before login error = %v, want 401", err)
	}

	_, err := c.Login(ctx, "ada@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Fatalf("Login() wrong password error = %v", err)
	}

	u, err := c.Login(ctx, "ada@example.com", "password123")
	if err != nil || u.ID != 7 {
		t.Fatalf("Login() = %+v, %v", u, err)
	}
	p, err := c.Profile(ctx)
	if err != nil || p.Email != "ada@example.com" {
		t.Errorf("Profile() = %+v, %v", p, err)
	}
}

func TestAPIError_FallsBackToStatusText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cards", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	c := newTestClient(t, mux)

	_, err := c.ListCards(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "Bad Gateway" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestCreateExpense_ValidatesLocally(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/expenses", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if in["amount"] != "12.50" || in["category"] != "Food" {
			t.Errorf("body = %v", in)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"expense_id":3,"expense":{"id":3,"amount":12.5,"category":"Food"}}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewExpense
		want error
	}{
		{"zero amount", NewExpense{Amount: 0, Category: "Food", Description: "x"}, core.ErrInvalidAmount},
		{"negative amount", NewExpense{Amount: -1, Category: "Food", Description: "x"}, core.ErrInvalidAmount},
		{"unknown category", NewExpense{Amount: 1, Category: "Rockets", Description: "x"}, core.ErrInvalidCategory},
		{"no description", NewExpense{Amount: 1, Category: "Food"}, core.ErrEmptyDescription},
		{"bad date", NewExpense{Amount: 1, Category: "Food", Description: "x", ExpenseDate: "01/02/2026"}, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.CreateExpense(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("CreateExpense() error = %v, want %v", err, tt.want)
			}
		})
	}
	if n := calls.Load(); n != 0 {
		t.Fatalf("invalid expenses reached the server %d times", n)
	}

	e, err := c.CreateExpense(ctx, NewExpense{Amount: 12.5, Category: "food", Description: "Lunch"})
	if err != nil || e.ID != 3 {
		t.Fatalf("CreateExpense() = %+v, %v", e, err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestAddCard_ValidatesLocally(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/cards", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["card_number"] != "4539148803436467" {
			t.Errorf("card_number = %q, want digits only", in["card_number"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"card_id":1,"card":{"id":1,"card_number":"**** **** **** 6467","last4":"6467"}}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()
	expiry := time.Now().AddDate(1, 0, 0).Format("01/06")

	valid := NewCard{CardName: "Daily", CardHolder: "Ada", CardNumber: "4539 1488 0343 6467", ExpiryDate: expiry, CVV: "123"}
	tests := []struct {
		name   string
		mutate func(*NewCard)
		want   error
	}{
		{"luhn", func(n *NewCard) { n.CardNumber = "4539 1488 0343 6468" }, core.ErrInvalidCardNumber},
		{"expired", func(n *NewCard) { n.ExpiryDate = "01/20" }, core.ErrCardExpired},
		{"expiry format", func(n *NewCard) { n.ExpiryDate = "2030-01" }, core.ErrInvalidExpiry},
		{"cvv", func(n *NewCard) { n.CVV = "12a" }, core.ErrInvalidCVV},
		{"balance", func(n *NewCard) { n.Balance = -5 }, core.ErrNegativeBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := valid
			tt.mutate(&card)
			if _, err := c.AddCard(ctx, card); !errors.Is(err, tt.want) {
				t.Errorf("AddCard() error = %v, want %v", err, tt.want)
			}
		})
	}
	if n := calls.Load(); n != 0 {
		t.Fatalf("invalid cards reached the server %d times", n)
	}

	card, err := c.AddCard(ctx, valid)
	if err != nil || card.Last4 != "6467" {
		t.Errorf("AddCard() = %+v, %v", card, err)
	}
}

func TestListExpensesSendsFilters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/expenses", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("category") != "Food" || q.Get("start_date") != "2026-10-01" || q.Get("card_id") != "4" || q.Has("end_date") {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`[{"id":1,"amount":3}]`))
	})
	c := newTestClient(t, mux)

	got, err := c.ListExpenses(context.Background(), ExpenseFilter{Category: "Food", StartDate: "2026-10-01", CardID: 4})
	if err != nil || len(got) != 1 {
		t.Errorf("ListExpenses() = %+v, %v", got, err)
	}
}

func TestExportCSV(t *testing.T) {
	const body = "Date,Category,Description,Amount,Payment Method\n2026-10-01,Food,Lunch,12.50,cash\n"
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/expenses/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	})
	c := newTestClient(t, mux)

	var buf bytes.Buffer
	n, err := c.ExportCSV(context.Background(), ExpenseFilter{}, &buf)
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	if n != int64(len(body)) || buf.String() != body {
		t.Errorf("ExportCSV() wrote %d bytes: %q", n, buf.String())
	}
}

func TestNotifications(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/notifications", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"notifications":[{"id":1,"message":"hi","type":"warning"}],"unread_count":1}`))
	})
	mux.HandleFunc("PUT /api/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok","updated":1}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	items, unread, err := c.Notifications(ctx)
	if err != nil || unread != 1 || len(items) != 1 || items[0].Type != "warning" {
		t.Fatalf("Notifications() = %+v, %d, %v", items, unread, err)
	}
	if n, err := c.MarkAllNotificationsRead(ctx); err != nil || n != 1 {
		t.Errorf("MarkAllNotificationsRead() = %d, %v", n, err)
	}
}
