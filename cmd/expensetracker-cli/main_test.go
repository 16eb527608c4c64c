package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "et_session", Value: "t", Path: "/"})
		_, _ = w.Write([]byte(`{"user":{"id":1}}`))
	})
	mux.HandleFunc("GET /api/analytics/summary", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_month":"2026-10","monthly_salary":1000,"total_expenses":250,"spent_percent":25,"category_breakdown":[{"category":"Food","total":250,"count":2}]}`))
	})
	mux.HandleFunc("GET /api/expenses", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":4,"expense_date":"2026-10-02","category":"Food","description":"Lunch","amount":12.5,"payment_method":"cash"}]`))
	})
	mux.HandleFunc("POST /api/expenses", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"expense":{"id":9,"amount":3.2,"category":"Transport"}}`))
	})
	mux.HandleFunc("GET /api/expenses/export", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Date,Category\n2026-10-02,Food\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	full := append([]string{"-url", srv.URL, "-email", "ada@example.com", "-password", "password123"}, args...)
	err := run(context.Background(), full, &out)
	return out.String(), err
}

func TestRun(t *testing.T) {
	srv := fakeAPI(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"summary", []string{"summary"}, "2026-10"},
		{"expenses", []string{"expenses", "-category", "Food"}, "Lunch"},
		{"add expense", []string{"add-expense", "-amount", "3.2", "-category", "Transport", "-description", "Bus"}, "Expense 9 added"},
		{"export to stdout", []string{"export"}, "2026-10-02,Food"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, srv, tt.args...)
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	srv := fakeAPI(t)

	if _, err := runCLI(t, srv); err == nil {
		t.Error("missing command accepted")
	}
	if _, err := runCLI(t, srv, "nope"); err == nil {
		t.Error("unknown command accepted")
	}
	if _, err := runCLI(t, srv, "add-expense", "-amount", "0", "-category", "Food", "-description", "x"); err == nil {
		t.Error("zero amount accepted")
	}

	var out bytes.Buffer
	err := run(context.Background(), []string{"-url", srv.URL, "-email", "ada@example.com", "-password", "wrong", "summary"}, &out)
	if err == nil || !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("bad password error = %v", err)
	}
}

func TestExportToFile(t *testing.T) {
	srv := fakeAPI(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	out, err := runCLI(t, srv, "export", "-o", path)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out, "Wrote") {
		t.Errorf("output = %q", out)
	}
	b, err := os.ReadFile(path)
	if err != nil || !strings.HasPrefix(string(b), "Date,Category") {
		t.Errorf("file = %q, %v", b, err)
	}
}
