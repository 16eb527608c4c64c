package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// badgeCap is the largest unread count shown as a number.
const badgeCap = 99

var templateFuncs = template.FuncMap{
	"money": formatMoney,
	"percent": func(p float64) string {
		return fmt.Sprintf("%.1f%%", p)
	},
	"badge": badgeLabel,
	"date": func(d core.Date) string {
		if d.IsZero() {
			return ""
		}
		return d.Format("Jan 2, 2006")
	},
	"since": func(t time.Time) string {
		return t.Format("Jan 2, 15:04")
	},
	"barWidth": func(p float64) int {
		switch {
		case p < 0:
			return 0
		case p > 100:
			return 100
		}
		return int(p + 0.5)
	},
	"deref": func(id *int64) int64 {
		if id == nil {
			return 0
		}
		return *id
	},
}

// badgeLabel renders an unread count, "" for zero and "99+" above the cap.
func badgeLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > badgeCap:
		return "99+"
	}
	return strconv.Itoa(n)
}

// pageData is shared by every full page.
type pageData struct {
	Title         string
	Active        string
	Username      string
	Today         string
	IdleTimeoutMs int64
	Categories    []core.Category
	Cards         []core.Card
	User          core.User
}

var pageTitles = map[string]string{
	"dashboard":     "Dashboard",
	"cards":         "My Cards",
	"expenses":      "Expenses",
	"reports":       "Reports",
	"notifications": "Notifications",
	"settings":      "Settings",
	"login":         "Log in",
	"signup":        "Sign up",
}

func (s *Server) newPageData(r *http.Request, name string) pageData {
	sess := currentSession(r)
	d := pageData{
		Title:      pageTitles[name],
		Active:     name,
		Username:   sess.Username,
		Today:      time.Now().Format(core.DateLayout),
		Categories: core.Categories,
	}
	if s.deps.Sessions != nil {
		d.IdleTimeoutMs = s.deps.Sessions.IdleTimeout().Milliseconds()
	}
	return d
}

// handleRoot sends visitors to the dashboard or the login page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r, true); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.anonymousPage(w, r, "login")
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.anonymousPage(w, r, "signup")
}

func (s *Server) anonymousPage(w http.ResponseWriter, r *http.Request, name string) {
	if _, ok := s.authenticate(w, r, true); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, name+".html", s.newPageData(r, name))
}

// handlePage renders one of the authenticated pages. Lists are loaded by
// the page through the /ui partials.
func (s *Server) handlePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := s.newPageData(r, name)
		userID := currentSession(r).UserID

		switch name {
		case "expenses":
			cards, err := s.deps.Cards.List(r.Context(), userID)
			if err != nil {
				s.renderError(w, r, err)
				return
			}
			d.Cards = cards
		case "settings":
			u, err := s.deps.Accounts.Profile(r.Context(), userID)
			if err != nil {
				s.renderError(w, r, err)
				return
			}
			d.User = u
		}
		s.render(w, r, http.StatusOK, name+".html", d)
	}
}

// render buffers the template output before writing the status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, err := s.execute(name, data)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldComponent, applog.ComponentTemplate,
			"template", name,
			applog.FieldError, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Page failed", applog.FieldPath, r.URL.Path, applog.FieldError, err)
	}
	http.Error(w, msg, status)
}
