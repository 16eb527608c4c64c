package http

import (
	"net/http"
	"strings"

	"expensetracker/internal/charts"
	applog "expensetracker/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Analytics.Summary(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryJSON(sum))
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	totals, err := s.deps.Analytics.Monthly(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyJSON(totals))
}

// handleCategory answers the breakdown of ?month=YYYY-MM, the current month
// by default.
func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	totals, _, err := s.deps.Analytics.Category(r.Context(), currentSession(r).UserID, strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoriesJSON(totals))
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	totals, _, err := s.deps.Analytics.Category(r.Context(), currentSession(r).UserID, strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, charts.CategoryChart(totals))
}

func (s *Server) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	totals, err := s.deps.Analytics.Monthly(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, charts.MonthlyChart(totals))
}
