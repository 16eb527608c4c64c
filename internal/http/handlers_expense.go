package http

import (
	"fmt"
	"net/http"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/forms"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.listExpenses(r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpensesJSON(expenses))
}

// listExpenses applies the query string filters.
func (s *Server) listExpenses(r *http.Request) ([]core.Expense, error) {
	filter, err := forms.ParseExpenseFilter(r.URL.Query())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidFilter, err)
	}
	return s.deps.Expenses.List(r.Context(), currentSession(r).UserID, filter)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.createExpense(r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Expense added successfully",
		"expense_id": e.ID,
		"expense":    toExpenseJSON(e),
	})
}

func (s *Server) createExpense(r *http.Request) (core.Expense, error) {
	var f forms.ExpenseForm
	if err := s.decodeBody(r, &f); err != nil {
		return core.Expense{}, err
	}
	e, err := f.ToExpense(currentSession(r).UserID)
	if err != nil {
		return core.Expense{}, err
	}
	return s.deps.Expenses.Create(r.Context(), e)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	e, err := s.deps.Expenses.Get(r.Context(), currentSession(r).UserID, id)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.updateExpense(r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Expense updated successfully",
		"expense": toExpenseJSON(e),
	})
}

func (s *Server) updateExpense(r *http.Request) (core.Expense, error) {
	id, err := pathID(r)
	if err != nil {
		return core.Expense{}, err
	}
	var f forms.ExpenseForm
	if err := s.decodeBody(r, &f); err != nil {
		return core.Expense{}, err
	}
	e, err := f.ToExpense(currentSession(r).UserID)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	return s.deps.Expenses.Update(r.Context(), e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.deps.Expenses.Delete(r.Context(), currentSession(r).UserID, id)
	}
	if err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
}

// handleExportExpenses streams the filtered expenses as a CSV download.
func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.listExpenses(r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpExport, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, services.ExportFilename(time.Now())))
	if err := services.WriteExpensesCSV(w, expenses); err != nil {
		// headers are gone, only log
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			applog.FieldOperation, applog.OpExport,
			applog.FieldError, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expenses exported",
		applog.FieldCount, len(expenses))
}
