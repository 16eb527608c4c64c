package http

import (
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/forms"
	applog "expensetracker/internal/log"
)

// HTMX partials. Mutations answer with the re-rendered fragment, a toast
// and a "<resource>:changed" event; failures answer with an error toast.

type summaryView struct {
	Summary core.DashboardSummary
	Percent float64
}

type expenseTableView struct {
	Expenses []core.Expense
	Total    core.Money
}

type expenseEditView struct {
	Expense    core.Expense
	Categories []core.Category
	Cards      []core.Card
}

type notificationPanelView struct {
	Items  []core.Notification
	Unread int
	Badge  string
}

// fragment renders a partial into the builder body and writes it.
func (s *Server) fragment(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	body, err := s.execute(name, data)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Partial execution failed",
			applog.FieldComponent, applog.ComponentTemplate,
			"template", name,
			applog.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Something went wrong").Write(w)
		return
	}
	b.BodyHTML(body).Write(w)
}

// failure maps err like the API does and answers with an error toast.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Partial request failed",
			applog.FieldOperation, op,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
	}
	ErrorResponse(status, msg).Write(w)
}

func (s *Server) handleUILogin(w http.ResponseWriter, r *http.Request) {
	var f forms.LoginForm
	err := s.decodeBody(r, &f)
	if err == nil {
		_, err = s.login(w, r, f)
	}
	if err != nil {
		s.failure(w, r, applog.OpLogin, err)
		return
	}
	NewHTMXResponse().Redirect("/dashboard").Write(w)
}

func (s *Server) handleUISignup(w http.ResponseWriter, r *http.Request) {
	var f forms.SignupForm
	err := s.decodeBody(r, &f)
	if err == nil {
		_, err = s.register(w, r, f)
	}
	if err != nil {
		s.failure(w, r, applog.OpCreate, err)
		return
	}
	NewHTMXResponse().Redirect("/dashboard").Write(w)
}

func (s *Server) handleUILogout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	NewHTMXResponse().Redirect("/login").Write(w)
}

func (s *Server) handleUISummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Analytics.Summary(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.failure(w, r, applog.OpRead, err)
		return
	}
	s.fragment(w, r, NewHTMXResponse(), "summary", summaryView{Summary: sum, Percent: sum.SpentPercent()})
}

func (s *Server) handleUITransactions(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Analytics.Summary(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.failure(w, r, applog.OpRead, err)
		return
	}
	s.fragment(w, r, NewHTMXResponse(), "transactions", sum.Recent)
}

func (s *Server) handleUICards(w http.ResponseWriter, r *http.Request) {
	s.renderCards(w, r, NewHTMXResponse())
}

func (s *Server) renderCards(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder) {
	cards, err := s.deps.Cards.List(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.failure(w, r, applog.OpList, err)
		return
	}
	s.fragment(w, r, b, "cards-grid", cards)
}

func (s *Server) handleUICreateCard(w http.ResponseWriter, r *http.Request) {
	if _, err := s.createCard(r); err != nil {
		s.failure(w, r, applog.OpCreate, err)
		return
	}
	s.renderCards(w, r, NewHTMXResponse().
		TriggerSuccessNotification("Card added successfully").
		TriggerChanged("cards").
		TriggerFormReset())
}

func (s *Server) handleUIDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.deps.Cards.Delete(r.Context(), currentSession(r).UserID, id)
	}
	if err != nil {
		s.failure(w, r, applog.OpDelete, err)
		return
	}
	s.renderCards(w, r, NewHTMXResponse().
		TriggerSuccessNotification("Card deleted successfully").
		TriggerChanged("cards"))
}

func (s *Server) handleUIExpenses(w http.ResponseWriter, r *http.Request) {
	s.renderExpenses(w, r, NewHTMXResponse())
}

// renderExpenses re-renders the table with the filters in the query string.
func (s *Server) renderExpenses(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder) {
	expenses, err := s.listExpenses(r)
	if err != nil {
		s.failure(w, r, applog.OpList, err)
		return
	}
	view := expenseTableView{Expenses: expenses}
	for _, e := range expenses {
		view.Total = view.Total.Add(e.Amount)
	}
	s.fragment(w, r, b, "expense-table", view)
}

func (s *Server) handleUICreateExpense(w http.ResponseWriter, r *http.Request) {
	if _, err := s.createExpense(r); err != nil {
		s.failure(w, r, applog.OpCreate, err)
		return
	}
	s.renderExpenses(w, r, NewHTMXResponse().
		TriggerSuccessNotification("Expense added successfully").
		TriggerChanged("expenses").
		TriggerFormReset())
}

func (s *Server) handleUIEditExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.failure(w, r, applog.OpRead, err)
		return
	}
	userID := currentSession(r).UserID
	e, err := s.deps.Expenses.Get(r.Context(), userID, id)
	if err != nil {
		s.failure(w, r, applog.OpRead, err)
		return
	}
	cards, err := s.deps.Cards.List(r.Context(), userID)
	if err != nil {
		s.failure(w, r, applog.OpRead, err)
		return
	}
	s.fragment(w, r, NewHTMXResponse(), "expense-edit-row", expenseEditView{
		Expense:    e,
		Categories: core.Categories,
		Cards:      cards,
	})
}

func (s *Server) handleUIUpdateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.updateExpense(r)
	if err != nil {
		s.failure(w, r, applog.OpUpdate, err)
		return
	}
	s.fragment(w, r, NewHTMXResponse().
		TriggerSuccessNotification("Expense updated successfully").
		TriggerChanged("expenses"), "expense-row", e)
}

func (s *Server) handleUIDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.deps.Expenses.Delete(r.Context(), currentSession(r).UserID, id)
	}
	if err != nil {
		s.failure(w, r, applog.OpDelete, err)
		return
	}
	s.renderExpenses(w, r, NewHTMXResponse().
		TriggerSuccessNotification("Expense deleted successfully").
		TriggerChanged("expenses"))
}

func (s *Server) handleUINotifications(w http.ResponseWriter, r *http.Request) {
	s.renderNotifications(w, r, NewHTMXResponse())
}

func (s *Server) renderNotifications(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder) {
	items, unread, err := s.deps.Notifications.List(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.failure(w, r, applog.OpList, err)
		return
	}
	s.fragment(w, r, b, "notification-panel", notificationPanelView{
		Items:  items,
		Unread: unread,
		Badge:  badgeLabel(unread),
	})
}

func (s *Server) handleUIBadge(w http.ResponseWriter, r *http.Request) {
	unread, err := s.deps.Notifications.UnreadCount(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.failure(w, r, applog.OpRead, err)
		return
	}
	s.fragment(w, r, NewHTMXResponse(), "badge", badgeLabel(unread))
}

func (s *Server) handleUIMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.deps.Notifications.MarkRead(r.Context(), currentSession(r).UserID, id)
	}
	if err != nil {
		s.failure(w, r, applog.OpUpdate, err)
		return
	}
	s.renderNotifications(w, r, NewHTMXResponse().TriggerChanged("notifications"))
}

func (s *Server) handleUIMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Notifications.MarkAllRead(r.Context(), currentSession(r).UserID); err != nil {
		s.failure(w, r, applog.OpUpdate, err)
		return
	}
	s.renderNotifications(w, r, NewHTMXResponse().
		TriggerSuccessNotification("All notifications marked as read").
		TriggerChanged("notifications"))
}

func (s *Server) handleUIDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.deps.Notifications.Delete(r.Context(), currentSession(r).UserID, id)
	}
	if err != nil {
		s.failure(w, r, applog.OpDelete, err)
		return
	}
	s.renderNotifications(w, r, NewHTMXResponse().TriggerChanged("notifications"))
}

func (s *Server) handleUIUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if _, err := s.updateProfile(w, r); err != nil {
		s.failure(w, r, applog.OpUpdate, err)
		return
	}
	NewHTMXResponse().
		TriggerSuccessNotification("Profile updated successfully").
		TriggerChanged("profile").
		Write(w)
}

func (s *Server) handleUIChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := s.changePassword(r); err != nil {
		s.failure(w, r, applog.OpUpdate, err)
		return
	}
	NewHTMXResponse().
		TriggerSuccessNotification("Password changed successfully").
		TriggerFormReset().
		Write(w)
}
