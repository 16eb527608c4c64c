package http

import (
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/forms"
	applog "expensetracker/internal/log"
)

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.deps.Cards.List(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardsJSON(cards))
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	c, err := s.createCard(r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Card added successfully",
		"card_id": c.ID,
		"card":    toCardJSON(c),
	})
}

func (s *Server) createCard(r *http.Request) (core.Card, error) {
	var f forms.CardForm
	if err := s.decodeBody(r, &f); err != nil {
		return core.Card{}, err
	}
	c, err := f.ToCard(currentSession(r).UserID)
	if err != nil {
		return core.Card{}, err
	}
	return s.deps.Cards.Create(r.Context(), c, f.CVV)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	var f forms.CardUpdateForm
	if err := s.decodeBody(r, &f); err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}

	userID := currentSession(r).UserID
	current, err := s.deps.Cards.Get(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	edited, err := f.Apply(current)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	updated, err := s.deps.Cards.Update(r.Context(), edited)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Card updated successfully",
		"card":    toCardJSON(updated),
	})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.deps.Cards.Delete(r.Context(), currentSession(r).UserID, id)
	}
	if err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Card deleted successfully"})
}
