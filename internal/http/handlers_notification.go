package http

import (
	"net/http"

	applog "expensetracker/internal/log"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	items, unread, err := s.deps.Notifications.List(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationListJSON{
		Notifications: toNotificationsJSON(items),
		UnreadCount:   unread,
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.deps.Notifications.MarkRead(r.Context(), currentSession(r).UserID, id)
	}
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Notifications.MarkAllRead(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All notifications marked as read",
		"updated": n,
	})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.deps.Notifications.Delete(r.Context(), currentSession(r).UserID, id)
	}
	if err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}
