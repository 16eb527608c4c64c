package services

import (
	"context"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

type NotificationService struct {
	repo   *storage.SQLiteRepository
	caches *Caches
	logger *applog.Logger
	now    func() time.Time
}

func NewNotificationService(repo *storage.SQLiteRepository, caches *Caches, logger *applog.Logger) *NotificationService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &NotificationService{
		repo:   repo,
		caches: caches,
		logger: logger.WithComponent(applog.ComponentNotification),
		now:    time.Now,
	}
}

// List returns the newest notifications and the unread count.
func (s *NotificationService) List(ctx context.Context, userID int64) ([]core.Notification, int, error) {
	items, err := s.repo.ListNotifications(ctx, userID, storage.NotificationListLimit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.UnreadNotificationCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadNotificationCount(ctx, userID)
}

func (s *NotificationService) Notify(ctx context.Context, userID int64, t core.NotificationType, message string) (core.Notification, error) {
	n := core.Notification{UserID: userID, Type: t, Message: message}
	if err := n.Validate(); err != nil {
		return core.Notification{}, err
	}
	created, err := s.repo.CreateNotification(ctx, n)
	if err != nil {
		return core.Notification{}, err
	}
	s.caches.invalidateSummary(userID)
	return created, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	if err := s.repo.MarkNotificationRead(ctx, userID, id); err != nil {
		return err
	}
	s.caches.invalidateSummary(userID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.caches.invalidateSummary(userID)
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteNotification(ctx, userID, id); err != nil {
		return err
	}
	s.caches.invalidateSummary(userID)
	return nil
}

// Purge removes read notifications older than olderThan, for every user.
func (s *NotificationService) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	n, err := s.repo.PurgeReadNotifications(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Read notifications purged",
		applog.FieldOperation, applog.OpPurge,
		applog.FieldCount, n,
		"cutoff", cutoff.UTC().Format(time.RFC3339))
	return n, nil
}
