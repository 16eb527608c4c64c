package storage

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// NotificationListLimit caps notification listings.
const NotificationListLimit = 50

type notificationRow struct {
	ID        int64  `db:"id"`
	UserID    int64  `db:"user_id"`
	Message   string `db:"message"`
	Type      string `db:"type"`
	IsRead    bool   `db:"is_read"`
	CreatedAt string `db:"created_at"`
}

func (n notificationRow) toCore() core.Notification {
	return core.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Message:   n.Message,
		Type:      core.NotificationType(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: parseTimestamp(n.CreatedAt),
	}
}

func (r *SQLiteRepository) CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	res, err := r.exec(ctx, `
INSERT INTO notifications (user_id, message, type, is_read, created_at)
VALUES (:user_id, :message, :type, 0, :now)`, map[string]any{
		"user_id": n.UserID,
		"message": n.Message,
		"type":    string(n.Type),
		"now":     r.timestamp(),
	})
	if err != nil {
		return core.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Notification{}, fmt.Errorf("create notification: last insert id: %w", err)
	}

	var row notificationRow
	if err := r.get(ctx, &row, `SELECT id, user_id, message, type, is_read, created_at FROM notifications WHERE id = :id`,
		map[string]any{"id": id}); err != nil {
		return core.Notification{}, fmt.Errorf("get notification %d: %w", id, err)
	}
	return row.toCore(), nil
}

// ListNotifications returns at most limit notifications, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID int64, limit int) ([]core.Notification, error) {
	if limit <= 0 || limit > NotificationListLimit {
		limit = NotificationListLimit
	}
	var rows []notificationRow
	err := r.selectRows(ctx, &rows, `
SELECT id, user_id, message, type, is_read, created_at
FROM notifications
WHERE user_id = :user_id
ORDER BY created_at DESC, id DESC
LIMIT :limit`, map[string]any{"user_id": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]core.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
}

func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	res, err := r.exec(ctx, `UPDATE notifications SET is_read = 1 WHERE id = :id AND user_id = :user_id`,
		map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	if err := affectOne(res); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead returns the number of notifications changed.
func (r *SQLiteRepository) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.exec(ctx, `UPDATE notifications SET is_read = 1 WHERE user_id = :user_id AND is_read = 0`,
		map[string]any{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) UnreadNotificationCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.get(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE user_id = :user_id AND is_read = 0`,
		map[string]any{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("unread notification count: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteNotification(ctx context.Context, userID, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM notifications WHERE id = :id AND user_id = :user_id`,
		map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete notification %d: %w", id, err)
	}
	if err := affectOne(res); err != nil {
		return fmt.Errorf("delete notification %d: %w", id, err)
	}
	return nil
}

// PurgeReadNotifications deletes read notifications created before cutoff.
func (r *SQLiteRepository) PurgeReadNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.exec(ctx, `DELETE FROM notifications WHERE is_read = 1 AND created_at < :cutoff`,
		map[string]any{"cutoff": cutoff.UTC().Format(timestampLayout)})
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return res.RowsAffected()
}
