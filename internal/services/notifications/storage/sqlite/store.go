// Package sqlite provides SQLite-backed persistence for the notification inbox.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/castmatch/castmatch/internal/platform/storage/sqlitemigrate"
	"github.com/castmatch/castmatch/internal/services/notifications/domain"
	"github.com/castmatch/castmatch/internal/services/notifications/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for notification inbox state.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a notifications SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutNotification persists one notification inbox row.
func (s *Store) PutNotification(ctx context.Context, notification domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeNotification(notification)
	if err != nil {
		return err
	}

	var readAt sql.NullInt64
	if normalized.ReadAt != nil {
		readAt = sql.NullInt64{Int64: toMillis(*normalized.ReadAt), Valid: true}
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO notifications (
	id, recipient_user_id, message_type, title, body, related_entity_id, related_entity_type, created_at, read_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	recipient_user_id = excluded.recipient_user_id,
	message_type = excluded.message_type,
	title = excluded.title,
	body = excluded.body,
	related_entity_id = excluded.related_entity_id,
	related_entity_type = excluded.related_entity_type,
	created_at = excluded.created_at,
	read_at = excluded.read_at
`,
		normalized.ID,
		normalized.RecipientUserID,
		string(normalized.MessageType),
		normalized.Title,
		normalized.Body,
		normalized.RelatedEntityID,
		normalized.RelatedEntityType,
		toMillis(normalized.CreatedAt),
		readAt,
	)
	if err != nil {
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

// GetNotification loads one recipient notification by id.
func (s *Store) GetNotification(ctx context.Context, recipientUserID string, notificationID string) (domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return domain.Notification{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Notification{}, fmt.Errorf("storage is not configured")
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	notificationID = strings.TrimSpace(notificationID)
	if recipientUserID == "" {
		return domain.Notification{}, fmt.Errorf("recipient user id is required")
	}
	if notificationID == "" {
		return domain.Notification{}, fmt.Errorf("notification id is required")
	}
	return s.getByRecipientAndID(ctx, recipientUserID, notificationID)
}

// ListNotificationsByRecipient lists one recipient inbox newest-first with cursor pagination.
func (s *Store) ListNotificationsByRecipient(ctx context.Context, recipientUserID string, pageSize int, pageToken string) (domain.NotificationPage, error) {
	if err := ctx.Err(); err != nil {
		return domain.NotificationPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.NotificationPage{}, fmt.Errorf("storage is not configured")
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	pageToken = strings.TrimSpace(pageToken)
	if recipientUserID == "" {
		return domain.NotificationPage{}, fmt.Errorf("recipient user id is required")
	}
	if pageSize <= 0 {
		return domain.NotificationPage{}, fmt.Errorf("page size must be greater than zero")
	}

	limit := pageSize + 1
	if pageToken == "" {
		rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, recipient_user_id, message_type, title, body, related_entity_id, related_entity_type, created_at, read_at
FROM notifications
WHERE recipient_user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`, recipientUserID, limit)
		if err != nil {
			return domain.NotificationPage{}, fmt.Errorf("list notifications: %w", err)
		}
		defer rows.Close()
		return collectPage(rows, pageSize)
	}

	tokenCreatedAt, err := s.createdAtByID(ctx, recipientUserID, pageToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotificationPage{}, nil
		}
		return domain.NotificationPage{}, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, recipient_user_id, message_type, title, body, related_entity_id, related_entity_type, created_at, read_at
FROM notifications
WHERE recipient_user_id = ?
  AND (created_at < ? OR (created_at = ? AND id < ?))
ORDER BY created_at DESC, id DESC
LIMIT ?
`, recipientUserID, toMillis(tokenCreatedAt), toMillis(tokenCreatedAt), pageToken, limit)
	if err != nil {
		return domain.NotificationPage{}, fmt.Errorf("list notifications with token: %w", err)
	}
	defer rows.Close()
	return collectPage(rows, pageSize)
}

// CountUnread returns the unread inbox count for one recipient.
func (s *Store) CountUnread(ctx context.Context, recipientUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	if recipientUserID == "" {
		return 0, fmt.Errorf("recipient user id is required")
	}

	var unreadCount int
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1)
FROM notifications
WHERE recipient_user_id = ?
  AND read_at IS NULL
`, recipientUserID).Scan(&unreadCount); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return unreadCount, nil
}

// MarkNotificationsRead marks the given recipient rows as read and reports
// how many rows changed. Ids that are unknown, belong to another recipient,
// or are already read do not match and are silently skipped.
func (s *Store) MarkNotificationsRead(ctx context.Context, recipientUserID string, notificationIDs []string, readAt time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	if recipientUserID == "" {
		return 0, fmt.Errorf("recipient user id is required")
	}
	if len(notificationIDs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(notificationIDs))
	args := make([]any, 0, len(notificationIDs)+2)
	args = append(args, toMillis(readAt.UTC()), recipientUserID)
	for _, notificationID := range notificationIDs {
		placeholders = append(placeholders, "?")
		args = append(args, strings.TrimSpace(notificationID))
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE notifications
SET read_at = ?
WHERE recipient_user_id = ?
  AND read_at IS NULL
  AND id IN (`+strings.Join(placeholders, ", ")+`)
`, args...)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read rows affected: %w", err)
	}
	return int(affected), nil
}

// MarkAllNotificationsRead marks every unread recipient row as read and
// reports how many rows changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientUserID string, readAt time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	if recipientUserID == "" {
		return 0, fmt.Errorf("recipient user id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE notifications
SET read_at = ?
WHERE recipient_user_id = ?
  AND read_at IS NULL
`, toMillis(readAt.UTC()), recipientUserID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read rows affected: %w", err)
	}
	return int(affected), nil
}

func (s *Store) createdAtByID(ctx context.Context, recipientUserID string, notificationID string) (time.Time, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT created_at
FROM notifications
WHERE recipient_user_id = ? AND id = ?
`, recipientUserID, notificationID)
	var createdAtMillis int64
	if err := row.Scan(&createdAtMillis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("lookup notification cursor: %w", err)
	}
	return fromMillis(createdAtMillis), nil
}

func (s *Store) getByRecipientAndID(ctx context.Context, recipientUserID string, notificationID string) (domain.Notification, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, recipient_user_id, message_type, title, body, related_entity_id, related_entity_type, created_at, read_at
FROM notifications
WHERE recipient_user_id = ? AND id = ?
`, recipientUserID, notificationID)
	notification, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Notification{}, domain.ErrNotFound
		}
		return domain.Notification{}, fmt.Errorf("get notification by id: %w", err)
	}
	return notification, nil
}

type scanner func(dest ...any) error

func normalizeNotification(notification domain.Notification) (domain.Notification, error) {
	notification.ID = strings.TrimSpace(notification.ID)
	notification.RecipientUserID = strings.TrimSpace(notification.RecipientUserID)
	notification.RelatedEntityID = strings.TrimSpace(notification.RelatedEntityID)
	notification.RelatedEntityType = strings.TrimSpace(notification.RelatedEntityType)
	if notification.ID == "" {
		return domain.Notification{}, fmt.Errorf("notification id is required")
	}
	if notification.RecipientUserID == "" {
		return domain.Notification{}, fmt.Errorf("recipient user id is required")
	}
	if strings.TrimSpace(string(notification.MessageType)) == "" {
		return domain.Notification{}, fmt.Errorf("message type is required")
	}
	if notification.CreatedAt.IsZero() {
		return domain.Notification{}, fmt.Errorf("created_at is required")
	}
	notification.CreatedAt = notification.CreatedAt.UTC()
	if notification.ReadAt != nil {
		readAt := notification.ReadAt.UTC()
		notification.ReadAt = &readAt
	}
	return notification, nil
}

func scanNotification(scan scanner) (domain.Notification, error) {
	var notification domain.Notification
	var messageType string
	var createdAt int64
	var readAt sql.NullInt64
	if err := scan(
		&notification.ID,
		&notification.RecipientUserID,
		&messageType,
		&notification.Title,
		&notification.Body,
		&notification.RelatedEntityID,
		&notification.RelatedEntityType,
		&createdAt,
		&readAt,
	); err != nil {
		return domain.Notification{}, err
	}
	notification.MessageType = domain.MessageType(messageType)
	notification.CreatedAt = fromMillis(createdAt)
	if readAt.Valid {
		value := fromMillis(readAt.Int64)
		notification.ReadAt = &value
	}
	return notification, nil
}

func collectPage(rows *sql.Rows, pageSize int) (domain.NotificationPage, error) {
	page := domain.NotificationPage{
		Notifications: make([]domain.Notification, 0, pageSize),
	}
	for rows.Next() {
		notification, err := scanNotification(rows.Scan)
		if err != nil {
			return domain.NotificationPage{}, fmt.Errorf("scan notification row: %w", err)
		}
		page.Notifications = append(page.Notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return domain.NotificationPage{}, fmt.Errorf("iterate notification rows: %w", err)
	}
	if len(page.Notifications) > pageSize {
		page.NextPageToken = page.Notifications[pageSize-1].ID
		page.Notifications = page.Notifications[:pageSize]
	}
	return page, nil
}
