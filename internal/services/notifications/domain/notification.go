// Package domain implements notification dispatch and the per-user inbox.
// Dispatch persists first and pushes second, so a notification survives even
// when its recipient is offline.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a notification record was not found.
	ErrNotFound = errors.New("notification not found")
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("notification store is not configured")
	// ErrRendererNotConfigured indicates the service cannot produce copy.
	ErrRendererNotConfigured = errors.New("notification renderer is not configured")
)

// Notification is one persisted inbox entry. Title and Body are rendered once
// at dispatch time and stored, so copy does not change under the reader.
type Notification struct {
	ID                string
	RecipientUserID   string
	MessageType       MessageType
	Title             string
	Body              string
	RelatedEntityID   string
	RelatedEntityType string
	CreatedAt         time.Time
	ReadAt            *time.Time
}

// Read reports whether the notification has been acknowledged.
func (n Notification) Read() bool {
	return n.ReadAt != nil
}

// NotificationPage is a paged recipient inbox view, newest first.
type NotificationPage struct {
	Notifications []Notification
	NextPageToken string
}

// DispatchInput is a request to notify one user about one lifecycle event.
// Payload carries the variables the renderer interpolates into copy; a
// producer that already has final copy may set Title and Body directly and
// the renderer is skipped.
type DispatchInput struct {
	RecipientUserID   string
	MessageType       MessageType
	Title             string
	Body              string
	RelatedEntityID   string
	RelatedEntityType string
	Payload           map[string]string
}

// Store is the domain persistence boundary for the notification inbox.
// Pagination tokens are opaque to the domain and owned by the store.
type Store interface {
	PutNotification(ctx context.Context, notification Notification) error
	GetNotification(ctx context.Context, recipientUserID string, notificationID string) (Notification, error)
	ListNotificationsByRecipient(ctx context.Context, recipientUserID string, pageSize int, pageToken string) (NotificationPage, error)
	CountUnread(ctx context.Context, recipientUserID string) (int, error)
	MarkNotificationsRead(ctx context.Context, recipientUserID string, notificationIDs []string, readAt time.Time) (int, error)
	MarkAllNotificationsRead(ctx context.Context, recipientUserID string, readAt time.Time) (int, error)
}
