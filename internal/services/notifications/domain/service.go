package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/castmatch/castmatch/internal/platform/id"
)

var (
	// ErrRecipientUserIDRequired indicates recipient identity is required.
	ErrRecipientUserIDRequired = errors.New("recipient user id is required")
	// ErrMessageTypeUnknown indicates the message type is outside the closed set.
	ErrMessageTypeUnknown = errors.New("notification message type is unknown")
	// ErrIDGeneratorNotConfigured indicates an ID generator is required.
	ErrIDGeneratorNotConfigured = errors.New("notification id generator is not configured")
	// ErrIDGeneratorExhausted indicates a fixed test ID sequence was exhausted.
	ErrIDGeneratorExhausted = errors.New("notification id generator exhausted")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Renderer turns a message type plus payload variables into stored copy.
type Renderer interface {
	Render(messageType MessageType, payload map[string]string) (title string, body string, err error)
}

// Pusher delivers a notification or summary to the recipient's live
// connection. Push is best effort; delivery failures never surface here
// because the notification is already durable.
type Pusher interface {
	PushNotification(ctx context.Context, recipientUserID string, notification Notification, unread int)
	PushSummary(ctx context.Context, recipientUserID string, unread int)
}

// Presence reports whether a user currently holds a live connection.
type Presence interface {
	IsConnected(userID string) bool
}

// ListInboxInput configures recipient inbox listing.
type ListInboxInput struct {
	RecipientUserID string
	PageSize        int
	PageToken       string
}

// MarkReadInput identifies recipient notifications to acknowledge. An empty
// NotificationIDs set means "mark everything unread as read".
type MarkReadInput struct {
	RecipientUserID string
	NotificationIDs []string
}

// Summary is the read-only unread/connected aggregate for one recipient.
type Summary struct {
	RecipientUserID string
	Unread          int
	Connected       bool
}

// Service orchestrates notification dispatch and inbox lifecycle behavior.
type Service struct {
	store    Store
	renderer Renderer
	pusher   Pusher
	presence Presence
	clock    func() time.Time
	newID    func() (string, error)
}

// NewService constructs notification domain use-cases. Pusher and presence
// may be nil; dispatch then persists without live delivery and summaries
// report disconnected.
func NewService(store Store, renderer Renderer, pusher Pusher, presence Presence, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{
		store:    store,
		renderer: renderer,
		pusher:   pusher,
		presence: presence,
		clock:    clock,
		newID:    newID,
	}
}

// Dispatch persists one notification and then pushes it to the recipient's
// live connection. Persistence failure fails the call so the producing
// transition can be rejected; push failure does not, the inbox row is the
// source of truth and the client reconciles via the pull path.
func (s *Service) Dispatch(ctx context.Context, input DispatchInput) (Notification, error) {
	if s == nil || s.store == nil {
		return Notification{}, ErrStoreNotConfigured
	}
	if s.newID == nil {
		return Notification{}, ErrIDGeneratorNotConfigured
	}
	recipientUserID := strings.TrimSpace(input.RecipientUserID)
	if recipientUserID == "" {
		return Notification{}, ErrRecipientUserIDRequired
	}
	if !input.MessageType.Known() {
		return Notification{}, ErrMessageTypeUnknown
	}

	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	if title == "" || body == "" {
		if s.renderer == nil {
			return Notification{}, ErrRendererNotConfigured
		}
		renderedTitle, renderedBody, err := s.renderer.Render(input.MessageType, input.Payload)
		if err != nil {
			return Notification{}, err
		}
		if title == "" {
			title = renderedTitle
		}
		if body == "" {
			body = renderedBody
		}
	}

	notificationID, err := s.newID()
	if err != nil {
		return Notification{}, err
	}
	notification := Notification{
		ID:                notificationID,
		RecipientUserID:   recipientUserID,
		MessageType:       input.MessageType,
		Title:             title,
		Body:              body,
		RelatedEntityID:   strings.TrimSpace(input.RelatedEntityID),
		RelatedEntityType: strings.TrimSpace(input.RelatedEntityType),
		CreatedAt:         s.nowUTC(),
	}
	if err := s.store.PutNotification(ctx, notification); err != nil {
		return Notification{}, err
	}

	if s.pusher != nil {
		unread, countErr := s.store.CountUnread(ctx, recipientUserID)
		if countErr != nil {
			unread = -1
		}
		s.pusher.PushNotification(ctx, recipientUserID, notification, unread)
	}
	return notification, nil
}

// ListInbox lists recipient inbox notifications newest first.
func (s *Service) ListInbox(ctx context.Context, input ListInboxInput) (NotificationPage, error) {
	if s == nil || s.store == nil {
		return NotificationPage{}, ErrStoreNotConfigured
	}
	recipientUserID := strings.TrimSpace(input.RecipientUserID)
	if recipientUserID == "" {
		return NotificationPage{}, ErrRecipientUserIDRequired
	}
	pageSize := input.PageSize
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return s.store.ListNotificationsByRecipient(ctx, recipientUserID, pageSize, strings.TrimSpace(input.PageToken))
}

// MarkRead acknowledges recipient notifications. An empty id set marks every
// unread notification read. Ids that are unknown, foreign, or already read
// are ignored, so a repeated call is a no-op, not an error. Any change pushes
// the refreshed unread summary to the recipient's live connection.
func (s *Service) MarkRead(ctx context.Context, input MarkReadInput) (int, error) {
	if s == nil || s.store == nil {
		return 0, ErrStoreNotConfigured
	}
	recipientUserID := strings.TrimSpace(input.RecipientUserID)
	if recipientUserID == "" {
		return 0, ErrRecipientUserIDRequired
	}

	ids := make([]string, 0, len(input.NotificationIDs))
	for _, notificationID := range input.NotificationIDs {
		if trimmed := strings.TrimSpace(notificationID); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}

	var changed int
	var err error
	if len(ids) == 0 {
		changed, err = s.store.MarkAllNotificationsRead(ctx, recipientUserID, s.nowUTC())
	} else {
		changed, err = s.store.MarkNotificationsRead(ctx, recipientUserID, ids, s.nowUTC())
	}
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.pushSummary(ctx, recipientUserID)
	}
	return changed, nil
}

// UnreadSummary returns the recipient's unread badge state and whether a live
// connection is currently attached.
func (s *Service) UnreadSummary(ctx context.Context, recipientUserID string) (Summary, error) {
	if s == nil || s.store == nil {
		return Summary{}, ErrStoreNotConfigured
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	if recipientUserID == "" {
		return Summary{}, ErrRecipientUserIDRequired
	}
	unread, err := s.store.CountUnread(ctx, recipientUserID)
	if err != nil {
		return Summary{}, err
	}
	connected := false
	if s.presence != nil {
		connected = s.presence.IsConnected(recipientUserID)
	}
	return Summary{
		RecipientUserID: recipientUserID,
		Unread:          unread,
		Connected:       connected,
	}, nil
}

func (s *Service) pushSummary(ctx context.Context, recipientUserID string) {
	if s.pusher == nil {
		return
	}
	unread, err := s.store.CountUnread(ctx, recipientUserID)
	if err != nil {
		return
	}
	s.pusher.PushSummary(ctx, recipientUserID, unread)
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
