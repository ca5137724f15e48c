package stream

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/castmatch/castmatch/internal/services/notifications/domain"
)

type notificationEnvelope struct {
	Notification notificationPayload `json:"notification"`
	Unread       int                 `json:"unread,omitempty"`
}

type notificationPayload struct {
	ID                string `json:"id"`
	MessageType       string `json:"message_type"`
	Title             string `json:"title"`
	Body              string `json:"body"`
	RelatedEntityID   string `json:"related_entity_id,omitempty"`
	RelatedEntityType string `json:"related_entity_type,omitempty"`
	CreatedAt         string `json:"created_at"`
	Read              bool   `json:"read"`
}

type summaryPayload struct {
	Unread int `json:"unread"`
}

// PushNotification delivers one freshly dispatched notification to the
// recipient's live connection, if any. Implements the domain pusher contract;
// the notification is already durable, so delivery here is best effort.
func (r *Registry) PushNotification(_ context.Context, recipientUserID string, notification domain.Notification, unread int) {
	envelope := notificationEnvelope{
		Notification: toNotificationPayload(notification),
	}
	if unread >= 0 {
		envelope.Unread = unread
	}
	r.TryDeliver(recipientUserID, Frame{
		Type:    FrameTypeNotification,
		Payload: mustJSON(envelope),
	})
}

// PushSummary delivers the recipient's refreshed unread badge to their live
// connection, if any.
func (r *Registry) PushSummary(_ context.Context, recipientUserID string, unread int) {
	r.TryDeliver(recipientUserID, Frame{
		Type:    FrameTypeSummary,
		Payload: mustJSON(summaryPayload{Unread: unread}),
	})
}

func toNotificationPayload(notification domain.Notification) notificationPayload {
	return notificationPayload{
		ID:                notification.ID,
		MessageType:       string(notification.MessageType),
		Title:             notification.Title,
		Body:              notification.Body,
		RelatedEntityID:   notification.RelatedEntityID,
		RelatedEntityType: notification.RelatedEntityType,
		CreatedAt:         notification.CreatedAt.UTC().Format(time.RFC3339),
		Read:              notification.Read(),
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("stream: failed to marshal frame payload: %v", err)
		return nil
	}
	return b
}
