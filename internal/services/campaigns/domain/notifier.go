package domain

import (
	"context"

	notifications "github.com/castmatch/castmatch/internal/services/notifications/domain"
)

// Related entity vocabulary for lifecycle notifications.
const (
	RelatedEntityCampaign   = "campaign"
	RelatedEntitySubmission = "submission"
)

// Notifier delivers lifecycle notifications. A dispatch failure propagates to
// the caller so the producing transition surfaces it instead of dropping the
// notification silently.
type Notifier interface {
	Dispatch(ctx context.Context, input notifications.DispatchInput) (notifications.Notification, error)
}
