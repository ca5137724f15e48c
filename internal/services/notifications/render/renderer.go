// Package render produces localized notification copy. Copy is rendered once
// at dispatch time and persisted with the notification.
package render

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/castmatch/castmatch/internal/services/notifications/domain"
)

const (
	defaultGenericTitle = "Notification"
	defaultGenericBody  = "You have a new notification."
	defaultCampaignName = "a campaign"
)

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Renderer turns message types plus payload variables into localized copy.
type Renderer struct {
	loc Localizer
}

// New constructs a renderer for one locale.
func New(tag language.Tag) *Renderer {
	return &Renderer{loc: message.NewPrinter(tag)}
}

// NewWithLocalizer constructs a renderer over a caller-provided localizer.
func NewWithLocalizer(loc Localizer) *Renderer {
	return &Renderer{loc: loc}
}

// Render returns localized title and body copy for one notification.
// Unrecognized message types fall back to generic copy rather than failing,
// so a stale producer never blocks dispatch.
func (r *Renderer) Render(messageType domain.MessageType, payload map[string]string) (string, string, error) {
	var loc Localizer
	if r != nil {
		loc = r.loc
	}
	campaignTitle := payloadValue(payload, "campaign_title", defaultCampaignName)

	switch messageType {
	case domain.MessageTypeApplicationApproved:
		return r.pair(loc, "notification.application_approved", campaignTitle)
	case domain.MessageTypeApplicationRejected:
		return r.pair(loc, "notification.application_rejected", campaignTitle)
	case domain.MessageTypeMissionSubmitted:
		return r.pair(loc, "notification.mission_submitted", campaignTitle)
	case domain.MessageTypeMissionRevisionRequested:
		title := localizeWithFallback(loc, "notification.mission_revision_requested.title", defaultGenericTitle)
		reason := payloadValue(payload, "reason", "")
		bodyKey := "notification.mission_revision_requested.body"
		if reason == "" {
			bodyKey = "notification.mission_revision_requested.body_no_reason"
			return title, localizeWithFallback(loc, bodyKey, defaultGenericBody, campaignTitle), nil
		}
		return title, localizeWithFallback(loc, bodyKey, defaultGenericBody, campaignTitle, reason), nil
	case domain.MessageTypeMissionApproved:
		return r.pair(loc, "notification.mission_approved", campaignTitle)
	default:
		title := localizeWithFallback(loc, "notification.generic.title", defaultGenericTitle)
		body := localizeWithFallback(loc, "notification.generic.body", defaultGenericBody)
		return title, body, nil
	}
}

// pair renders a title/body key pair. Titles carry no variables; the body
// args interpolate into the body template only.
func (r *Renderer) pair(loc Localizer, prefix string, bodyArgs ...any) (string, string, error) {
	title := localizeWithFallback(loc, prefix+".title", defaultGenericTitle)
	body := localizeWithFallback(loc, prefix+".body", defaultGenericBody, bodyArgs...)
	return title, body, nil
}

func payloadValue(payload map[string]string, key string, fallback string) string {
	value := strings.TrimSpace(payload[key])
	if value == "" {
		return fallback
	}
	return value
}

func localize(loc Localizer, key message.Reference, args ...any) string {
	if loc == nil {
		if asString, ok := key.(string); ok {
			return asString
		}
		return ""
	}
	return loc.Sprintf(key, args...)
}

func localizeWithFallback(loc Localizer, key string, fallback string, args ...any) string {
	value := strings.TrimSpace(localize(loc, key, args...))
	if value == "" || value == key {
		return fallback
	}
	return value
}
