package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "notification.generic.title", defaultGenericTitle)
	message.SetString(lang, "notification.generic.body", defaultGenericBody)
	message.SetString(lang, "notification.application_approved.title", "Application approved")
	message.SetString(lang, "notification.application_approved.body", "Your application to %s was approved. Time to get to work!")
	message.SetString(lang, "notification.application_rejected.title", "Application update")
	message.SetString(lang, "notification.application_rejected.body", "Your application to %s was not selected this time.")
	message.SetString(lang, "notification.mission_submitted.title", "New mission submission")
	message.SetString(lang, "notification.mission_submitted.body", "A deliverable for %s is waiting for your review.")
	message.SetString(lang, "notification.mission_revision_requested.title", "Revision requested")
	message.SetString(lang, "notification.mission_revision_requested.body", "Your deliverable for %s needs changes: %s")
	message.SetString(lang, "notification.mission_revision_requested.body_no_reason", "Your deliverable for %s needs changes.")
	message.SetString(lang, "notification.mission_approved.title", "Mission complete")
	message.SetString(lang, "notification.mission_approved.body", "Your deliverable for %s was accepted. Nice work!")
}
