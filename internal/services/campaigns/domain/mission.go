package domain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/castmatch/castmatch/internal/platform/errors"
	"github.com/castmatch/castmatch/internal/platform/id"
	notifications "github.com/castmatch/castmatch/internal/services/notifications/domain"
)

// SubmissionState is the lifecycle state of a mission deliverable.
type SubmissionState string

const (
	// SubmissionStateSubmitted means the deliverable awaits the owner's review.
	SubmissionStateSubmitted SubmissionState = "submitted"
	// SubmissionStateRevisionRequested means the owner sent it back for changes.
	SubmissionStateRevisionRequested SubmissionState = "revision_requested"
	// SubmissionStateCompleted means the owner accepted the deliverable.
	SubmissionStateCompleted SubmissionState = "completed"
)

// Submission is the mission deliverable for one approved application. At most
// one exists per application; resubmission after a revision request updates
// the same row.
type Submission struct {
	ID            string
	ApplicationID string
	UserID        string
	CampaignID    string
	SubmissionURL string
	State         SubmissionState
	Feedback      string
	SubmittedAt   time.Time
	ReviewedAt    *time.Time
	Revisions     []Revision
}

// Revision is one revision request recorded against a submission. Revisions
// are append-only so the back-and-forth stays auditable.
type Revision struct {
	ID           string
	SubmissionID string
	Reason       string
	RequestedAt  time.Time
}

// MissionService orchestrates the mission deliverable lifecycle:
// submit, resubmit after revision, and the owner's review decision.
type MissionService struct {
	applications ApplicationStore
	submissions  SubmissionStore
	directory    CampaignDirectory
	notifier     Notifier
	clock        func() time.Time
	newID        func() (string, error)
}

// NewMissionService constructs mission lifecycle use-cases. The notifier may
// be nil; reviews then commit without notifying.
func NewMissionService(applications ApplicationStore, submissions SubmissionStore, directory CampaignDirectory, notifier Notifier, clock func() time.Time, newID func() (string, error)) *MissionService {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &MissionService{
		applications: applications,
		submissions:  submissions,
		directory:    directory,
		notifier:     notifier,
		clock:        clock,
		newID:        newID,
	}
}

// Submit records the deliverable for callerID's approved application. A first
// submit creates the row; a submit while a revision is pending replaces the
// URL and returns the submission to the review queue. Submitting while a
// review is pending, or after completion, reports INVALID_STATE.
func (s *MissionService) Submit(ctx context.Context, applicationID string, callerID string, submissionURL string) (Submission, error) {
	if s == nil || s.applications == nil || s.submissions == nil {
		return Submission{}, ErrStoreNotConfigured
	}
	if s.directory == nil {
		return Submission{}, ErrDirectoryNotConfigured
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return Submission{}, apperrors.New(apperrors.CodeSubmissionInvalid, "application id is required")
	}
	submissionURL, err := normalizeSubmissionURL(submissionURL)
	if err != nil {
		return Submission{}, err
	}

	application, err := s.applications.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Submission{}, apperrors.New(apperrors.CodeNotFound, "application not found")
		}
		return Submission{}, fmt.Errorf("load application: %w", err)
	}
	if application.UserID != strings.TrimSpace(callerID) {
		return Submission{}, apperrors.New(apperrors.CodeAccessDenied, "application belongs to another user")
	}
	if application.Status != ApplicationStatusApproved {
		return Submission{}, apperrors.New(apperrors.CodeAccessDenied, "only approved applicants submit missions")
	}
	campaign, err := s.directory.GetCampaign(ctx, application.CampaignID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Submission{}, apperrors.New(apperrors.CodeNotFound, "campaign not found")
		}
		return Submission{}, fmt.Errorf("load campaign: %w", err)
	}
	now := s.nowUTC()
	if !campaign.MissionOpen(now) {
		return Submission{}, apperrors.New(apperrors.CodeInvalidSubmissionPeriod, "campaign mission window is closed")
	}

	existing, err := s.submissions.GetSubmissionByApplication(ctx, applicationID)
	switch {
	case err == nil:
		submission, err := s.resubmit(ctx, existing, submissionURL, now)
		if err != nil {
			return Submission{}, err
		}
		return submission, s.notifySubmitted(ctx, campaign, submission)
	case errors.Is(err, ErrNotFound):
		// First submission for this application.
	default:
		return Submission{}, fmt.Errorf("load submission: %w", err)
	}

	submissionID, err := s.newID()
	if err != nil {
		return Submission{}, err
	}
	submission := Submission{
		ID:            submissionID,
		ApplicationID: applicationID,
		UserID:        application.UserID,
		CampaignID:    application.CampaignID,
		SubmissionURL: submissionURL,
		State:         SubmissionStateSubmitted,
		SubmittedAt:   now,
	}
	if err := s.submissions.CreateSubmission(ctx, submission); err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost a race with another submit for the same application.
			return Submission{}, apperrors.New(apperrors.CodeInvalidState, "submission already exists for this application")
		}
		return Submission{}, fmt.Errorf("create submission: %w", err)
	}
	return submission, s.notifySubmitted(ctx, campaign, submission)
}

// Review records the owner's decision on a submitted deliverable. A blank
// revisionReason accepts it and completes the mission; a non-blank reason
// appends a revision request and sends it back. Reviewing a completed or
// already-decided submission reports INVALID_STATE.
func (s *MissionService) Review(ctx context.Context, submissionID string, callerID string, feedback string, revisionReason string) (Submission, error) {
	if s == nil || s.applications == nil || s.submissions == nil {
		return Submission{}, ErrStoreNotConfigured
	}
	if s.directory == nil {
		return Submission{}, ErrDirectoryNotConfigured
	}
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return Submission{}, apperrors.New(apperrors.CodeSubmissionInvalid, "submission id is required")
	}

	submission, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Submission{}, apperrors.New(apperrors.CodeNotFound, "submission not found")
		}
		return Submission{}, fmt.Errorf("load submission: %w", err)
	}
	campaign, err := s.directory.GetCampaign(ctx, submission.CampaignID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Submission{}, apperrors.New(apperrors.CodeNotFound, "campaign not found")
		}
		return Submission{}, fmt.Errorf("load campaign: %w", err)
	}
	if campaign.OwnerUserID != strings.TrimSpace(callerID) {
		return Submission{}, apperrors.New(apperrors.CodeAccessDenied, "only the campaign owner reviews submissions")
	}
	if submission.State == SubmissionStateCompleted {
		return Submission{}, apperrors.New(apperrors.CodeInvalidState, "submission is already completed")
	}

	now := s.nowUTC()
	revisionReason = strings.TrimSpace(revisionReason)

	var updated Submission
	var messageType notifications.MessageType
	payload := map[string]string{"campaign_title": campaign.Title}
	if revisionReason == "" {
		updated, err = s.submissions.CompleteSubmission(ctx, submissionID, strings.TrimSpace(feedback), now)
		messageType = notifications.MessageTypeMissionApproved
	} else {
		revisionID, idErr := s.newID()
		if idErr != nil {
			return Submission{}, idErr
		}
		updated, err = s.submissions.RequestRevision(ctx, submissionID, Revision{
			ID:           revisionID,
			SubmissionID: submissionID,
			Reason:       revisionReason,
			RequestedAt:  now,
		})
		messageType = notifications.MessageTypeMissionRevisionRequested
		payload["reason"] = revisionReason
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return Submission{}, apperrors.New(apperrors.CodeNotFound, "submission not found")
	case errors.Is(err, ErrStateMismatch):
		return Submission{}, apperrors.New(apperrors.CodeInvalidState, "submission is not awaiting review")
	default:
		return Submission{}, fmt.Errorf("review submission: %w", err)
	}

	if s.notifier != nil {
		_, err := s.notifier.Dispatch(ctx, notifications.DispatchInput{
			RecipientUserID:   updated.UserID,
			MessageType:       messageType,
			RelatedEntityID:   updated.ID,
			RelatedEntityType: RelatedEntitySubmission,
			Payload:           payload,
		})
		if err != nil {
			return updated, fmt.Errorf("dispatch review notification: %w", err)
		}
	}
	return updated, nil
}

// HistoryFor lists the caller's own submissions with their revision trail.
func (s *MissionService) HistoryFor(ctx context.Context, userID string) ([]Submission, error) {
	if s == nil || s.submissions == nil {
		return nil, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.New(apperrors.CodeSubmissionInvalid, "user id is required")
	}
	return s.submissions.ListSubmissionsByUser(ctx, userID)
}

// HistoryForCampaign lists a campaign's submissions for its owner.
func (s *MissionService) HistoryForCampaign(ctx context.Context, campaignID string, callerID string) ([]Submission, error) {
	if s == nil || s.submissions == nil {
		return nil, ErrStoreNotConfigured
	}
	if s.directory == nil {
		return nil, ErrDirectoryNotConfigured
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, apperrors.New(apperrors.CodeSubmissionInvalid, "campaign id is required")
	}
	campaign, err := s.directory.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "campaign not found")
		}
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if campaign.OwnerUserID != strings.TrimSpace(callerID) {
		return nil, apperrors.New(apperrors.CodeAccessDenied, "only the campaign owner lists submissions")
	}
	return s.submissions.ListSubmissionsByCampaign(ctx, campaignID)
}

func (s *MissionService) resubmit(ctx context.Context, existing Submission, submissionURL string, now time.Time) (Submission, error) {
	switch existing.State {
	case SubmissionStateRevisionRequested:
	case SubmissionStateCompleted:
		return Submission{}, apperrors.New(apperrors.CodeInvalidState, "submission is already completed")
	default:
		return Submission{}, apperrors.New(apperrors.CodeInvalidState, "submission is awaiting review")
	}
	updated, err := s.submissions.ResubmitSubmission(ctx, existing.ID, submissionURL, now)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, ErrNotFound):
		return Submission{}, apperrors.New(apperrors.CodeNotFound, "submission not found")
	case errors.Is(err, ErrStateMismatch):
		return Submission{}, apperrors.New(apperrors.CodeInvalidState, "submission is not awaiting revision")
	default:
		return Submission{}, fmt.Errorf("resubmit submission: %w", err)
	}
}

func (s *MissionService) notifySubmitted(ctx context.Context, campaign Campaign, submission Submission) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.Dispatch(ctx, notifications.DispatchInput{
		RecipientUserID:   campaign.OwnerUserID,
		MessageType:       notifications.MessageTypeMissionSubmitted,
		RelatedEntityID:   submission.ID,
		RelatedEntityType: RelatedEntitySubmission,
		Payload:           map[string]string{"campaign_title": campaign.Title},
	})
	if err != nil {
		return fmt.Errorf("dispatch submission notification: %w", err)
	}
	return nil
}

func normalizeSubmissionURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperrors.New(apperrors.CodeSubmissionInvalid, "submission url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", apperrors.New(apperrors.CodeSubmissionInvalid, "submission url must be an absolute http(s) url")
	}
	return raw, nil
}

func (s *MissionService) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
