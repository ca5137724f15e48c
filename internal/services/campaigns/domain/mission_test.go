package domain

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/castmatch/castmatch/internal/platform/errors"
	notifications "github.com/castmatch/castmatch/internal/services/notifications/domain"
)

type fakeSubmissionStore struct {
	submissions map[string]Submission
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{submissions: make(map[string]Submission)}
}

func (s *fakeSubmissionStore) CreateSubmission(_ context.Context, submission Submission) error {
	for _, existing := range s.submissions {
		if existing.ApplicationID == submission.ApplicationID {
			return ErrConflict
		}
	}
	s.submissions[submission.ID] = submission
	return nil
}

func (s *fakeSubmissionStore) GetSubmission(_ context.Context, submissionID string) (Submission, error) {
	submission, ok := s.submissions[submissionID]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return submission, nil
}

func (s *fakeSubmissionStore) GetSubmissionByApplication(_ context.Context, applicationID string) (Submission, error) {
	for _, submission := range s.submissions {
		if submission.ApplicationID == applicationID {
			return submission, nil
		}
	}
	return Submission{}, ErrNotFound
}

func (s *fakeSubmissionStore) ResubmitSubmission(_ context.Context, submissionID string, submissionURL string, submittedAt time.Time) (Submission, error) {
	submission, ok := s.submissions[submissionID]
	if !ok {
		return Submission{}, ErrNotFound
	}
	if submission.State != SubmissionStateRevisionRequested {
		return Submission{}, ErrStateMismatch
	}
	submission.SubmissionURL = submissionURL
	submission.State = SubmissionStateSubmitted
	submission.Feedback = ""
	submission.SubmittedAt = submittedAt
	submission.ReviewedAt = nil
	s.submissions[submissionID] = submission
	return submission, nil
}

func (s *fakeSubmissionStore) CompleteSubmission(_ context.Context, submissionID string, feedback string, reviewedAt time.Time) (Submission, error) {
	submission, ok := s.submissions[submissionID]
	if !ok {
		return Submission{}, ErrNotFound
	}
	if submission.State != SubmissionStateSubmitted {
		return Submission{}, ErrStateMismatch
	}
	submission.State = SubmissionStateCompleted
	submission.Feedback = feedback
	submission.ReviewedAt = &reviewedAt
	s.submissions[submissionID] = submission
	return submission, nil
}

func (s *fakeSubmissionStore) RequestRevision(_ context.Context, submissionID string, revision Revision) (Submission, error) {
	submission, ok := s.submissions[submissionID]
	if !ok {
		return Submission{}, ErrNotFound
	}
	if submission.State != SubmissionStateSubmitted {
		return Submission{}, ErrStateMismatch
	}
	submission.State = SubmissionStateRevisionRequested
	submission.Revisions = append(submission.Revisions, revision)
	s.submissions[submissionID] = submission
	return submission, nil
}

func (s *fakeSubmissionStore) ListSubmissionsByUser(_ context.Context, userID string) ([]Submission, error) {
	var out []Submission
	for _, submission := range s.submissions {
		if submission.UserID == userID {
			out = append(out, submission)
		}
	}
	return out, nil
}

func (s *fakeSubmissionStore) ListSubmissionsByCampaign(_ context.Context, campaignID string) ([]Submission, error) {
	var out []Submission
	for _, submission := range s.submissions {
		if submission.CampaignID == campaignID {
			out = append(out, submission)
		}
	}
	return out, nil
}

// missionFixture wires a mission service around one approved application on
// one live campaign.
type missionFixture struct {
	svc          *MissionService
	applications *fakeApplicationStore
	submissions  *fakeSubmissionStore
	notifier     *fakeNotifier
	now          time.Time
}

func newMissionFixture(t *testing.T, ids ...string) missionFixture {
	t.Helper()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	campaign := approvedCampaign("campaign-1", "owner-1", now)
	applications := newFakeApplicationStore()
	applications.applications["app-1"] = Application{
		ID:         "app-1",
		UserID:     "user-1",
		CampaignID: "campaign-1",
		Status:     ApplicationStatusApproved,
	}
	submissions := newFakeSubmissionStore()
	notifier := &fakeNotifier{}
	svc := NewMissionService(applications, submissions, newFakeDirectory(campaign), notifier, fixedClock(now), sequentialIDGenerator(ids...))
	return missionFixture{
		svc:          svc,
		applications: applications,
		submissions:  submissions,
		notifier:     notifier,
		now:          now,
	}
}

func TestSubmit_CreatesSubmissionAndNotifiesOwner(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")

	submission, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submission.ID != "sub-1" {
		t.Fatalf("expected generated id sub-1, got %q", submission.ID)
	}
	if submission.State != SubmissionStateSubmitted {
		t.Fatalf("expected submitted state, got %s", submission.State)
	}
	if !submission.SubmittedAt.Equal(fx.now) {
		t.Fatalf("expected submitted at %s, got %s", fx.now, submission.SubmittedAt)
	}
	if len(fx.notifier.dispatched) != 1 {
		t.Fatalf("expected one notification, got %d", len(fx.notifier.dispatched))
	}
	dispatched := fx.notifier.dispatched[0]
	if dispatched.RecipientUserID != "owner-1" {
		t.Fatalf("expected owner-1 to be notified, got %q", dispatched.RecipientUserID)
	}
	if dispatched.MessageType != notifications.MessageTypeMissionSubmitted {
		t.Fatalf("unexpected message type %s", dispatched.MessageType)
	}
	if dispatched.RelatedEntityID != "sub-1" || dispatched.RelatedEntityType != RelatedEntitySubmission {
		t.Fatalf("unexpected related entity %s/%s", dispatched.RelatedEntityType, dispatched.RelatedEntityID)
	}
}

func TestSubmit_RejectsInvalidURL(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")

	for _, raw := range []string{"", "   ", "ftp://example.com/x", "not a url", "/relative/path"} {
		_, err := fx.svc.Submit(context.Background(), "app-1", "user-1", raw)
		assertCode(t, err, apperrors.CodeSubmissionInvalid)
	}
}

func TestSubmit_RequiresApprovedApplication(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")
	application := fx.applications.applications["app-1"]
	application.Status = ApplicationStatusPending
	fx.applications.applications["app-1"] = application

	_, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video")
	assertCode(t, err, apperrors.CodeAccessDenied)
}

func TestSubmit_RejectsForeignApplication(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")

	_, err := fx.svc.Submit(context.Background(), "app-1", "user-2", "https://example.com/video")
	assertCode(t, err, apperrors.CodeAccessDenied)
}

func TestSubmit_RejectsClosedMissionWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	campaign := approvedCampaign("campaign-1", "owner-1", now)
	campaign.MissionDeadlineAt = now.Add(-time.Minute)
	applications := newFakeApplicationStore()
	applications.applications["app-1"] = Application{ID: "app-1", UserID: "user-1", CampaignID: "campaign-1", Status: ApplicationStatusApproved}
	svc := NewMissionService(applications, newFakeSubmissionStore(), newFakeDirectory(campaign), nil, fixedClock(now), nil)

	_, err := svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video")
	assertCode(t, err, apperrors.CodeInvalidSubmissionPeriod)
}

func TestSubmit_WhileAwaitingReviewReportsInvalidState(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")
	if _, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video"); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video-2")
	assertCode(t, err, apperrors.CodeInvalidState)
}

func TestReview_BlankReasonCompletesAndNotifies(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")
	if _, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewed, err := fx.svc.Review(context.Background(), "sub-1", "owner-1", "great work", "")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.State != SubmissionStateCompleted {
		t.Fatalf("expected completed state, got %s", reviewed.State)
	}
	if reviewed.Feedback != "great work" {
		t.Fatalf("expected feedback to be stored, got %q", reviewed.Feedback)
	}
	if reviewed.ReviewedAt == nil || !reviewed.ReviewedAt.Equal(fx.now) {
		t.Fatalf("expected reviewed at %s, got %v", fx.now, reviewed.ReviewedAt)
	}

	last := fx.notifier.dispatched[len(fx.notifier.dispatched)-1]
	if last.RecipientUserID != "user-1" {
		t.Fatalf("expected applicant to be notified, got %q", last.RecipientUserID)
	}
	if last.MessageType != notifications.MessageTypeMissionApproved {
		t.Fatalf("unexpected message type %s", last.MessageType)
	}
}

func TestReview_ReasonRequestsRevisionAndNotifies(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1", "rev-1")
	if _, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewed, err := fx.svc.Review(context.Background(), "sub-1", "owner-1", "", "wrong aspect ratio")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.State != SubmissionStateRevisionRequested {
		t.Fatalf("expected revision_requested state, got %s", reviewed.State)
	}
	if len(reviewed.Revisions) != 1 {
		t.Fatalf("expected one recorded revision, got %d", len(reviewed.Revisions))
	}
	revision := reviewed.Revisions[0]
	if revision.ID != "rev-1" || revision.Reason != "wrong aspect ratio" {
		t.Fatalf("unexpected revision %+v", revision)
	}

	last := fx.notifier.dispatched[len(fx.notifier.dispatched)-1]
	if last.MessageType != notifications.MessageTypeMissionRevisionRequested {
		t.Fatalf("unexpected message type %s", last.MessageType)
	}
	if last.Payload["reason"] != "wrong aspect ratio" {
		t.Fatalf("expected reason in payload, got %q", last.Payload["reason"])
	}
}

func TestResubmit_AfterRevisionReturnsToReviewQueue(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1", "rev-1")
	if _, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/v1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := fx.svc.Review(context.Background(), "sub-1", "owner-1", "", "needs captions"); err != nil {
		t.Fatalf("request revision: %v", err)
	}

	resubmitted, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/v2")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if resubmitted.ID != "sub-1" {
		t.Fatalf("expected resubmit to reuse submission sub-1, got %q", resubmitted.ID)
	}
	if resubmitted.State != SubmissionStateSubmitted {
		t.Fatalf("expected submitted state after resubmit, got %s", resubmitted.State)
	}
	if resubmitted.SubmissionURL != "https://example.com/v2" {
		t.Fatalf("expected replaced url, got %q", resubmitted.SubmissionURL)
	}
	if resubmitted.ReviewedAt != nil {
		t.Fatal("expected reviewed at to reset on resubmit")
	}

	last := fx.notifier.dispatched[len(fx.notifier.dispatched)-1]
	if last.MessageType != notifications.MessageTypeMissionSubmitted {
		t.Fatalf("expected resubmit to notify the owner, got %s", last.MessageType)
	}
}

func TestReview_CompletedSubmissionReportsInvalidState(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")
	if _, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := fx.svc.Review(context.Background(), "sub-1", "owner-1", "done", ""); err != nil {
		t.Fatalf("first review: %v", err)
	}

	_, err := fx.svc.Review(context.Background(), "sub-1", "owner-1", "again", "")
	assertCode(t, err, apperrors.CodeInvalidState)
}

func TestReview_OnlyOwnerReviews(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")
	if _, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := fx.svc.Review(context.Background(), "sub-1", "user-1", "", "")
	assertCode(t, err, apperrors.CodeAccessDenied)
}

func TestHistoryForCampaign_OwnerOnly(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")
	if _, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	history, err := fx.svc.HistoryForCampaign(context.Background(), "campaign-1", "owner-1")
	if err != nil {
		t.Fatalf("owner history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one submission, got %d", len(history))
	}

	_, err = fx.svc.HistoryForCampaign(context.Background(), "campaign-1", "user-1")
	assertCode(t, err, apperrors.CodeAccessDenied)
}

func TestHistoryFor_ListsOwnSubmissions(t *testing.T) {
	t.Parallel()

	fx := newMissionFixture(t, "sub-1")
	if _, err := fx.svc.Submit(context.Background(), "app-1", "user-1", "https://example.com/video"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	history, err := fx.svc.HistoryFor(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one submission, got %d", len(history))
	}
}
