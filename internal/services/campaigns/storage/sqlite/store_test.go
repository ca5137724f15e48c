package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/castmatch/castmatch/internal/services/campaigns/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "campaigns.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func seedCampaign(t *testing.T, store *Store, id string) domain.Campaign {
	t.Helper()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	campaign := domain.Campaign{
		ID:                id,
		OwnerUserID:       "owner-1",
		Title:             "Spring Launch",
		Approval:          domain.CampaignApprovalApproved,
		RecruitStartAt:    now.Add(-time.Hour),
		RecruitEndAt:      now.Add(time.Hour),
		MissionStartAt:    now.Add(time.Hour),
		MissionDeadlineAt: now.Add(48 * time.Hour),
		MaxApplicants:     5,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.PutCampaign(context.Background(), campaign); err != nil {
		t.Fatalf("seed campaign %s: %v", id, err)
	}
	return campaign
}

func seedApplication(t *testing.T, store *Store, id string, userID string, campaignID string, status domain.ApplicationStatus, createdAt time.Time) domain.Application {
	t.Helper()
	application := domain.Application{
		ID:         id,
		UserID:     userID,
		CampaignID: campaignID,
		Status:     status,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if err := store.CreateApplication(context.Background(), application); err != nil {
		t.Fatalf("seed application %s: %v", id, err)
	}
	return application
}

func seedSubmission(t *testing.T, store *Store, id string, applicationID string, submittedAt time.Time) domain.Submission {
	t.Helper()
	submission := domain.Submission{
		ID:            id,
		ApplicationID: applicationID,
		UserID:        "user-1",
		CampaignID:    "campaign-1",
		SubmissionURL: "https://example.com/v1",
		State:         domain.SubmissionStateSubmitted,
		SubmittedAt:   submittedAt,
	}
	if err := store.CreateSubmission(context.Background(), submission); err != nil {
		t.Fatalf("seed submission %s: %v", id, err)
	}
	return submission
}

func TestPutGetCampaign_RoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seeded := seedCampaign(t, store, "campaign-1")

	loaded, err := store.GetCampaign(context.Background(), "campaign-1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if loaded.OwnerUserID != seeded.OwnerUserID || loaded.Title != seeded.Title {
		t.Fatalf("unexpected campaign %+v", loaded)
	}
	if loaded.Approval != domain.CampaignApprovalApproved {
		t.Fatalf("expected approved campaign, got %s", loaded.Approval)
	}
	if !loaded.RecruitStartAt.Equal(seeded.RecruitStartAt) {
		t.Fatalf("expected recruit start %s, got %s", seeded.RecruitStartAt, loaded.RecruitStartAt)
	}
	if loaded.MaxApplicants != 5 {
		t.Fatalf("expected max applicants 5, got %d", loaded.MaxApplicants)
	}

	if _, err := store.GetCampaign(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing campaign, got %v", err)
	}
}

func TestCreateApplication_DuplicatePairConflicts(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedCampaign(t, store, "campaign-1")
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	seedApplication(t, store, "app-1", "user-1", "campaign-1", domain.ApplicationStatusPending, now)

	err := store.CreateApplication(context.Background(), domain.Application{
		ID:         "app-2",
		UserID:     "user-1",
		CampaignID: "campaign-1",
		Status:     domain.ApplicationStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate pair, got %v", err)
	}
}

func TestTransitionApplication_ConditionalOnStatus(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedCampaign(t, store, "campaign-1")
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	seedApplication(t, store, "app-1", "user-1", "campaign-1", domain.ApplicationStatusPending, now)

	decidedAt := now.Add(time.Hour)
	updated, err := store.TransitionApplication(context.Background(), "app-1", domain.ApplicationStatusPending, domain.ApplicationStatusApproved, decidedAt)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != domain.ApplicationStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
	if !updated.UpdatedAt.Equal(decidedAt) {
		t.Fatalf("expected updated at %s, got %s", decidedAt, updated.UpdatedAt)
	}

	// The second decision loses the conditional update.
	_, err = store.TransitionApplication(context.Background(), "app-1", domain.ApplicationStatusPending, domain.ApplicationStatusRejected, decidedAt)
	if !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch on second decision, got %v", err)
	}

	_, err = store.TransitionApplication(context.Background(), "missing", domain.ApplicationStatusPending, domain.ApplicationStatusApproved, decidedAt)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing application, got %v", err)
	}
}

func TestDeleteApplication_RespectsAllowedStatuses(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedCampaign(t, store, "campaign-1")
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	seedApplication(t, store, "app-1", "user-1", "campaign-1", domain.ApplicationStatusApproved, now)
	seedApplication(t, store, "app-2", "user-2", "campaign-1", domain.ApplicationStatusPending, now)

	err := store.DeleteApplication(context.Background(), "app-1", domain.ApplicationStatusPending, domain.ApplicationStatusRejected)
	if !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch for approved row, got %v", err)
	}

	if err := store.DeleteApplication(context.Background(), "app-2", domain.ApplicationStatusPending); err != nil {
		t.Fatalf("delete pending application: %v", err)
	}
	if _, err := store.GetApplication(context.Background(), "app-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected deleted application to be gone, got %v", err)
	}

	err = store.DeleteApplication(context.Background(), "app-2", domain.ApplicationStatusPending)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for repeated delete, got %v", err)
	}
}

func TestCountAndListApplications(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedCampaign(t, store, "campaign-1")
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	seedApplication(t, store, "app-1", "user-1", "campaign-1", domain.ApplicationStatusPending, base)
	seedApplication(t, store, "app-2", "user-2", "campaign-1", domain.ApplicationStatusApproved, base.Add(time.Minute))
	seedApplication(t, store, "app-3", "user-3", "campaign-1", domain.ApplicationStatusRejected, base.Add(2*time.Minute))

	count, err := store.CountApplicationsByCampaign(context.Background(), "campaign-1",
		domain.ApplicationStatusPending, domain.ApplicationStatusApproved)
	if err != nil {
		t.Fatalf("count applications: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two pending/approved applications, got %d", count)
	}

	byCampaign, err := store.ListApplicationsByCampaign(context.Background(), "campaign-1")
	if err != nil {
		t.Fatalf("list by campaign: %v", err)
	}
	if len(byCampaign) != 3 || byCampaign[0].ID != "app-1" {
		t.Fatalf("expected oldest-first campaign listing, got %+v", byCampaign)
	}

	byUser, err := store.ListApplicationsByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 1 || byUser[0].ID != "app-1" {
		t.Fatalf("unexpected user listing %+v", byUser)
	}
}

func TestCreateSubmission_OnePerApplication(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedCampaign(t, store, "campaign-1")
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	seedApplication(t, store, "app-1", "user-1", "campaign-1", domain.ApplicationStatusApproved, now)
	seedSubmission(t, store, "sub-1", "app-1", now)

	err := store.CreateSubmission(context.Background(), domain.Submission{
		ID:            "sub-2",
		ApplicationID: "app-1",
		UserID:        "user-1",
		CampaignID:    "campaign-1",
		SubmissionURL: "https://example.com/other",
		State:         domain.SubmissionStateSubmitted,
		SubmittedAt:   now,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for second submission, got %v", err)
	}
}

func TestSubmissionReviewLifecycle(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "campaign-1")
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	seedApplication(t, store, "app-1", "user-1", "campaign-1", domain.ApplicationStatusApproved, now)
	seedSubmission(t, store, "sub-1", "app-1", now)

	// Send it back for changes; the revision lands in the same transaction.
	requestedAt := now.Add(time.Hour)
	revised, err := store.RequestRevision(ctx, "sub-1", domain.Revision{
		ID:           "rev-1",
		SubmissionID: "sub-1",
		Reason:       "needs captions",
		RequestedAt:  requestedAt,
	})
	if err != nil {
		t.Fatalf("request revision: %v", err)
	}
	if revised.State != domain.SubmissionStateRevisionRequested {
		t.Fatalf("expected revision_requested, got %s", revised.State)
	}
	if len(revised.Revisions) != 1 || revised.Revisions[0].Reason != "needs captions" {
		t.Fatalf("expected recorded revision, got %+v", revised.Revisions)
	}

	// A second revision request loses the conditional update.
	_, err = store.RequestRevision(ctx, "sub-1", domain.Revision{
		ID:           "rev-2",
		SubmissionID: "sub-1",
		Reason:       "still wrong",
		RequestedAt:  requestedAt.Add(time.Minute),
	})
	if !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch on repeated revision request, got %v", err)
	}

	// Resubmit returns it to the review queue with the replacement URL.
	resubmittedAt := requestedAt.Add(2 * time.Hour)
	resubmitted, err := store.ResubmitSubmission(ctx, "sub-1", "https://example.com/v2", resubmittedAt)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if resubmitted.State != domain.SubmissionStateSubmitted {
		t.Fatalf("expected submitted state after resubmit, got %s", resubmitted.State)
	}
	if resubmitted.SubmissionURL != "https://example.com/v2" {
		t.Fatalf("expected replaced url, got %q", resubmitted.SubmissionURL)
	}
	if resubmitted.ReviewedAt != nil {
		t.Fatal("expected reviewed_at to reset on resubmit")
	}
	if len(resubmitted.Revisions) != 1 {
		t.Fatalf("expected revision trail to survive resubmit, got %d entries", len(resubmitted.Revisions))
	}

	// Accept it.
	reviewedAt := resubmittedAt.Add(time.Hour)
	completed, err := store.CompleteSubmission(ctx, "sub-1", "great work", reviewedAt)
	if err != nil {
		t.Fatalf("complete submission: %v", err)
	}
	if completed.State != domain.SubmissionStateCompleted {
		t.Fatalf("expected completed state, got %s", completed.State)
	}
	if completed.Feedback != "great work" {
		t.Fatalf("expected stored feedback, got %q", completed.Feedback)
	}
	if completed.ReviewedAt == nil || !completed.ReviewedAt.Equal(reviewedAt) {
		t.Fatalf("expected reviewed at %s, got %v", reviewedAt, completed.ReviewedAt)
	}

	// Every conditional write on a completed submission reports the mismatch.
	if _, err := store.CompleteSubmission(ctx, "sub-1", "again", reviewedAt); !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch for completed submission, got %v", err)
	}
	if _, err := store.ResubmitSubmission(ctx, "sub-1", "https://example.com/v3", reviewedAt); !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch on resubmit after completion, got %v", err)
	}
}

func TestListSubmissions_NewestFirstWithRevisions(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	seedCampaign(t, store, "campaign-1")
	seedCampaign(t, store, "campaign-2")
	base := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	seedApplication(t, store, "app-1", "user-1", "campaign-1", domain.ApplicationStatusApproved, base)
	seedApplication(t, store, "app-2", "user-1", "campaign-2", domain.ApplicationStatusApproved, base)
	seedSubmission(t, store, "sub-1", "app-1", base)
	older := domain.Submission{
		ID:            "sub-2",
		ApplicationID: "app-2",
		UserID:        "user-1",
		CampaignID:    "campaign-2",
		SubmissionURL: "https://example.com/other",
		State:         domain.SubmissionStateSubmitted,
		SubmittedAt:   base.Add(-time.Hour),
	}
	if err := store.CreateSubmission(ctx, older); err != nil {
		t.Fatalf("seed older submission: %v", err)
	}
	if _, err := store.RequestRevision(ctx, "sub-1", domain.Revision{
		ID:           "rev-1",
		SubmissionID: "sub-1",
		Reason:       "needs captions",
		RequestedAt:  base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("request revision: %v", err)
	}

	byUser, err := store.ListSubmissionsByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 2 || byUser[0].ID != "sub-1" || byUser[1].ID != "sub-2" {
		t.Fatalf("expected newest-first user listing, got %+v", byUser)
	}
	if len(byUser[0].Revisions) != 1 {
		t.Fatalf("expected revision trail on listed submission, got %d entries", len(byUser[0].Revisions))
	}

	byCampaign, err := store.ListSubmissionsByCampaign(ctx, "campaign-1")
	if err != nil {
		t.Fatalf("list by campaign: %v", err)
	}
	if len(byCampaign) != 1 || byCampaign[0].ID != "sub-1" {
		t.Fatalf("unexpected campaign listing %+v", byCampaign)
	}
}
