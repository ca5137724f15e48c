package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested row is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write conflicted with a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrStateMismatch indicates a conditional transition found the row in a
	// different lifecycle state than required.
	ErrStateMismatch = errors.New("record state mismatch")
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("campaign store is not configured")
	// ErrDirectoryNotConfigured indicates the campaign read model is missing.
	ErrDirectoryNotConfigured = errors.New("campaign directory is not configured")
)

// CampaignStore persists campaign read-model rows.
type CampaignStore interface {
	PutCampaign(ctx context.Context, campaign Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (Campaign, error)
}

// ApplicationStore persists campaign application lifecycle state.
//
// TransitionApplication and DeleteApplication are conditional on the current
// status so two racing writers cannot both succeed; the loser observes
// ErrStateMismatch (row present in another state) or ErrNotFound (row gone).
type ApplicationStore interface {
	CreateApplication(ctx context.Context, application Application) error
	GetApplication(ctx context.Context, applicationID string) (Application, error)
	GetApplicationByUserAndCampaign(ctx context.Context, userID string, campaignID string) (Application, error)
	DeleteApplication(ctx context.Context, applicationID string, allowed ...ApplicationStatus) error
	TransitionApplication(ctx context.Context, applicationID string, from ApplicationStatus, to ApplicationStatus, updatedAt time.Time) (Application, error)
	CountApplicationsByCampaign(ctx context.Context, campaignID string, statuses ...ApplicationStatus) (int, error)
	ListApplicationsByUser(ctx context.Context, userID string) ([]Application, error)
	ListApplicationsByCampaign(ctx context.Context, campaignID string) ([]Application, error)
}

// SubmissionStore persists mission submission lifecycle state.
//
// ResubmitSubmission, CompleteSubmission and RequestRevision are conditional
// read-modify-write units with the same ErrStateMismatch/ErrNotFound contract
// as ApplicationStore transitions.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, submission Submission) error
	GetSubmission(ctx context.Context, submissionID string) (Submission, error)
	GetSubmissionByApplication(ctx context.Context, applicationID string) (Submission, error)
	ResubmitSubmission(ctx context.Context, submissionID string, submissionURL string, submittedAt time.Time) (Submission, error)
	CompleteSubmission(ctx context.Context, submissionID string, feedback string, reviewedAt time.Time) (Submission, error)
	RequestRevision(ctx context.Context, submissionID string, revision Revision) (Submission, error)
	ListSubmissionsByUser(ctx context.Context, userID string) ([]Submission, error)
	ListSubmissionsByCampaign(ctx context.Context, campaignID string) ([]Submission, error)
}
