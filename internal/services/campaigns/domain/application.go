package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/castmatch/castmatch/internal/platform/errors"
	"github.com/castmatch/castmatch/internal/platform/id"
	notifications "github.com/castmatch/castmatch/internal/services/notifications/domain"
)

// ApplicationStatus is the lifecycle state of a campaign application.
type ApplicationStatus string

const (
	// ApplicationStatusPending means the application awaits the owner's review.
	ApplicationStatusPending ApplicationStatus = "pending"
	// ApplicationStatusApproved means the influencer was accepted.
	ApplicationStatusApproved ApplicationStatus = "approved"
	// ApplicationStatusRejected means the influencer was turned down.
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Application is one influencer's request to join a campaign. At most one
// exists per (user, campaign) pair.
type Application struct {
	ID         string
	UserID     string
	CampaignID string
	Status     ApplicationStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ApplicationService orchestrates the application lifecycle:
// apply, cancel, and the owner's approve/reject decision.
type ApplicationService struct {
	store     ApplicationStore
	directory CampaignDirectory
	notifier  Notifier
	clock     func() time.Time
	newID     func() (string, error)
}

// NewApplicationService constructs application lifecycle use-cases. The
// notifier may be nil; decisions then commit without notifying.
func NewApplicationService(store ApplicationStore, directory CampaignDirectory, notifier Notifier, clock func() time.Time, newID func() (string, error)) *ApplicationService {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &ApplicationService{
		store:     store,
		directory: directory,
		notifier:  notifier,
		clock:     clock,
		newID:     newID,
	}
}

// Apply creates a pending application for userID on campaignID.
//
// The capacity check is optimistic: count, insert, recount. When the recount
// shows the insert overshot MaxApplicants the row is withdrawn and the caller
// sees CAMPAIGN_FULL, so two racing applicants cannot both land past the cap.
func (s *ApplicationService) Apply(ctx context.Context, userID string, campaignID string) (Application, error) {
	if s == nil || s.store == nil {
		return Application{}, ErrStoreNotConfigured
	}
	if s.directory == nil {
		return Application{}, ErrDirectoryNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Application{}, apperrors.New(apperrors.CodeApplicationInvalid, "user id is required")
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return Application{}, apperrors.New(apperrors.CodeApplicationInvalid, "campaign id is required")
	}

	campaign, err := s.directory.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Application{}, apperrors.New(apperrors.CodeNotFound, "campaign not found")
		}
		return Application{}, fmt.Errorf("load campaign: %w", err)
	}
	if campaign.Approval != CampaignApprovalApproved {
		return Application{}, apperrors.New(apperrors.CodeCampaignNotApproved, "campaign is not approved for recruitment")
	}
	now := s.nowUTC()
	if !campaign.RecruitmentOpen(now) {
		return Application{}, apperrors.New(apperrors.CodeCampaignNotOpen, "campaign recruitment window is closed")
	}
	if full, err := s.campaignFull(ctx, campaign); err != nil {
		return Application{}, err
	} else if full {
		return Application{}, apperrors.New(apperrors.CodeCampaignFull, "campaign reached its applicant limit")
	}

	applicationID, err := s.newID()
	if err != nil {
		return Application{}, err
	}
	application := Application{
		ID:         applicationID,
		UserID:     userID,
		CampaignID: campaignID,
		Status:     ApplicationStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateApplication(ctx, application); err != nil {
		if errors.Is(err, ErrConflict) {
			return Application{}, apperrors.New(apperrors.CodeApplicationDuplicate, "user already applied to this campaign")
		}
		return Application{}, fmt.Errorf("create application: %w", err)
	}

	if campaign.MaxApplicants > 0 {
		count, err := s.store.CountApplicationsByCampaign(ctx, campaignID, ApplicationStatusPending, ApplicationStatusApproved)
		if err != nil {
			return Application{}, fmt.Errorf("recount applicants: %w", err)
		}
		if count > campaign.MaxApplicants {
			if err := s.store.DeleteApplication(ctx, applicationID, ApplicationStatusPending); err != nil && !errors.Is(err, ErrNotFound) {
				return Application{}, fmt.Errorf("withdraw over-capacity application: %w", err)
			}
			return Application{}, apperrors.New(apperrors.CodeCampaignFull, "campaign reached its applicant limit")
		}
	}
	return application, nil
}

// Cancel withdraws callerID's own application. Approved applications are
// locked in and cannot be cancelled.
func (s *ApplicationService) Cancel(ctx context.Context, applicationID string, callerID string) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return apperrors.New(apperrors.CodeApplicationInvalid, "application id is required")
	}

	application, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "application not found")
		}
		return fmt.Errorf("load application: %w", err)
	}
	if application.UserID != strings.TrimSpace(callerID) {
		return apperrors.New(apperrors.CodeAccessDenied, "application belongs to another user")
	}
	if application.Status == ApplicationStatusApproved {
		return apperrors.New(apperrors.CodeInvalidState, "approved application cannot be cancelled")
	}

	err = s.store.DeleteApplication(ctx, applicationID, ApplicationStatusPending, ApplicationStatusRejected)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		// Concurrent cancel already removed it; same end state.
		return nil
	case errors.Is(err, ErrStateMismatch):
		return apperrors.New(apperrors.CodeInvalidState, "approved application cannot be cancelled")
	default:
		return fmt.Errorf("delete application: %w", err)
	}
}

// Transition moves a pending application to approved or rejected and notifies the
// applicant. Only pending applications can be decided; a second decision on
// the same application reports INVALID_STATE.
func (s *ApplicationService) Transition(ctx context.Context, applicationID string, callerID string, status ApplicationStatus) (Application, error) {
	if s == nil || s.store == nil {
		return Application{}, ErrStoreNotConfigured
	}
	if s.directory == nil {
		return Application{}, ErrDirectoryNotConfigured
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return Application{}, apperrors.New(apperrors.CodeApplicationInvalid, "application id is required")
	}
	if status != ApplicationStatusApproved && status != ApplicationStatusRejected {
		return Application{}, apperrors.New(apperrors.CodeApplicationInvalid, "decision must be approved or rejected")
	}

	application, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Application{}, apperrors.New(apperrors.CodeNotFound, "application not found")
		}
		return Application{}, fmt.Errorf("load application: %w", err)
	}
	campaign, err := s.directory.GetCampaign(ctx, application.CampaignID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Application{}, apperrors.New(apperrors.CodeNotFound, "campaign not found")
		}
		return Application{}, fmt.Errorf("load campaign: %w", err)
	}
	if campaign.OwnerUserID != strings.TrimSpace(callerID) {
		return Application{}, apperrors.New(apperrors.CodeAccessDenied, "only the campaign owner decides applications")
	}

	updated, err := s.store.TransitionApplication(ctx, applicationID, ApplicationStatusPending, status, s.nowUTC())
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return Application{}, apperrors.New(apperrors.CodeNotFound, "application not found")
	case errors.Is(err, ErrStateMismatch):
		return Application{}, apperrors.New(apperrors.CodeInvalidState, "application was already decided")
	default:
		return Application{}, fmt.Errorf("transition application: %w", err)
	}

	if s.notifier != nil {
		messageType := notifications.MessageTypeApplicationApproved
		if status == ApplicationStatusRejected {
			messageType = notifications.MessageTypeApplicationRejected
		}
		_, err := s.notifier.Dispatch(ctx, notifications.DispatchInput{
			RecipientUserID:   updated.UserID,
			MessageType:       messageType,
			RelatedEntityID:   campaign.ID,
			RelatedEntityType: RelatedEntityCampaign,
			Payload:           map[string]string{"campaign_title": campaign.Title},
		})
		if err != nil {
			return updated, fmt.Errorf("dispatch decision notification: %w", err)
		}
	}
	return updated, nil
}

// Get returns one application visible to callerID: the applicant or the
// campaign owner.
func (s *ApplicationService) Get(ctx context.Context, applicationID string, callerID string) (Application, error) {
	if s == nil || s.store == nil {
		return Application{}, ErrStoreNotConfigured
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return Application{}, apperrors.New(apperrors.CodeApplicationInvalid, "application id is required")
	}
	application, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Application{}, apperrors.New(apperrors.CodeNotFound, "application not found")
		}
		return Application{}, fmt.Errorf("load application: %w", err)
	}
	callerID = strings.TrimSpace(callerID)
	if application.UserID == callerID {
		return application, nil
	}
	if s.directory != nil {
		campaign, err := s.directory.GetCampaign(ctx, application.CampaignID)
		if err == nil && campaign.OwnerUserID == callerID {
			return application, nil
		}
	}
	return Application{}, apperrors.New(apperrors.CodeAccessDenied, "application belongs to another user")
}

// ListByUser lists the caller's own applications.
func (s *ApplicationService) ListByUser(ctx context.Context, userID string) ([]Application, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.New(apperrors.CodeApplicationInvalid, "user id is required")
	}
	return s.store.ListApplicationsByUser(ctx, userID)
}

// ListByCampaign lists a campaign's applications for its owner.
func (s *ApplicationService) ListByCampaign(ctx context.Context, campaignID string, callerID string) ([]Application, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if s.directory == nil {
		return nil, ErrDirectoryNotConfigured
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, apperrors.New(apperrors.CodeApplicationInvalid, "campaign id is required")
	}
	campaign, err := s.directory.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "campaign not found")
		}
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if campaign.OwnerUserID != strings.TrimSpace(callerID) {
		return nil, apperrors.New(apperrors.CodeAccessDenied, "only the campaign owner lists applications")
	}
	return s.store.ListApplicationsByCampaign(ctx, campaignID)
}

func (s *ApplicationService) campaignFull(ctx context.Context, campaign Campaign) (bool, error) {
	if campaign.MaxApplicants <= 0 {
		return false, nil
	}
	count, err := s.store.CountApplicationsByCampaign(ctx, campaign.ID, ApplicationStatusPending, ApplicationStatusApproved)
	if err != nil {
		return false, fmt.Errorf("count applicants: %w", err)
	}
	return count >= campaign.MaxApplicants, nil
}

func (s *ApplicationService) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
