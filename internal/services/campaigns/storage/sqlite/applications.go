package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/castmatch/castmatch/internal/services/campaigns/domain"
)

const applicationColumns = "id, user_id, campaign_id, status, created_at, updated_at"

// CreateApplication inserts one application row. A second application for the
// same (user, campaign) pair reports domain.ErrConflict.
func (s *Store) CreateApplication(ctx context.Context, application domain.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	application.ID = strings.TrimSpace(application.ID)
	application.UserID = strings.TrimSpace(application.UserID)
	application.CampaignID = strings.TrimSpace(application.CampaignID)
	if application.ID == "" {
		return fmt.Errorf("application id is required")
	}
	if application.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if application.CampaignID == "" {
		return fmt.Errorf("campaign id is required")
	}
	if application.CreatedAt.IsZero() || application.UpdatedAt.IsZero() {
		return fmt.Errorf("application timestamps are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO campaign_applications (id, user_id, campaign_id, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`,
		application.ID,
		application.UserID,
		application.CampaignID,
		string(application.Status),
		toMillis(application.CreatedAt),
		toMillis(application.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetApplication loads one application row by id.
func (s *Store) GetApplication(ctx context.Context, applicationID string) (domain.Application, error) {
	if err := ctx.Err(); err != nil {
		return domain.Application{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Application{}, fmt.Errorf("storage is not configured")
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return domain.Application{}, fmt.Errorf("application id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM campaign_applications WHERE id = ?", applicationID)
	application, err := scanApplication(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	}
	return application, nil
}

// GetApplicationByUserAndCampaign loads one application by its unique pair.
func (s *Store) GetApplicationByUserAndCampaign(ctx context.Context, userID string, campaignID string) (domain.Application, error) {
	if err := ctx.Err(); err != nil {
		return domain.Application{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Application{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	campaignID = strings.TrimSpace(campaignID)
	if userID == "" {
		return domain.Application{}, fmt.Errorf("user id is required")
	}
	if campaignID == "" {
		return domain.Application{}, fmt.Errorf("campaign id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM campaign_applications WHERE user_id = ? AND campaign_id = ?",
		userID, campaignID)
	application, err := scanApplication(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("get application by user and campaign: %w", err)
	}
	return application, nil
}

// DeleteApplication removes one application row when its status is in the
// allowed set. A row in another state reports domain.ErrStateMismatch.
func (s *Store) DeleteApplication(ctx context.Context, applicationID string, allowed ...domain.ApplicationStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return fmt.Errorf("application id is required")
	}
	if len(allowed) == 0 {
		return fmt.Errorf("allowed statuses are required")
	}

	placeholders, args := statusPlaceholders(allowed)
	args = append([]any{applicationID}, args...)
	result, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM campaign_applications WHERE id = ? AND status IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete application rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing row from a row in a disallowed state.
		if _, getErr := s.GetApplication(ctx, applicationID); getErr != nil {
			if errors.Is(getErr, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return getErr
		}
		return domain.ErrStateMismatch
	}
	return nil
}

// TransitionApplication conditionally moves one application from one status to
// another. The losing side of a race observes ErrStateMismatch.
func (s *Store) TransitionApplication(ctx context.Context, applicationID string, from domain.ApplicationStatus, to domain.ApplicationStatus, updatedAt time.Time) (domain.Application, error) {
	if err := ctx.Err(); err != nil {
		return domain.Application{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Application{}, fmt.Errorf("storage is not configured")
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return domain.Application{}, fmt.Errorf("application id is required")
	}
	if updatedAt.IsZero() {
		return domain.Application{}, fmt.Errorf("updated_at is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE campaign_applications
SET status = ?, updated_at = ?
WHERE id = ? AND status = ?
`, string(to), toMillis(updatedAt), applicationID, string(from))
	if err != nil {
		return domain.Application{}, fmt.Errorf("transition application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Application{}, fmt.Errorf("transition application rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetApplication(ctx, applicationID); getErr != nil {
			if errors.Is(getErr, domain.ErrNotFound) {
				return domain.Application{}, domain.ErrNotFound
			}
			return domain.Application{}, getErr
		}
		return domain.Application{}, domain.ErrStateMismatch
	}
	return s.GetApplication(ctx, applicationID)
}

// CountApplicationsByCampaign counts campaign applications in the given statuses.
func (s *Store) CountApplicationsByCampaign(ctx context.Context, campaignID string, statuses ...domain.ApplicationStatus) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return 0, fmt.Errorf("campaign id is required")
	}
	if len(statuses) == 0 {
		return 0, fmt.Errorf("statuses are required")
	}

	placeholders, args := statusPlaceholders(statuses)
	args = append([]any{campaignID}, args...)
	var count int
	if err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM campaign_applications WHERE campaign_id = ? AND status IN ("+placeholders+")",
		args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return count, nil
}

// ListApplicationsByUser lists one user's applications newest first.
func (s *Store) ListApplicationsByUser(ctx context.Context, userID string) ([]domain.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+applicationColumns+" FROM campaign_applications WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list applications by user: %w", err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

// ListApplicationsByCampaign lists one campaign's applications oldest first.
func (s *Store) ListApplicationsByCampaign(ctx context.Context, campaignID string) ([]domain.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, fmt.Errorf("campaign id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+applicationColumns+" FROM campaign_applications WHERE campaign_id = ? ORDER BY created_at ASC, id ASC",
		campaignID)
	if err != nil {
		return nil, fmt.Errorf("list applications by campaign: %w", err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

func scanApplication(scan scanner) (domain.Application, error) {
	var application domain.Application
	var status string
	var createdAt, updatedAt int64
	if err := scan(
		&application.ID,
		&application.UserID,
		&application.CampaignID,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Application{}, err
	}
	application.Status = domain.ApplicationStatus(status)
	application.CreatedAt = fromMillis(createdAt)
	application.UpdatedAt = fromMillis(updatedAt)
	return application, nil
}

func collectApplications(rows *sql.Rows) ([]domain.Application, error) {
	var applications []domain.Application
	for rows.Next() {
		application, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan application row: %w", err)
		}
		applications = append(applications, application)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate application rows: %w", err)
	}
	return applications, nil
}
