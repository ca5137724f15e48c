// Package sqlite provides SQLite-backed persistence for campaign lifecycle state.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/castmatch/castmatch/internal/platform/storage/sqlitemigrate"
	"github.com/castmatch/castmatch/internal/services/campaigns/domain"
	"github.com/castmatch/castmatch/internal/services/campaigns/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for campaigns, applications and
// mission submissions.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a campaigns SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutCampaign upserts one campaign read-model row.
func (s *Store) PutCampaign(ctx context.Context, campaign domain.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	campaign.ID = strings.TrimSpace(campaign.ID)
	campaign.OwnerUserID = strings.TrimSpace(campaign.OwnerUserID)
	if campaign.ID == "" {
		return fmt.Errorf("campaign id is required")
	}
	if campaign.OwnerUserID == "" {
		return fmt.Errorf("campaign owner user id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO campaigns (
	id, owner_user_id, title, approval, recruit_start_at, recruit_end_at,
	mission_start_at, mission_deadline_at, max_applicants, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner_user_id = excluded.owner_user_id,
	title = excluded.title,
	approval = excluded.approval,
	recruit_start_at = excluded.recruit_start_at,
	recruit_end_at = excluded.recruit_end_at,
	mission_start_at = excluded.mission_start_at,
	mission_deadline_at = excluded.mission_deadline_at,
	max_applicants = excluded.max_applicants,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at
`,
		campaign.ID,
		campaign.OwnerUserID,
		strings.TrimSpace(campaign.Title),
		string(campaign.Approval),
		toMillis(campaign.RecruitStartAt),
		toMillis(campaign.RecruitEndAt),
		toMillis(campaign.MissionStartAt),
		toMillis(campaign.MissionDeadlineAt),
		campaign.MaxApplicants,
		toMillis(campaign.CreatedAt),
		toMillis(campaign.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put campaign: %w", err)
	}
	return nil
}

// GetCampaign loads one campaign row by id.
func (s *Store) GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return domain.Campaign{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Campaign{}, fmt.Errorf("storage is not configured")
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return domain.Campaign{}, fmt.Errorf("campaign id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, owner_user_id, title, approval, recruit_start_at, recruit_end_at,
       mission_start_at, mission_deadline_at, max_applicants, created_at, updated_at
FROM campaigns
WHERE id = ?
`, campaignID)
	var campaign domain.Campaign
	var approval string
	var recruitStart, recruitEnd, missionStart, missionDeadline, createdAt, updatedAt int64
	if err := row.Scan(
		&campaign.ID,
		&campaign.OwnerUserID,
		&campaign.Title,
		&approval,
		&recruitStart,
		&recruitEnd,
		&missionStart,
		&missionDeadline,
		&campaign.MaxApplicants,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Campaign{}, domain.ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	campaign.Approval = domain.CampaignApproval(approval)
	campaign.RecruitStartAt = fromMillis(recruitStart)
	campaign.RecruitEndAt = fromMillis(recruitEnd)
	campaign.MissionStartAt = fromMillis(missionStart)
	campaign.MissionDeadlineAt = fromMillis(missionDeadline)
	campaign.CreatedAt = fromMillis(createdAt)
	campaign.UpdatedAt = fromMillis(updatedAt)
	return campaign, nil
}

type scanner func(dest ...any) error

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed")
}

func statusPlaceholders(statuses []domain.ApplicationStatus) (string, []any) {
	placeholders := make([]string, 0, len(statuses))
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		placeholders = append(placeholders, "?")
		args = append(args, string(status))
	}
	return strings.Join(placeholders, ", "), args
}
