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

const submissionColumns = "id, application_id, user_id, campaign_id, submission_url, state, feedback, submitted_at, reviewed_at"

// CreateSubmission inserts one submission row. A second submission for the
// same application reports domain.ErrConflict.
func (s *Store) CreateSubmission(ctx context.Context, submission domain.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	submission.ID = strings.TrimSpace(submission.ID)
	submission.ApplicationID = strings.TrimSpace(submission.ApplicationID)
	if submission.ID == "" {
		return fmt.Errorf("submission id is required")
	}
	if submission.ApplicationID == "" {
		return fmt.Errorf("application id is required")
	}
	if submission.SubmittedAt.IsZero() {
		return fmt.Errorf("submitted_at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO mission_submissions (id, application_id, user_id, campaign_id, submission_url, state, feedback, submitted_at, reviewed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)
`,
		submission.ID,
		submission.ApplicationID,
		strings.TrimSpace(submission.UserID),
		strings.TrimSpace(submission.CampaignID),
		strings.TrimSpace(submission.SubmissionURL),
		string(submission.State),
		strings.TrimSpace(submission.Feedback),
		toMillis(submission.SubmittedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetSubmission loads one submission with its revision trail.
func (s *Store) GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return domain.Submission{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Submission{}, fmt.Errorf("storage is not configured")
	}
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return domain.Submission{}, fmt.Errorf("submission id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+submissionColumns+" FROM mission_submissions WHERE id = ?", submissionID)
	submission, err := scanSubmission(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Submission{}, domain.ErrNotFound
		}
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	if err := s.attachRevisions(ctx, &submission); err != nil {
		return domain.Submission{}, err
	}
	return submission, nil
}

// GetSubmissionByApplication loads the submission for one application.
func (s *Store) GetSubmissionByApplication(ctx context.Context, applicationID string) (domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return domain.Submission{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Submission{}, fmt.Errorf("storage is not configured")
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return domain.Submission{}, fmt.Errorf("application id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+submissionColumns+" FROM mission_submissions WHERE application_id = ?", applicationID)
	submission, err := scanSubmission(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Submission{}, domain.ErrNotFound
		}
		return domain.Submission{}, fmt.Errorf("get submission by application: %w", err)
	}
	if err := s.attachRevisions(ctx, &submission); err != nil {
		return domain.Submission{}, err
	}
	return submission, nil
}

// ResubmitSubmission replaces the deliverable URL and returns the submission
// to the review queue. Conditional on a pending revision request.
func (s *Store) ResubmitSubmission(ctx context.Context, submissionID string, submissionURL string, submittedAt time.Time) (domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return domain.Submission{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Submission{}, fmt.Errorf("storage is not configured")
	}
	submissionID = strings.TrimSpace(submissionID)
	submissionURL = strings.TrimSpace(submissionURL)
	if submissionID == "" {
		return domain.Submission{}, fmt.Errorf("submission id is required")
	}
	if submissionURL == "" {
		return domain.Submission{}, fmt.Errorf("submission url is required")
	}
	if submittedAt.IsZero() {
		return domain.Submission{}, fmt.Errorf("submitted_at is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE mission_submissions
SET submission_url = ?, state = ?, feedback = '', submitted_at = ?, reviewed_at = NULL
WHERE id = ? AND state = ?
`, submissionURL, string(domain.SubmissionStateSubmitted), toMillis(submittedAt), submissionID, string(domain.SubmissionStateRevisionRequested))
	if err != nil {
		return domain.Submission{}, fmt.Errorf("resubmit submission: %w", err)
	}
	return s.afterConditionalWrite(ctx, submissionID, result)
}

// CompleteSubmission accepts a submitted deliverable. Conditional on the
// submission awaiting review.
func (s *Store) CompleteSubmission(ctx context.Context, submissionID string, feedback string, reviewedAt time.Time) (domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return domain.Submission{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Submission{}, fmt.Errorf("storage is not configured")
	}
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return domain.Submission{}, fmt.Errorf("submission id is required")
	}
	if reviewedAt.IsZero() {
		return domain.Submission{}, fmt.Errorf("reviewed_at is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE mission_submissions
SET state = ?, feedback = ?, reviewed_at = ?
WHERE id = ? AND state = ?
`, string(domain.SubmissionStateCompleted), strings.TrimSpace(feedback), toMillis(reviewedAt), submissionID, string(domain.SubmissionStateSubmitted))
	if err != nil {
		return domain.Submission{}, fmt.Errorf("complete submission: %w", err)
	}
	return s.afterConditionalWrite(ctx, submissionID, result)
}

// RequestRevision sends a submitted deliverable back for changes and appends
// the revision request in the same transaction.
func (s *Store) RequestRevision(ctx context.Context, submissionID string, revision domain.Revision) (domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return domain.Submission{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Submission{}, fmt.Errorf("storage is not configured")
	}
	submissionID = strings.TrimSpace(submissionID)
	revision.ID = strings.TrimSpace(revision.ID)
	revision.Reason = strings.TrimSpace(revision.Reason)
	if submissionID == "" {
		return domain.Submission{}, fmt.Errorf("submission id is required")
	}
	if revision.ID == "" {
		return domain.Submission{}, fmt.Errorf("revision id is required")
	}
	if revision.Reason == "" {
		return domain.Submission{}, fmt.Errorf("revision reason is required")
	}
	if revision.RequestedAt.IsZero() {
		return domain.Submission{}, fmt.Errorf("requested_at is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("begin revision write: %w", err)
	}
	rollbackWith := func(cause error) (domain.Submission, error) {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return domain.Submission{}, fmt.Errorf("%w: rollback revision write: %v", cause, rollbackErr)
		}
		return domain.Submission{}, cause
	}

	result, err := tx.ExecContext(ctx, `
UPDATE mission_submissions
SET state = ?, reviewed_at = ?
WHERE id = ? AND state = ?
`, string(domain.SubmissionStateRevisionRequested), toMillis(revision.RequestedAt), submissionID, string(domain.SubmissionStateSubmitted))
	if err != nil {
		return rollbackWith(fmt.Errorf("request revision: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return rollbackWith(fmt.Errorf("request revision rows affected: %w", err))
	}
	if affected == 0 {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return domain.Submission{}, fmt.Errorf("rollback revision write: %w", rollbackErr)
		}
		if _, getErr := s.GetSubmission(ctx, submissionID); getErr != nil {
			if errors.Is(getErr, domain.ErrNotFound) {
				return domain.Submission{}, domain.ErrNotFound
			}
			return domain.Submission{}, getErr
		}
		return domain.Submission{}, domain.ErrStateMismatch
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO mission_revisions (id, submission_id, reason, requested_at)
VALUES (?, ?, ?, ?)
`, revision.ID, submissionID, revision.Reason, toMillis(revision.RequestedAt)); err != nil {
		return rollbackWith(fmt.Errorf("insert revision: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return domain.Submission{}, fmt.Errorf("commit revision write: %w", err)
	}
	return s.GetSubmission(ctx, submissionID)
}

// ListSubmissionsByUser lists one user's submissions newest first.
func (s *Store) ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
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
	return s.listSubmissions(ctx,
		"SELECT "+submissionColumns+" FROM mission_submissions WHERE user_id = ? ORDER BY submitted_at DESC, id DESC",
		userID)
}

// ListSubmissionsByCampaign lists one campaign's submissions newest first.
func (s *Store) ListSubmissionsByCampaign(ctx context.Context, campaignID string) ([]domain.Submission, error) {
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
	return s.listSubmissions(ctx,
		"SELECT "+submissionColumns+" FROM mission_submissions WHERE campaign_id = ? ORDER BY submitted_at DESC, id DESC",
		campaignID)
}

func (s *Store) listSubmissions(ctx context.Context, query string, arg string) ([]domain.Submission, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []domain.Submission
	for rows.Next() {
		submission, scanErr := scanSubmission(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan submission row: %w", scanErr)
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}
	for i := range submissions {
		if err := s.attachRevisions(ctx, &submissions[i]); err != nil {
			return nil, err
		}
	}
	return submissions, nil
}

func (s *Store) afterConditionalWrite(ctx context.Context, submissionID string, result sql.Result) (domain.Submission, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Submission{}, fmt.Errorf("submission write rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetSubmission(ctx, submissionID); getErr != nil {
			if errors.Is(getErr, domain.ErrNotFound) {
				return domain.Submission{}, domain.ErrNotFound
			}
			return domain.Submission{}, getErr
		}
		return domain.Submission{}, domain.ErrStateMismatch
	}
	return s.GetSubmission(ctx, submissionID)
}

func (s *Store) attachRevisions(ctx context.Context, submission *domain.Submission) error {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, submission_id, reason, requested_at
FROM mission_revisions
WHERE submission_id = ?
ORDER BY requested_at ASC, id ASC
`, submission.ID)
	if err != nil {
		return fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var revision domain.Revision
		var requestedAt int64
		if err := rows.Scan(&revision.ID, &revision.SubmissionID, &revision.Reason, &requestedAt); err != nil {
			return fmt.Errorf("scan revision row: %w", err)
		}
		revision.RequestedAt = fromMillis(requestedAt)
		submission.Revisions = append(submission.Revisions, revision)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate revision rows: %w", err)
	}
	return nil
}

func scanSubmission(scan scanner) (domain.Submission, error) {
	var submission domain.Submission
	var state string
	var submittedAt int64
	var reviewedAt sql.NullInt64
	if err := scan(
		&submission.ID,
		&submission.ApplicationID,
		&submission.UserID,
		&submission.CampaignID,
		&submission.SubmissionURL,
		&state,
		&submission.Feedback,
		&submittedAt,
		&reviewedAt,
	); err != nil {
		return domain.Submission{}, err
	}
	submission.State = domain.SubmissionState(state)
	submission.SubmittedAt = fromMillis(submittedAt)
	if reviewedAt.Valid {
		value := fromMillis(reviewedAt.Int64)
		submission.ReviewedAt = &value
	}
	return submission, nil
}
