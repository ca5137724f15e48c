// Package domain holds the campaign participation lifecycle: a user's
// application to a campaign and the mission deliverable tied to an approved
// application. Campaign metadata itself is a read model owned elsewhere.
package domain

import (
	"context"
	"time"
)

// CampaignApproval is the moderation state of a campaign read-model row.
type CampaignApproval string

const (
	// CampaignApprovalPending means the campaign is awaiting moderation.
	CampaignApprovalPending CampaignApproval = "pending"
	// CampaignApprovalApproved means the campaign is published and joinable.
	CampaignApprovalApproved CampaignApproval = "approved"
	// CampaignApprovalRejected means the campaign failed moderation.
	CampaignApprovalRejected CampaignApproval = "rejected"
)

// Campaign is the read model this lifecycle consumes. It is owned by the
// campaign management surface; this package only reads it.
type Campaign struct {
	ID                string
	OwnerUserID       string
	Title             string
	Approval          CampaignApproval
	RecruitStartAt    time.Time
	RecruitEndAt      time.Time
	MissionStartAt    time.Time
	MissionDeadlineAt time.Time
	MaxApplicants     int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CampaignDirectory resolves campaign read-model rows by id.
type CampaignDirectory interface {
	GetCampaign(ctx context.Context, campaignID string) (Campaign, error)
}

// RecruitmentOpen reports whether the campaign accepts applications at now.
func (c Campaign) RecruitmentOpen(now time.Time) bool {
	if c.RecruitStartAt.IsZero() || c.RecruitEndAt.IsZero() {
		return false
	}
	return !now.Before(c.RecruitStartAt) && !now.After(c.RecruitEndAt)
}

// MissionOpen reports whether the campaign accepts mission submissions at now.
func (c Campaign) MissionOpen(now time.Time) bool {
	if c.MissionStartAt.IsZero() || c.MissionDeadlineAt.IsZero() {
		return false
	}
	return !now.Before(c.MissionStartAt) && !now.After(c.MissionDeadlineAt)
}

// DisplayStatus is a presentation-only projection over campaign dates and
// lifecycle state. It is never stored.
type DisplayStatus string

const (
	// DisplayStatusUpcoming means recruitment has not started yet.
	DisplayStatusUpcoming DisplayStatus = "UPCOMING"
	// DisplayStatusRecruiting means the recruitment window is open.
	DisplayStatusRecruiting DisplayStatus = "RECRUITING"
	// DisplayStatusRecruitClosed means recruitment ended, mission not started.
	DisplayStatusRecruitClosed DisplayStatus = "RECRUIT_CLOSED"
	// DisplayStatusMissionInProgress means the mission window is open.
	DisplayStatusMissionInProgress DisplayStatus = "MISSION_IN_PROGRESS"
	// DisplayStatusCompleted means the mission deadline has passed.
	DisplayStatusCompleted DisplayStatus = "COMPLETED"
)

// ProjectDisplayStatus derives the display status for one campaign at now.
// Pure function over dates so it cannot drift from the lifecycle state.
func ProjectDisplayStatus(campaign Campaign, now time.Time) DisplayStatus {
	switch {
	case now.Before(campaign.RecruitStartAt):
		return DisplayStatusUpcoming
	case campaign.RecruitmentOpen(now):
		return DisplayStatusRecruiting
	case now.Before(campaign.MissionStartAt):
		return DisplayStatusRecruitClosed
	case campaign.MissionOpen(now):
		return DisplayStatusMissionInProgress
	default:
		return DisplayStatusCompleted
	}
}
