package domain

// MessageType identifies the lifecycle event a notification describes. The
// set is closed; Dispatch rejects anything outside it.
type MessageType string

const (
	// MessageTypeApplicationApproved tells an influencer their campaign
	// application was approved.
	MessageTypeApplicationApproved MessageType = "campaign.application.approved"
	// MessageTypeApplicationRejected tells an influencer their campaign
	// application was rejected.
	MessageTypeApplicationRejected MessageType = "campaign.application.rejected"
	// MessageTypeMissionSubmitted tells a campaign owner a mission deliverable
	// arrived for review.
	MessageTypeMissionSubmitted MessageType = "mission.submitted"
	// MessageTypeMissionRevisionRequested tells an influencer their deliverable
	// needs changes.
	MessageTypeMissionRevisionRequested MessageType = "mission.revision_requested"
	// MessageTypeMissionApproved tells an influencer their deliverable was
	// accepted and the mission is complete.
	MessageTypeMissionApproved MessageType = "mission.approved"
)

var knownMessageTypes = map[MessageType]struct{}{
	MessageTypeApplicationApproved:      {},
	MessageTypeApplicationRejected:      {},
	MessageTypeMissionSubmitted:         {},
	MessageTypeMissionRevisionRequested: {},
	MessageTypeMissionApproved:          {},
}

// Known reports whether t is a recognized message type.
func (t MessageType) Known() bool {
	_, ok := knownMessageTypes[t]
	return ok
}
