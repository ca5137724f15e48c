// Package errors provides structured error handling with stable machine codes.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Access errors
	CodeAccessDenied Code = "ACCESS_DENIED"

	// Application errors
	CodeApplicationDuplicate  Code = "DUPLICATE_APPLICATION"
	CodeApplicationInvalid    Code = "APPLICATION_INVALID_ARGUMENT"
	CodeCampaignFull          Code = "CAMPAIGN_FULL"
	CodeCampaignNotOpen       Code = "CAMPAIGN_NOT_OPEN"
	CodeCampaignNotApproved   Code = "CAMPAIGN_NOT_APPROVED"

	// Mission errors
	CodeSubmissionInvalid       Code = "SUBMISSION_INVALID_ARGUMENT"
	CodeInvalidSubmissionPeriod Code = "INVALID_SUBMISSION_PERIOD"

	// Lifecycle errors
	CodeInvalidState Code = "INVALID_STATE"

	// Notification errors
	CodeNotificationInvalid Code = "NOTIFICATION_INVALID_ARGUMENT"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes. Stream error frames and
// future RPC surfaces share this vocabulary.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeApplicationInvalid,
		CodeSubmissionInvalid,
		CodeNotificationInvalid:
		return codes.InvalidArgument

	// PermissionDenied - caller lacks role or ownership
	case CodeAccessDenied:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeInvalidState,
		CodeCampaignNotOpen,
		CodeCampaignNotApproved,
		CodeInvalidSubmissionPeriod:
		return codes.FailedPrecondition

	// ResourceExhausted - capacity limits
	case CodeCampaignFull:
		return codes.ResourceExhausted

	// AlreadyExists - unique resource constraint
	case CodeApplicationDuplicate:
		return codes.AlreadyExists

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
