package domain

import (
	"context"
	"time"
)

type VerificationReason string

const (
	VerificationReasonCreated VerificationReason = "created"
	VerificationReasonUpdated VerificationReason = "updated"
)

// VerificationRequest asks the external worker to log in to the registry
// with the stored credential.
type VerificationRequest struct {
	JobID        string             `json:"job_id"`
	CredentialID string             `json:"credential_id"`
	AccountID    string             `json:"account_id"`
	Type         CredentialType     `json:"type"`
	Reason       VerificationReason `json:"reason"`
	RequestedAt  time.Time          `json:"requested_at"`
}

type VerificationPublisher interface {
	PublishVerification(ctx context.Context, request VerificationRequest) error
}
