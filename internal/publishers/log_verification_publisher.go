package publishers

import (
	"context"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/rs/zerolog/log"
)

// logVerificationPublisher records verification requests without a queue.
// Used when no external worker is deployed.
type logVerificationPublisher struct{}

func NewLogVerificationPublisher() domain.VerificationPublisher {
	return &logVerificationPublisher{}
}

func (p *logVerificationPublisher) PublishVerification(ctx context.Context, request domain.VerificationRequest) error {
	log.Info().
		Str("job_id", request.JobID).
		Str("credential_id", request.CredentialID).
		Str("account_id", request.AccountID).
		Str("type", request.Type.String()).
		Str("reason", string(request.Reason)).
		Msg("Credential verification requested")

	return nil
}
