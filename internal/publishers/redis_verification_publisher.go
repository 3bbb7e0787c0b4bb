package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultVerificationQueue = "regcheck:credential_verifications"

// redisVerificationPublisher pushes JSON jobs onto a Redis list; workers pop
// from the other end.
type redisVerificationPublisher struct {
	client redis.Cmdable
	queue  string
}

type RedisVerificationPublisherDependencies struct {
	Client redis.Cmdable
	Queue  string
}

func NewRedisVerificationPublisher(deps RedisVerificationPublisherDependencies) domain.VerificationPublisher {
	queue := deps.Queue
	if queue == "" {
		queue = DefaultVerificationQueue
	}

	return &redisVerificationPublisher{
		client: deps.Client,
		queue:  queue,
	}
}

func (p *redisVerificationPublisher) PublishVerification(ctx context.Context, request domain.VerificationRequest) error {
	if request.CredentialID == "" {
		return fmt.Errorf("credential id cannot be empty")
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal verification request: %w", err)
	}

	if err := p.client.LPush(ctx, p.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue verification request: %w", err)
	}

	log.Debug().
		Str("queue", p.queue).
		Str("job_id", request.JobID).
		Str("credential_id", request.CredentialID).
		Msg("Verification request enqueued")

	return nil
}
