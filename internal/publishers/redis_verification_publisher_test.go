package publishers

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisVerificationPublisher(t *testing.T) {
	addr := os.Getenv("REGCHECK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REGCHECK_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	queue := "regcheck:test:" + xid.New().String()
	t.Cleanup(func() { client.Del(context.Background(), queue) })

	publisher := NewRedisVerificationPublisher(RedisVerificationPublisherDependencies{
		Client: client,
		Queue:  queue,
	})

	request := domain.VerificationRequest{
		JobID:        xid.New().String(),
		CredentialID: "cred-1",
		AccountID:    "acc",
		Type:         domain.CredentialTypeGithubContainerRegistry,
		Reason:       domain.VerificationReasonCreated,
		RequestedAt:  time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, publisher.PublishVerification(ctx, request))

	raw, err := client.RPop(ctx, queue).Bytes()
	require.NoError(t, err)

	var decoded domain.VerificationRequest
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, request, decoded)
}

func TestRedisVerificationPublisher_RejectsEmptyCredential(t *testing.T) {
	publisher := NewRedisVerificationPublisher(RedisVerificationPublisherDependencies{
		Client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}),
	})

	err := publisher.PublishVerification(context.Background(), domain.VerificationRequest{})
	assert.Error(t, err)
}

func TestVerificationRequest_JSON(t *testing.T) {
	payload, err := json.Marshal(domain.VerificationRequest{
		CredentialID: "cred-1",
		Type:         domain.CredentialTypeDockerHub,
		Reason:       domain.VerificationReasonUpdated,
	})
	require.NoError(t, err)

	assert.Contains(t, string(payload), `"type":"DockerHub"`)
	assert.Contains(t, string(payload), `"reason":"updated"`)
}

func TestLogVerificationPublisher(t *testing.T) {
	err := NewLogVerificationPublisher().PublishVerification(context.Background(), domain.VerificationRequest{
		CredentialID: "cred-1",
		Type:         domain.CredentialTypeAzure,
	})

	assert.NoError(t, err)
}
