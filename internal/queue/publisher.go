package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/peerview/interview-service/internal/domain"
)

// RedisPublisher announces new requests on the requests channel. It
// implements service.RequestPublisher.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) PublishRequest(ctx context.Context, requestID int64, req *domain.InterviewRequest) error {
	const op = "internal.queue.publisher.PublishRequest"

	msg := RequestMessage{
		RequestID:    requestID,
		UserID:       req.UserID,
		MasteryID:    req.MasteryID,
		Role:         req.Role,
		LanguageCode: req.LanguageCode,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal message: %w", op, err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("%s: failed to publish message: %w", op, err)
	}

	return nil
}
