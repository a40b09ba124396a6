package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/pkg/logger/sl"
)

// requestLoader is the slice of the request store the consumer needs.
type requestLoader interface {
	GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.InterviewRequest, error)
}

// pairBooker books matched pairs; implemented by service.LifecycleService.
type pairBooker interface {
	CreatePair(ctx context.Context, pair domain.MatchedPair) (*domain.Interview, *domain.Interview, error)
}

// Consumer subscribes to the pairs channel and books every externally
// matched pair. Malformed or stale messages are logged and skipped so one
// bad message never stalls the stream.
type Consumer struct {
	log       *slog.Logger
	client    *redis.Client
	channel   string
	db        *sqlx.DB
	requests  requestLoader
	lifecycle pairBooker
}

func NewConsumer(
	log *slog.Logger,
	client *redis.Client,
	channel string,
	db *sqlx.DB,
	requests requestLoader,
	lifecycle pairBooker,
) *Consumer {
	return &Consumer{
		log:       log,
		client:    client,
		channel:   channel,
		db:        db,
		requests:  requests,
		lifecycle: lifecycle,
	}
}

// Run consumes pair messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	const op = "internal.queue.consumer.Run"
	log := c.log.With(slog.String("op", op), slog.String("channel", c.channel))

	sub := c.client.Subscribe(ctx, c.channel)
	defer func() { _ = sub.Close() }()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	log.Info("matcher queue consumer started")

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			log.Info("matcher queue consumer stopped")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			c.handleMessage(ctx, msg.Payload)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, payload string) {
	const op = "internal.queue.consumer.handleMessage"
	log := c.log.With(slog.String("op", op))

	var msg PairMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		log.Warn("skipping malformed pair message", sl.Err(err))
		return
	}

	if len(msg.Requests) != 2 {
		log.Warn("skipping pair message without exactly two requests", slog.Int("count", len(msg.Requests)))
		return
	}

	pair := domain.MatchedPair{Requests: make([]domain.InterviewRequest, 0, 2)}

	for _, pr := range msg.Requests {
		req, err := c.requests.GetByID(ctx, c.db, pr.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				log.Warn("skipping pair referencing unknown request", slog.Int64("request_id", pr.ID))
				return
			}

			log.Error("failed to load request from pair message", sl.Err(err), slog.Int64("request_id", pr.ID))
			return
		}

		pair.Requests = append(pair.Requests, *req)
	}

	if _, _, err := c.lifecycle.CreatePair(ctx, pair); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRequestConsumed):
			log.Info("skipping pair with consumed request", sl.Err(err))
		case errors.Is(err, apperrors.ErrNoCommonSlot), errors.Is(err, apperrors.ErrIncompletePair):
			log.Warn("skipping unbookable pair", sl.Err(err))
		default:
			log.Error("failed to book matched pair", sl.Err(err))
		}
	}
}
