package gateway

import (
	"context"
	"log/slog"

	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/repository"
)

// StoreNotificationGateway persists notifications into the user's feed.
type StoreNotificationGateway struct {
	repo repository.NotificationRepository
	log  *slog.Logger
}

var _ NotificationGateway = (*StoreNotificationGateway)(nil)

func NewStoreNotificationGateway(repo repository.NotificationRepository, log *slog.Logger) *StoreNotificationGateway {
	return &StoreNotificationGateway{repo: repo, log: log}
}

func (g *StoreNotificationGateway) Send(ctx context.Context, userID, kind, payload string) error {
	const op = "internal.gateway.notification.Send"

	n := &domain.Notification{
		UserID:  userID,
		Kind:    kind,
		Payload: payload,
	}

	if _, err := g.repo.Create(ctx, n); err != nil {
		return err
	}

	g.log.Debug("notification stored",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("kind", kind),
	)

	return nil
}
