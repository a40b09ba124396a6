package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/repository"
	"github.com/peerview/interview-service/pkg/logger/sl"
)

type NotificationService interface {
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id int64, userID string) error
}

type NotificationServiceImpl struct {
	log           *slog.Logger
	notifications repository.NotificationRepository
}

func NewNotificationService(log *slog.Logger, notifications repository.NotificationRepository) *NotificationServiceImpl {
	return &NotificationServiceImpl{log: log, notifications: notifications}
}

func (s *NotificationServiceImpl) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	const op = "internal.service.notification.ListNotifications"

	list, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to list notifications", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: failed to list notifications: %w", op, err)
	}

	return list, nil
}

func (s *NotificationServiceImpl) MarkRead(ctx context.Context, id int64, userID string) error {
	const op = "internal.service.notification.MarkRead"

	if err := s.notifications.MarkRead(ctx, id, userID); err != nil {
		return fmt.Errorf("%s: failed to mark notification read: %w", op, err)
	}

	return nil
}
