package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
)

type NotificationRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewNotificationRepository(db *sqlx.DB, log *slog.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (int64, error) {
	const op = "internal.repository.postgres.notification.Create"

	query, args, err := r.sq.Insert("notifications").
		Columns("user_id", "kind", "payload", "is_read").
		Values(n.UserID, n.Kind, n.Payload, false).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&n.ID, &n.CreatedAt); err != nil {
		return 0, fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return n.ID, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	const op = "internal.repository.postgres.notification.ListByUser"

	query, args, err := r.sq.Select("id", "user_id", "kind", "payload", "is_read", "created_at").
		From("notifications").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var notifications []domain.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return notifications, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, userID string) error {
	const op = "internal.repository.postgres.notification.MarkRead"

	query, args, err := r.sq.Update("notifications").
		Set("is_read", true).
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: notification with id '%d'", op, apperrors.ErrNotFound, id)
	}

	return nil
}
