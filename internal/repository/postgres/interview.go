package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
)

type InterviewRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewInterviewRepository(db *sqlx.DB, log *slog.Logger) *InterviewRepository {
	return &InterviewRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreatePair inserts both participant rows in one statement so a session can
// never exist with only one side.
func (r *InterviewRepository) CreatePair(ctx context.Context, tx *sqlx.Tx, a, b domain.Interview) error {
	const op = "internal.repository.postgres.interview.CreatePair"

	insertBuilder := r.sq.Insert("interviews").
		Columns("interview_id", "user_id", "request_id", "mastery_id", "role", "room_url", "start_time")

	for _, iv := range []domain.Interview{a, b} {
		insertBuilder = insertBuilder.Values(iv.InterviewID, iv.UserID, iv.RequestID, iv.MasteryID, iv.Role, iv.RoomURL, iv.StartTime.UTC())
	}

	query, args, err := insertBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("%s: %w: interview '%s'", op, apperrors.ErrAlreadyExists, a.InterviewID)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *InterviewRepository) GetPair(ctx context.Context, ext sqlx.ExtContext, interviewID string) ([]domain.Interview, error) {
	const op = "internal.repository.postgres.interview.GetPair"

	return r.getPair(ctx, ext, interviewID, false, op)
}

func (r *InterviewRepository) GetPairForUpdate(ctx context.Context, tx *sqlx.Tx, interviewID string) ([]domain.Interview, error) {
	const op = "internal.repository.postgres.interview.GetPairForUpdate"

	return r.getPair(ctx, tx, interviewID, true, op)
}

func (r *InterviewRepository) getPair(ctx context.Context, ext sqlx.ExtContext, interviewID string, lock bool, op string) ([]domain.Interview, error) {
	queryBuilder := r.sq.Select("interview_id", "user_id", "request_id", "mastery_id", "role", "room_url", "start_time").
		From("interviews").
		Where(sq.Eq{"interview_id": interviewID}).
		OrderBy("role")

	if lock {
		queryBuilder = queryBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var rows []domain.Interview
	if err := sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select interviews: %w", op, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w: interview with id '%s'", op, apperrors.ErrNotFound, interviewID)
	}

	return rows, nil
}

func (r *InterviewRepository) DeletePair(ctx context.Context, tx *sqlx.Tx, interviewID string) error {
	const op = "internal.repository.postgres.interview.DeletePair"

	query, args, err := r.sq.Delete("interviews").
		Where(sq.Eq{"interview_id": interviewID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute delete: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: interview with id '%s'", op, apperrors.ErrNotFound, interviewID)
	}

	return nil
}

// ListPendingFeedback excludes sessions that already produced a history
// record, which makes repeated poll runs idempotent.
func (r *InterviewRepository) ListPendingFeedback(ctx context.Context, from, to time.Time) ([]domain.Interview, error) {
	const op = "internal.repository.postgres.interview.ListPendingFeedback"

	query, args, err := r.sq.Select("i.interview_id", "i.user_id", "i.request_id", "i.mastery_id", "i.role", "i.room_url", "i.start_time").
		From("interviews i").
		Where(sq.GtOrEq{"i.start_time": from.UTC()}).
		Where(sq.Lt{"i.start_time": to.UTC()}).
		Where(sq.Expr(`NOT EXISTS (SELECT 1 FROM interview_history h WHERE h.interview_id = i.interview_id)`)).
		Where(sq.Expr(`NOT EXISTS (SELECT 1 FROM interview_summaries s WHERE s.interview_id = i.interview_id)`)).
		OrderBy("i.start_time", "i.interview_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var rows []domain.Interview
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return rows, nil
}

func (r *InterviewRepository) CreateEvent(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	const op = "internal.repository.postgres.interview.CreateEvent"

	query, args, err := r.sq.Insert("events").
		Columns("id", "interview_id", "title", "start_time").
		Values(ev.ID, ev.InterviewID, ev.Title, ev.StartTime.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *InterviewRepository) DeleteEventByInterview(ctx context.Context, tx *sqlx.Tx, interviewID string) error {
	const op = "internal.repository.postgres.interview.DeleteEventByInterview"

	query, args, err := r.sq.Delete("events").
		Where(sq.Eq{"interview_id": interviewID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute delete: %w", op, err)
	}

	return nil
}
