package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
)

type RequestRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewRequestRepository(db *sqlx.DB, log *slog.Logger) *RequestRepository {
	return &RequestRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *RequestRepository) Create(ctx context.Context, tx *sqlx.Tx, req *domain.InterviewRequest) (int64, error) {
	const op = "internal.repository.postgres.request.Create"

	query, args, err := r.sq.Insert("interview_requests").
		Columns("user_id", "mastery_id", "role", "desired_interviews", "language_code", "is_active").
		Values(req.UserID, req.MasteryID, req.Role, req.DesiredInterviews, req.LanguageCode, req.IsActive).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	row := tx.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&req.ID, &req.CreatedAt); err != nil {
		return 0, fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	if err := r.insertTimeSlots(ctx, tx, req.ID, req.TimeSlots); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return req.ID, nil
}

func (r *RequestRepository) insertTimeSlots(ctx context.Context, tx *sqlx.Tx, requestID int64, slots []time.Time) error {
	if len(slots) == 0 {
		return nil
	}

	insertBuilder := r.sq.Insert("request_time_slots").
		Columns("request_id", "slot_time")

	for _, slot := range slots {
		insertBuilder = insertBuilder.Values(requestID, slot.UTC())
	}

	query, args, err := insertBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build slots insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert time slots: %w", err)
	}

	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.InterviewRequest, error) {
	const op = "internal.repository.postgres.request.GetByID"

	return r.getByID(ctx, ext, id, false, op)
}

func (r *RequestRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.InterviewRequest, error) {
	const op = "internal.repository.postgres.request.GetByIDForUpdate"

	return r.getByID(ctx, tx, id, true, op)
}

func (r *RequestRepository) getByID(ctx context.Context, ext sqlx.ExtContext, id int64, lock bool, op string) (*domain.InterviewRequest, error) {
	queryBuilder := r.sq.Select("id", "user_id", "mastery_id", "role", "desired_interviews", "language_code", "is_active", "created_at").
		From("interview_requests").
		Where(sq.Eq{"id": id})

	if lock {
		queryBuilder = queryBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var req domain.InterviewRequest
	if err := sqlx.GetContext(ctx, ext, &req, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: request with id '%d'", op, apperrors.ErrNotFound, id)
		}

		return nil, fmt.Errorf("%s: failed to get request: %w", op, err)
	}

	if err := r.loadDates(ctx, ext, &req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &req, nil
}

func (r *RequestRepository) loadDates(ctx context.Context, ext sqlx.ExtContext, req *domain.InterviewRequest) error {
	slotsQuery, args, err := r.sq.Select("slot_time").
		From("request_time_slots").
		Where(sq.Eq{"request_id": req.ID}).
		OrderBy("slot_time").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build slots query: %w", err)
	}

	if err := sqlx.SelectContext(ctx, ext, &req.TimeSlots, slotsQuery, args...); err != nil {
		return fmt.Errorf("failed to select time slots: %w", err)
	}

	datesQuery, args, err := r.sq.Select("assigned_at").
		From("request_assigned_dates").
		Where(sq.Eq{"request_id": req.ID}).
		OrderBy("assigned_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build dates query: %w", err)
	}

	if err := sqlx.SelectContext(ctx, ext, &req.AssignedDates, datesQuery, args...); err != nil {
		return fmt.Errorf("failed to select assigned dates: %w", err)
	}

	return nil
}

func (r *RequestRepository) Update(ctx context.Context, tx *sqlx.Tx, req *domain.InterviewRequest) error {
	const op = "internal.repository.postgres.request.Update"

	query, args, err := r.sq.Update("interview_requests").
		Set("mastery_id", req.MasteryID).
		Set("role", req.Role).
		Set("desired_interviews", req.DesiredInterviews).
		Set("language_code", req.LanguageCode).
		Set("is_active", req.IsActive).
		Where(sq.Eq{"id": req.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: request with id '%d'", op, apperrors.ErrNotFound, req.ID)
	}

	deleteQuery, args, err := r.sq.Delete("request_time_slots").
		Where(sq.Eq{"request_id": req.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build slots delete: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("%s: failed to delete old time slots: %w", op, err)
	}

	if err := r.insertTimeSlots(ctx, tx, req.ID, req.TimeSlots); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RequestRepository) Delete(ctx context.Context, tx *sqlx.Tx, id int64) error {
	const op = "internal.repository.postgres.request.Delete"

	query, args, err := r.sq.Delete("interview_requests").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute delete: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: request with id '%d'", op, apperrors.ErrNotFound, id)
	}

	return nil
}

func (r *RequestRepository) SetActive(ctx context.Context, tx *sqlx.Tx, id int64, active bool) error {
	const op = "internal.repository.postgres.request.SetActive"

	query, args, err := r.sq.Update("interview_requests").
		Set("is_active", active).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: request with id '%d'", op, apperrors.ErrNotFound, id)
	}

	return nil
}

func (r *RequestRepository) AddAssignedDate(ctx context.Context, tx *sqlx.Tx, id int64, date time.Time) error {
	const op = "internal.repository.postgres.request.AddAssignedDate"

	query, args, err := r.sq.Insert("request_assigned_dates").
		Columns("request_id", "assigned_at").
		Values(id, date.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *RequestRepository) RemoveAssignedDate(ctx context.Context, tx *sqlx.Tx, id int64, date time.Time) error {
	const op = "internal.repository.postgres.request.RemoveAssignedDate"

	query, args, err := r.sq.Delete("request_assigned_dates").
		Where(sq.Eq{"request_id": id, "assigned_at": date.UTC()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute delete: %w", op, err)
	}

	return nil
}

// FindCompatible implements the matching filter. Candidates are ordered by
// creation time so the oldest eligible request wins, which keeps matching
// deterministic and auditable.
func (r *RequestRepository) FindCompatible(ctx context.Context, ext sqlx.ExtContext, req *domain.InterviewRequest) (*domain.InterviewRequest, error) {
	const op = "internal.repository.postgres.request.FindCompatible"

	query, args, err := r.sq.Select("r.id", "r.user_id", "r.mastery_id", "r.role", "r.desired_interviews", "r.language_code", "r.is_active", "r.created_at").
		From("interview_requests r").
		Where(sq.Eq{
			"r.role":          req.Role.Opposite(),
			"r.mastery_id":    req.MasteryID,
			"r.language_code": req.LanguageCode,
			"r.is_active":     true,
		}).
		Where(sq.NotEq{"r.user_id": req.UserID}).
		Where(sq.Expr(
			`EXISTS (
				SELECT 1 FROM request_time_slots s1
				JOIN request_time_slots s2 ON s1.slot_time = s2.slot_time
				WHERE s1.request_id = r.id AND s2.request_id = ?
			)`, req.ID,
		)).
		Where(sq.Expr(
			`(SELECT COUNT(*) FROM request_assigned_dates d WHERE d.request_id = r.id) < r.desired_interviews`,
		)).
		OrderBy("r.created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var found domain.InterviewRequest
	if err := sqlx.GetContext(ctx, ext, &found, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	if err := r.loadDates(ctx, ext, &found); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &found, nil
}
