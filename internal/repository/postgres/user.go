package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
)

type UserRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewUserRepository(db *sqlx.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *UserRepository) GetByID(ctx context.Context, ext sqlx.ExtContext, id string) (*domain.User, error) {
	const op = "internal.repository.postgres.user.GetByID"

	query, args, err := r.sq.Select("id", "username", "email", "completed_interviews", "conducted_interviews").
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var user domain.User
	if err := sqlx.GetContext(ctx, ext, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: user with id '%s'", op, apperrors.ErrNotFound, id)
		}

		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	return &user, nil
}

func (r *UserRepository) IncrementInterviewCounters(ctx context.Context, tx *sqlx.Tx, candidateID, interviewerID string) error {
	const op = "internal.repository.postgres.user.IncrementInterviewCounters"

	completedQuery, args, err := r.sq.Update("users").
		Set("completed_interviews", sq.Expr("completed_interviews + 1")).
		Where(sq.Eq{"id": candidateID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build candidate update: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, completedQuery, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to update candidate counter: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: user with id '%s'", op, apperrors.ErrNotFound, candidateID)
	}

	conductedQuery, args, err := r.sq.Update("users").
		Set("conducted_interviews", sq.Expr("conducted_interviews + 1")).
		Where(sq.Eq{"id": interviewerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build interviewer update: %w", op, err)
	}

	res, err = tx.ExecContext(ctx, conductedQuery, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to update interviewer counter: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: user with id '%s'", op, apperrors.ErrNotFound, interviewerID)
	}

	return nil
}

func (r *UserRepository) IncrementSpecializationCounters(ctx context.Context, tx *sqlx.Tx, candidateMasteryID, interviewerMasteryID int64) error {
	const op = "internal.repository.postgres.user.IncrementSpecializationCounters"

	// Each counter is credited to its own side's specialization, the two
	// masteries may belong to different ones.
	counters := []struct {
		column    string
		masteryID int64
	}{
		{"completed_interviews", candidateMasteryID},
		{"conducted_interviews", interviewerMasteryID},
	}

	for _, c := range counters {
		query := fmt.Sprintf(`UPDATE specializations
			SET %s = %s + 1
			WHERE id = (SELECT specialization_id FROM masteries WHERE id = $1)`, c.column, c.column)

		res, err := tx.ExecContext(ctx, query, c.masteryID)
		if err != nil {
			return fmt.Errorf("%s: failed to update %s: %w", op, c.column, err)
		}

		if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
			return fmt.Errorf("%s: %w: specialization for mastery '%d'", op, apperrors.ErrNotFound, c.masteryID)
		}
	}

	return nil
}

func (r *UserRepository) GetStats(ctx context.Context) ([]domain.Stats, error) {
	const op = "internal.repository.postgres.user.GetStats"

	query, args, err := r.sq.Select(
		"id as user_id",
		"username",
		"completed_interviews",
		"conducted_interviews",
	).
		From("users").
		OrderBy("username").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var stats []domain.Stats
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return stats, nil
}
