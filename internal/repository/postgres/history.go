package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
)

type HistoryRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewHistoryRepository(db *sqlx.DB, log *slog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *HistoryRepository) GetByInterviewForUpdate(ctx context.Context, tx *sqlx.Tx, interviewID string) (*domain.InterviewHistory, error) {
	const op = "internal.repository.postgres.history.GetByInterviewForUpdate"

	query, args, err := r.sq.Select("id", "interview_id", "date", "duration_minutes", "candidate_id", "interviewer_id", "candidate_submitted", "interviewer_submitted").
		From("interview_history").
		Where(sq.Eq{"interview_id": interviewID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var h domain.InterviewHistory
	if err := tx.GetContext(ctx, &h, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: history for interview '%s'", op, apperrors.ErrNotFound, interviewID)
		}

		return nil, fmt.Errorf("%s: failed to get history: %w", op, err)
	}

	return &h, nil
}

func (r *HistoryRepository) Create(ctx context.Context, tx *sqlx.Tx, h *domain.InterviewHistory) (int64, error) {
	const op = "internal.repository.postgres.history.Create"

	query, args, err := r.sq.Insert("interview_history").
		Columns("interview_id", "date", "duration_minutes", "candidate_id", "interviewer_id", "candidate_submitted", "interviewer_submitted").
		Values(h.InterviewID, h.Date.UTC(), h.DurationMinutes, h.CandidateID, h.InterviewerID, h.CandidateSubmitted, h.InterviewerSubmitted).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&h.ID); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return 0, fmt.Errorf("%s: %w: history for interview '%s'", op, apperrors.ErrAlreadyExists, h.InterviewID)
		}

		return 0, fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return h.ID, nil
}

func (r *HistoryRepository) MarkSubmitted(ctx context.Context, tx *sqlx.Tx, historyID int64, role domain.Role) error {
	const op = "internal.repository.postgres.history.MarkSubmitted"

	column := "interviewer_submitted"
	if role == domain.RoleCandidate {
		column = "candidate_submitted"
	}

	query, args, err := r.sq.Update("interview_history").
		Set(column, true).
		Where(sq.Eq{"id": historyID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: history with id '%d'", op, apperrors.ErrNotFound, historyID)
	}

	return nil
}

func (r *HistoryRepository) AddMarks(ctx context.Context, tx *sqlx.Tx, historyID int64, role domain.Role, marks map[int64]int) error {
	const op = "internal.repository.postgres.history.AddMarks"

	if len(marks) == 0 {
		return nil
	}

	// Deterministic insertion order, map iteration is randomized.
	skillIDs := make([]int64, 0, len(marks))
	for skillID := range marks {
		skillIDs = append(skillIDs, skillID)
	}
	sort.Slice(skillIDs, func(i, j int) bool { return skillIDs[i] < skillIDs[j] })

	insertBuilder := r.sq.Insert("history_marks").
		Columns("history_id", "submitted_by", "skill_id", "mark")

	for _, skillID := range skillIDs {
		insertBuilder = insertBuilder.Values(historyID, role, skillID, marks[skillID])
	}

	query, args, err := insertBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *HistoryRepository) GetMarks(ctx context.Context, tx *sqlx.Tx, historyID int64) ([]domain.SkillMark, error) {
	const op = "internal.repository.postgres.history.GetMarks"

	query, args, err := r.sq.Select("history_id", "submitted_by", "skill_id", "mark").
		From("history_marks").
		Where(sq.Eq{"history_id": historyID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var marks []domain.SkillMark
	if err := tx.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select marks: %w", op, err)
	}

	return marks, nil
}

func (r *HistoryRepository) CreateSummary(ctx context.Context, tx *sqlx.Tx, s domain.InterviewSummary) error {
	const op = "internal.repository.postgres.history.CreateSummary"

	query, args, err := r.sq.Insert("interview_summaries").
		Columns("interview_id", "date", "duration_minutes", "candidate_id", "interviewer_id").
		Values(s.InterviewID, s.Date.UTC(), s.DurationMinutes, s.CandidateID, s.InterviewerID).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("%s: %w: summary for interview '%s'", op, apperrors.ErrAlreadyExists, s.InterviewID)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *HistoryRepository) CreateFeedbackDetail(ctx context.Context, tx *sqlx.Tx, d domain.FeedbackDetail) error {
	const op = "internal.repository.postgres.history.CreateFeedbackDetail"

	query, args, err := r.sq.Insert("feedback_details").
		Columns("interview_id", "user_id", "skill_ids").
		Values(d.InterviewID, d.UserID, d.SkillIDs).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *HistoryRepository) GetFeedbackDetail(ctx context.Context, ext sqlx.ExtContext, interviewID, userID string) (*domain.FeedbackDetail, error) {
	const op = "internal.repository.postgres.history.GetFeedbackDetail"

	query, args, err := r.sq.Select("id", "interview_id", "user_id", "skill_ids").
		From("feedback_details").
		Where(sq.Eq{"interview_id": interviewID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var d domain.FeedbackDetail
	if err := sqlx.GetContext(ctx, ext, &d, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: feedback detail for interview '%s' user '%s'", op, apperrors.ErrNotFound, interviewID, userID)
		}

		return nil, fmt.Errorf("%s: failed to get feedback detail: %w", op, err)
	}

	return &d, nil
}

func (r *HistoryRepository) DeleteFeedbackDetails(ctx context.Context, tx *sqlx.Tx, interviewID string) error {
	const op = "internal.repository.postgres.history.DeleteFeedbackDetails"

	query, args, err := r.sq.Delete("feedback_details").
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
