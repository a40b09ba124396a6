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

type SkillRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewSkillRepository(db *sqlx.DB, log *slog.Logger) *SkillRepository {
	return &SkillRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *SkillRepository) GetMastery(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Mastery, error) {
	const op = "internal.repository.postgres.skill.GetMastery"

	query, args, err := r.sq.Select("id", "specialization_id", "level", "hard_skill_mark", "soft_skill_mark").
		From("masteries").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var mastery domain.Mastery
	if err := sqlx.GetContext(ctx, ext, &mastery, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: mastery with id '%d'", op, apperrors.ErrNotFound, id)
		}

		return nil, fmt.Errorf("%s: failed to get mastery: %w", op, err)
	}

	return &mastery, nil
}

func (r *SkillRepository) GetMasterySkills(ctx context.Context, ext sqlx.ExtContext, masteryID int64) ([]domain.Skill, error) {
	const op = "internal.repository.postgres.skill.GetMasterySkills"

	query, args, err := r.sq.Select("id", "mastery_id", "name", "type", "average_mark", "counter", "grows").
		From("skills").
		Where(sq.Eq{"mastery_id": masteryID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var skills []domain.Skill
	if err := sqlx.SelectContext(ctx, ext, &skills, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select skills: %w", op, err)
	}

	return skills, nil
}

func (r *SkillRepository) GetSkillsForUpdate(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]domain.Skill, error) {
	const op = "internal.repository.postgres.skill.GetSkillsForUpdate"

	query, args, err := r.sq.Select("id", "mastery_id", "name", "type", "average_mark", "counter", "grows").
		From("skills").
		Where(sq.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var skills []domain.Skill
	if err := tx.SelectContext(ctx, &skills, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select skills: %w", op, err)
	}

	if len(skills) != len(ids) {
		return nil, fmt.Errorf("%s: %w: %d of %d skills exist", op, apperrors.ErrNotFound, len(skills), len(ids))
	}

	return skills, nil
}

func (r *SkillRepository) UpdateSkillStats(ctx context.Context, tx *sqlx.Tx, skill *domain.Skill) error {
	const op = "internal.repository.postgres.skill.UpdateSkillStats"

	query, args, err := r.sq.Update("skills").
		Set("average_mark", skill.AverageMark).
		Set("counter", skill.Counter).
		Set("grows", skill.Grows).
		Where(sq.Eq{"id": skill.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: skill with id '%d'", op, apperrors.ErrNotFound, skill.ID)
	}

	return nil
}

func (r *SkillRepository) UpdateMasteryMarks(ctx context.Context, tx *sqlx.Tx, masteryID int64, hard, soft float64) error {
	const op = "internal.repository.postgres.skill.UpdateMasteryMarks"

	query, args, err := r.sq.Update("masteries").
		Set("hard_skill_mark", hard).
		Set("soft_skill_mark", soft).
		Where(sq.Eq{"id": masteryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: mastery with id '%d'", op, apperrors.ErrNotFound, masteryID)
	}

	return nil
}

func (r *SkillRepository) CreateMasterySnapshot(ctx context.Context, tx *sqlx.Tx, snap domain.MasterySnapshot) error {
	const op = "internal.repository.postgres.skill.CreateMasterySnapshot"

	query, args, err := r.sq.Insert("mastery_history").
		Columns("mastery_id", "date", "hard_skill_mark", "soft_skill_mark").
		Values(snap.MasteryID, snap.Date.UTC(), snap.HardSkillMark, snap.SoftSkillMark).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}
