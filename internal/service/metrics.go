package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/repository"
	"github.com/peerview/interview-service/pkg/logger/sl"
)

// MetricsService collects post-session feedback and folds it into the
// long-lived skill and mastery statistics once both sides have submitted.
type MetricsService interface {
	// SubmitFeedback records one participant's per-skill marks. The first
	// submission opens the feedback record, the counterpart's one completes
	// it and triggers aggregation of both mark sets.
	SubmitFeedback(ctx context.Context, interviewID, userID string, marks map[int64]int) error

	// GetStats returns per-user interview counters.
	GetStats(ctx context.Context) ([]domain.Stats, error)
}

type MetricsServiceImpl struct {
	BaseService
	sqlDB      *sqlx.DB
	interviews repository.InterviewRepository
	skills     repository.SkillRepository
	history    repository.HistoryRepository
	users      repository.UserRepository
	now        func() time.Time
}

func NewMetricsService(
	db Transactor,
	sqlDB *sqlx.DB,
	log *slog.Logger,
	interviews repository.InterviewRepository,
	skills repository.SkillRepository,
	history repository.HistoryRepository,
	users repository.UserRepository,
) *MetricsServiceImpl {
	return &MetricsServiceImpl{
		BaseService: NewBaseService(db, log),
		sqlDB:       sqlDB,
		interviews:  interviews,
		skills:      skills,
		history:     history,
		users:       users,
		now:         time.Now,
	}
}

func (s *MetricsServiceImpl) SubmitFeedback(ctx context.Context, interviewID, userID string, marks map[int64]int) error {
	const op = "internal.service.metrics.SubmitFeedback"
	log := s.log.With(
		slog.String("op", op),
		slog.String("interview_id", interviewID),
		slog.String("user_id", userID),
	)

	return s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		rows, err := s.interviews.GetPairForUpdate(ctx, tx, interviewID)
		if err != nil {
			return fmt.Errorf("%s: failed to load interview pair: %w", op, err)
		}

		submitter, counterpart := splitByUser(rows, userID)
		if submitter == nil {
			return fmt.Errorf("%s: user is not a participant: %w", op, apperrors.ErrNotFound)
		}

		// The submitted skill set must be exactly the one offered to this
		// participant, checked before anything is written.
		detail, err := s.history.GetFeedbackDetail(ctx, tx, interviewID, userID)
		if err != nil {
			return fmt.Errorf("%s: failed to load feedback detail: %w", op, err)
		}

		if mismatch := checkSkillSet(detail.SkillIDs, marks); mismatch != nil {
			return mismatch
		}

		hist, err := s.history.GetByInterviewForUpdate(ctx, tx, interviewID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			hist, err = s.openHistory(ctx, tx, submitter, counterpart)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		case err != nil:
			return fmt.Errorf("%s: failed to load feedback history: %w", op, err)
		default:
			if hist.Submitted(submitter.Role) {
				return fmt.Errorf("%s: %w", op, apperrors.ErrFeedbackAlreadySubmitted)
			}

			if err := s.history.MarkSubmitted(ctx, tx, hist.ID, submitter.Role); err != nil {
				return fmt.Errorf("%s: failed to mark feedback submitted: %w", op, err)
			}
		}

		if err := s.history.AddMarks(ctx, tx, hist.ID, submitter.Role, marks); err != nil {
			return fmt.Errorf("%s: failed to store marks: %w", op, err)
		}

		markSubmitted(hist, submitter.Role)

		if !hist.CandidateSubmitted || !hist.InterviewerSubmitted {
			log.Info("feedback recorded, waiting for counterpart")
			return nil
		}

		if err := s.aggregate(ctx, tx, hist, submitter, counterpart); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		log.Info("feedback complete, statistics aggregated")

		return nil
	})
}

// openHistory creates the feedback record on a session's first submission.
func (s *MetricsServiceImpl) openHistory(ctx context.Context, tx *sqlx.Tx, submitter, counterpart *domain.Interview) (*domain.InterviewHistory, error) {
	candidateID, interviewerID := submitter.UserID, counterpart.UserID
	if submitter.Role == domain.RoleInterviewer {
		candidateID, interviewerID = counterpart.UserID, submitter.UserID
	}

	hist := &domain.InterviewHistory{
		InterviewID:     submitter.InterviewID,
		Date:            submitter.StartTime,
		DurationMinutes: durationMinutes(submitter.StartTime, s.now()),
		CandidateID:     candidateID,
		InterviewerID:   interviewerID,
	}
	markSubmitted(hist, submitter.Role)

	id, err := s.history.Create(ctx, tx, hist)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback history: %w", err)
	}

	hist.ID = id

	return hist, nil
}

// aggregate folds both submissions into skill averages, mastery marks and
// interview counters, then retires the session.
func (s *MetricsServiceImpl) aggregate(ctx context.Context, tx *sqlx.Tx, hist *domain.InterviewHistory, submitter, counterpart *domain.Interview) error {
	if err := s.users.IncrementInterviewCounters(ctx, tx, hist.CandidateID, hist.InterviewerID); err != nil {
		return fmt.Errorf("failed to increment user counters: %w", err)
	}

	candidateMastery, interviewerMastery := submitter.MasteryID, counterpart.MasteryID
	if submitter.Role == domain.RoleInterviewer {
		candidateMastery, interviewerMastery = counterpart.MasteryID, submitter.MasteryID
	}

	if err := s.users.IncrementSpecializationCounters(ctx, tx, candidateMastery, interviewerMastery); err != nil {
		return fmt.Errorf("failed to increment specialization counters: %w", err)
	}

	allMarks, err := s.history.GetMarks(ctx, tx, hist.ID)
	if err != nil {
		return fmt.Errorf("failed to load marks: %w", err)
	}

	masteryIDs, err := s.applyMarks(ctx, tx, allMarks)
	if err != nil {
		return err
	}

	for _, masteryID := range masteryIDs {
		if err := s.recomputeMastery(ctx, tx, masteryID); err != nil {
			return err
		}
	}

	summary := domain.InterviewSummary{
		InterviewID:     hist.InterviewID,
		Date:            hist.Date,
		DurationMinutes: hist.DurationMinutes,
		CandidateID:     hist.CandidateID,
		InterviewerID:   hist.InterviewerID,
	}
	if err := s.history.CreateSummary(ctx, tx, summary); err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}

	if err := s.history.DeleteFeedbackDetails(ctx, tx, hist.InterviewID); err != nil {
		return fmt.Errorf("failed to delete feedback details: %w", err)
	}

	if err := s.interviews.DeletePair(ctx, tx, hist.InterviewID); err != nil {
		return fmt.Errorf("failed to delete interview pair: %w", err)
	}

	if err := s.interviews.DeleteEventByInterview(ctx, tx, hist.InterviewID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}

// applyMarks updates the running average of every marked skill, applying
// marks in submission order, and returns the affected mastery ids.
func (s *MetricsServiceImpl) applyMarks(ctx context.Context, tx *sqlx.Tx, allMarks []domain.SkillMark) ([]int64, error) {
	ids := make([]int64, 0, len(allMarks))
	seen := make(map[int64]bool, len(allMarks))

	for _, m := range allMarks {
		if !seen[m.SkillID] {
			seen[m.SkillID] = true
			ids = append(ids, m.SkillID)
		}
	}

	locked, err := s.skills.GetSkillsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock skills: %w", err)
	}

	byID := make(map[int64]*domain.Skill, len(locked))
	for i := range locked {
		byID[locked[i].ID] = &locked[i]
	}

	for _, m := range allMarks {
		applyMark(byID[m.SkillID], m.Mark)
	}

	masterySet := make(map[int64]bool)
	var masteryIDs []int64

	for _, id := range ids {
		sk := byID[id]
		if err := s.skills.UpdateSkillStats(ctx, tx, sk); err != nil {
			return nil, fmt.Errorf("failed to update skill stats: %w", err)
		}

		if !masterySet[sk.MasteryID] {
			masterySet[sk.MasteryID] = true
			masteryIDs = append(masteryIDs, sk.MasteryID)
		}
	}

	return masteryIDs, nil
}

// recomputeMastery rederives the hard and soft marks of a mastery from the
// current skill averages and snapshots the result.
func (s *MetricsServiceImpl) recomputeMastery(ctx context.Context, tx *sqlx.Tx, masteryID int64) error {
	skills, err := s.skills.GetMasterySkills(ctx, tx, masteryID)
	if err != nil {
		return fmt.Errorf("failed to load mastery skills: %w", err)
	}

	var hardSum, softSum float64
	var hardN, softN int

	for _, sk := range skills {
		switch sk.Type {
		case domain.SkillTypeHard:
			hardSum += sk.AverageMark
			hardN++
		case domain.SkillTypeSoft:
			softSum += sk.AverageMark
			softN++
		}
	}

	var hard, soft float64
	if hardN > 0 {
		hard = roundTo2(hardSum / float64(hardN))
	}
	if softN > 0 {
		soft = roundTo2(softSum / float64(softN))
	}

	if err := s.skills.UpdateMasteryMarks(ctx, tx, masteryID, hard, soft); err != nil {
		return fmt.Errorf("failed to update mastery marks: %w", err)
	}

	snap := domain.MasterySnapshot{
		MasteryID:     masteryID,
		Date:          s.now(),
		HardSkillMark: hard,
		SoftSkillMark: soft,
	}
	if err := s.skills.CreateMasterySnapshot(ctx, tx, snap); err != nil {
		return fmt.Errorf("failed to create mastery snapshot: %w", err)
	}

	return nil
}

func (s *MetricsServiceImpl) GetStats(ctx context.Context) ([]domain.Stats, error) {
	const op = "internal.service.metrics.GetStats"

	stats, err := s.users.GetStats(ctx)
	if err != nil {
		s.log.Error("failed to get stats", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: failed to get stats: %w", op, err)
	}

	return stats, nil
}

// applyMark folds one mark into a skill's running average. The grows flag
// compares the new average against the one before this mark.
func applyMark(sk *domain.Skill, mark int) {
	oldAvg := sk.AverageMark

	if sk.Counter == 0 {
		sk.AverageMark = float64(mark)
	} else {
		sk.AverageMark = roundTo2((oldAvg*float64(sk.Counter) + float64(mark)) / float64(sk.Counter+1))
	}

	sk.Grows = oldAvg <= sk.AverageMark
	sk.Counter++
}

// checkSkillSet verifies the submitted marks cover exactly the offered
// skills. Returns nil when the sets match.
func checkSkillSet(offered []int64, marks map[int64]int) error {
	offeredSet := make(map[int64]bool, len(offered))
	for _, id := range offered {
		offeredSet[id] = true
	}

	var missing, unknown []int64

	for _, id := range offered {
		if _, ok := marks[id]; !ok {
			missing = append(missing, id)
		}
	}

	for id := range marks {
		if !offeredSet[id] {
			unknown = append(unknown, id)
		}
	}

	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })

	return &apperrors.SkillMismatchError{Missing: missing, Unknown: unknown}
}

func splitByUser(rows []domain.Interview, userID string) (submitter, counterpart *domain.Interview) {
	for i := range rows {
		if rows[i].UserID == userID {
			submitter = &rows[i]
		} else {
			counterpart = &rows[i]
		}
	}

	return submitter, counterpart
}

func markSubmitted(h *domain.InterviewHistory, role domain.Role) {
	if role == domain.RoleCandidate {
		h.CandidateSubmitted = true
	} else {
		h.InterviewerSubmitted = true
	}
}

func durationMinutes(start, now time.Time) int {
	minutes := int(now.Sub(start).Minutes())
	if minutes < 0 {
		return 0
	}

	return minutes
}
