// package repository defines the interfaces for the data persistence layer.
// These interfaces abstract the underlying database implementation from the service layer.
package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/peerview/interview-service/internal/domain"
)

// RequestRepository is the durable store of interview requests.
type RequestRepository interface {
	// Create inserts a request together with its proposed time slots and
	// returns the generated id. Intended to run within a transaction.
	Create(ctx context.Context, tx *sqlx.Tx, req *domain.InterviewRequest) (int64, error)

	// GetByID loads a request with its time slots and assigned dates.
	// The ext argument allows execution within a transaction (*sqlx.Tx)
	// or directly on a DB connection (*sqlx.DB).
	// It returns apperrors.ErrNotFound if the request does not exist.
	GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.InterviewRequest, error)

	// GetByIDForUpdate loads a request and acquires a row-level lock ("FOR UPDATE").
	// Consuming a request into a pair must go through this method so two
	// concurrent matches can never both take the same request.
	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.InterviewRequest, error)

	// Update rewrites the mutable request fields and replaces its time slots.
	Update(ctx context.Context, tx *sqlx.Tx, req *domain.InterviewRequest) error

	// Delete removes the request and its slot rows.
	Delete(ctx context.Context, tx *sqlx.Tx, id int64) error

	// SetActive flips the active flag.
	SetActive(ctx context.Context, tx *sqlx.Tx, id int64, active bool) error

	// AddAssignedDate appends one assigned-date entry.
	AddAssignedDate(ctx context.Context, tx *sqlx.Tx, id int64, date time.Time) error

	// RemoveAssignedDate drops one assigned-date entry, used on pair rejection.
	RemoveAssignedDate(ctx context.Context, tx *sqlx.Tx, id int64, date time.Time) error

	// FindCompatible searches for the oldest active opposite-role request that
	// targets the same mastery and language, shares at least one proposed time
	// slot with req and has not exhausted its desired interview count.
	// Returns (nil, nil) when no compatible request exists.
	FindCompatible(ctx context.Context, ext sqlx.ExtContext, req *domain.InterviewRequest) (*domain.InterviewRequest, error)
}

// InterviewRepository persists booked sessions. A session is always two rows
// sharing one interview id; both are written and deleted together.
type InterviewRepository interface {
	// CreatePair inserts both participant rows of one session.
	CreatePair(ctx context.Context, tx *sqlx.Tx, a, b domain.Interview) error

	// GetPair loads both rows of a session.
	// It returns apperrors.ErrNotFound if no rows exist.
	GetPair(ctx context.Context, ext sqlx.ExtContext, interviewID string) ([]domain.Interview, error)

	// GetPairForUpdate loads both rows with a row-level lock.
	GetPairForUpdate(ctx context.Context, tx *sqlx.Tx, interviewID string) ([]domain.Interview, error)

	// DeletePair removes both rows of a session.
	DeletePair(ctx context.Context, tx *sqlx.Tx, interviewID string) error

	// ListPendingFeedback returns participant rows whose start time falls in
	// [from, to) and whose session has produced no history record yet.
	ListPendingFeedback(ctx context.Context, from, to time.Time) ([]domain.Interview, error)

	// CreateEvent inserts the calendar event of a session.
	CreateEvent(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error

	// DeleteEventByInterview removes the calendar event of a session.
	DeleteEventByInterview(ctx context.Context, tx *sqlx.Tx, interviewID string) error
}

// SkillRepository reads and mutates skills and their parent masteries.
type SkillRepository interface {
	// GetMastery returns a mastery by id, apperrors.ErrNotFound when absent.
	GetMastery(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Mastery, error)

	// GetMasterySkills returns all skills of a mastery.
	GetMasterySkills(ctx context.Context, ext sqlx.ExtContext, masteryID int64) ([]domain.Skill, error)

	// GetSkillsForUpdate loads the given skills with row-level locks.
	// It returns apperrors.ErrNotFound if any of the ids does not exist.
	GetSkillsForUpdate(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]domain.Skill, error)

	// UpdateSkillStats writes back average mark, counter and grows flag.
	UpdateSkillStats(ctx context.Context, tx *sqlx.Tx, skill *domain.Skill) error

	// UpdateMasteryMarks writes the derived hard/soft skill marks.
	UpdateMasteryMarks(ctx context.Context, tx *sqlx.Tx, masteryID int64, hard, soft float64) error

	// CreateMasterySnapshot persists a point-in-time copy of the mastery marks.
	CreateMasterySnapshot(ctx context.Context, tx *sqlx.Tx, snap domain.MasterySnapshot) error
}

// HistoryRepository persists feedback history, summaries and staging details.
type HistoryRepository interface {
	// GetByInterviewForUpdate loads the history record of a session with a
	// row-level lock. Returns apperrors.ErrNotFound when no record exists yet.
	GetByInterviewForUpdate(ctx context.Context, tx *sqlx.Tx, interviewID string) (*domain.InterviewHistory, error)

	// Create inserts a history record and returns its id.
	Create(ctx context.Context, tx *sqlx.Tx, h *domain.InterviewHistory) (int64, error)

	// MarkSubmitted flags one side's feedback as submitted.
	MarkSubmitted(ctx context.Context, tx *sqlx.Tx, historyID int64, role domain.Role) error

	// AddMarks stores the raw per-skill marks of one submission.
	AddMarks(ctx context.Context, tx *sqlx.Tx, historyID int64, role domain.Role, marks map[int64]int) error

	// GetMarks returns all raw marks of a history record in insertion order.
	GetMarks(ctx context.Context, tx *sqlx.Tx, historyID int64) ([]domain.SkillMark, error)

	// CreateSummary inserts the immutable summary of a finished session.
	CreateSummary(ctx context.Context, tx *sqlx.Tx, s domain.InterviewSummary) error

	// CreateFeedbackDetail inserts the staging record listing the skills a
	// participant is expected to evaluate.
	CreateFeedbackDetail(ctx context.Context, tx *sqlx.Tx, d domain.FeedbackDetail) error

	// GetFeedbackDetail returns the staging record for one participant.
	// It returns apperrors.ErrNotFound when absent.
	GetFeedbackDetail(ctx context.Context, ext sqlx.ExtContext, interviewID, userID string) (*domain.FeedbackDetail, error)

	// DeleteFeedbackDetails removes all staging records of a session.
	DeleteFeedbackDetails(ctx context.Context, tx *sqlx.Tx, interviewID string) error
}

// UserRepository covers user entities and the interview counters.
type UserRepository interface {
	// GetByID returns a user, apperrors.ErrNotFound when absent.
	GetByID(ctx context.Context, ext sqlx.ExtContext, id string) (*domain.User, error)

	// IncrementInterviewCounters bumps the candidate's completed and the
	// interviewer's conducted counter by one. Counters only grow.
	IncrementInterviewCounters(ctx context.Context, tx *sqlx.Tx, candidateID, interviewerID string) error

	// IncrementSpecializationCounters bumps the completed counter of the
	// specialization owning the candidate's mastery and the conducted
	// counter of the one owning the interviewer's mastery. The masteries
	// coincide for locally matched pairs but may differ for external ones.
	IncrementSpecializationCounters(ctx context.Context, tx *sqlx.Tx, candidateMasteryID, interviewerMasteryID int64) error

	// GetStats returns per-user interview counters.
	GetStats(ctx context.Context) ([]domain.Stats, error)
}

// NotificationRepository owns the per-user notification feed.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (int64, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)

	// MarkRead flags a notification as read; apperrors.ErrNotFound if the
	// notification does not exist or belongs to another user.
	MarkRead(ctx context.Context, id int64, userID string) error
}
