package domain

import (
	"time"

	"github.com/lib/pq"
)

// Role is the side a user takes in an interview.
type Role string

const (
	RoleCandidate   Role = "CANDIDATE"
	RoleInterviewer Role = "INTERVIEWER"
)

// Opposite returns the counterpart role for matching.
func (r Role) Opposite() Role {
	if r == RoleCandidate {
		return RoleInterviewer
	}

	return RoleCandidate
}

type SkillType string

const (
	SkillTypeHard SkillType = "HARD_SKILL"
	SkillTypeSoft SkillType = "SOFT_SKILL"
)

// InterviewRequest is a standing offer to be matched as candidate or interviewer.
type InterviewRequest struct {
	ID                int64     `db:"id"`
	UserID            string    `db:"user_id"`
	MasteryID         int64     `db:"mastery_id"`
	Role              Role      `db:"role"`
	DesiredInterviews int       `db:"desired_interviews"`
	LanguageCode      string    `db:"language_code"`
	IsActive          bool      `db:"is_active"`
	CreatedAt         time.Time `db:"created_at"`
	TimeSlots         []time.Time
	AssignedDates     []time.Time
}

// MatchedPair carries the two requests selected for one interview session.
type MatchedPair struct {
	Requests []InterviewRequest
}

// Candidate returns the candidate-side request of the pair, or nil.
func (p MatchedPair) Candidate() *InterviewRequest {
	return p.byRole(RoleCandidate)
}

// Interviewer returns the interviewer-side request of the pair, or nil.
func (p MatchedPair) Interviewer() *InterviewRequest {
	return p.byRole(RoleInterviewer)
}

func (p MatchedPair) byRole(role Role) *InterviewRequest {
	for i := range p.Requests {
		if p.Requests[i].Role == role {
			return &p.Requests[i]
		}
	}

	return nil
}

// Interview is one participant's row of a booked session. A session always
// consists of two rows sharing one InterviewID.
type Interview struct {
	InterviewID string    `db:"interview_id" json:"interview_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	RequestID   int64     `db:"request_id" json:"request_id"`
	MasteryID   int64     `db:"mastery_id" json:"mastery_id"`
	Role        Role      `db:"role" json:"role"`
	RoomURL     string    `db:"room_url" json:"room_url"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
}

// Event is the calendar entry shown to both participants of a session.
type Event struct {
	ID          string    `db:"id"`
	InterviewID string    `db:"interview_id"`
	Title       string    `db:"title"`
	StartTime   time.Time `db:"start_time"`
}

type Skill struct {
	ID          int64     `db:"id"`
	MasteryID   int64     `db:"mastery_id"`
	Name        string    `db:"name"`
	Type        SkillType `db:"type"`
	AverageMark float64   `db:"average_mark"`
	Counter     int       `db:"counter"`
	Grows       bool      `db:"grows"`
}

type Mastery struct {
	ID               int64   `db:"id"`
	SpecializationID int64   `db:"specialization_id"`
	Level            string  `db:"level"`
	HardSkillMark    float64 `db:"hard_skill_mark"`
	SoftSkillMark    float64 `db:"soft_skill_mark"`
}

// MasterySnapshot is a point-in-time copy of the derived mastery marks,
// persisted after every aggregation for trend tracking.
type MasterySnapshot struct {
	MasteryID     int64     `db:"mastery_id"`
	Date          time.Time `db:"date"`
	HardSkillMark float64   `db:"hard_skill_mark"`
	SoftSkillMark float64   `db:"soft_skill_mark"`
}

// InterviewHistory is the per-session feedback record. It is created by the
// first submission and completed by the counterpart's one.
type InterviewHistory struct {
	ID                   int64     `db:"id"`
	InterviewID          string    `db:"interview_id"`
	Date                 time.Time `db:"date"`
	DurationMinutes      int       `db:"duration_minutes"`
	CandidateID          string    `db:"candidate_id"`
	InterviewerID        string    `db:"interviewer_id"`
	CandidateSubmitted   bool      `db:"candidate_submitted"`
	InterviewerSubmitted bool      `db:"interviewer_submitted"`
}

// Submitted reports whether the given role has already submitted feedback.
func (h *InterviewHistory) Submitted(role Role) bool {
	if role == RoleCandidate {
		return h.CandidateSubmitted
	}

	return h.InterviewerSubmitted
}

// SkillMark is one raw mark attached to a history record.
type SkillMark struct {
	HistoryID   int64 `db:"history_id"`
	SubmittedBy Role  `db:"submitted_by"`
	SkillID     int64 `db:"skill_id"`
	Mark        int   `db:"mark"`
}

// InterviewSummary is the immutable record of a finished session.
type InterviewSummary struct {
	InterviewID     string    `db:"interview_id"`
	Date            time.Time `db:"date"`
	DurationMinutes int       `db:"duration_minutes"`
	CandidateID     string    `db:"candidate_id"`
	InterviewerID   string    `db:"interviewer_id"`
}

// FeedbackDetail is the staging record listing which skills a participant is
// expected to evaluate. Deleted once both sides have submitted.
type FeedbackDetail struct {
	ID          int64         `db:"id"`
	InterviewID string        `db:"interview_id"`
	UserID      string        `db:"user_id"`
	SkillIDs    pq.Int64Array `db:"skill_ids"`
}

type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	Payload   string    `db:"payload" json:"payload"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type User struct {
	ID                  string `db:"id"`
	Username            string `db:"username"`
	Email               string `db:"email"`
	CompletedInterviews int    `db:"completed_interviews"`
	ConductedInterviews int    `db:"conducted_interviews"`
}

type Stats struct {
	UserID              string `db:"user_id" json:"user_id"`
	Username            string `db:"username" json:"username"`
	CompletedInterviews int    `db:"completed_interviews" json:"completed_interviews"`
	ConductedInterviews int    `db:"conducted_interviews" json:"conducted_interviews"`
}
