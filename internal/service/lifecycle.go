package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/gateway"
	"github.com/peerview/interview-service/internal/repository"
	"github.com/peerview/interview-service/pkg/logger/sl"
)

// LifecycleService materializes matched pairs into interview sessions and
// tears them down again on rejection.
type LifecycleService interface {
	// CreatePair books a session for a matched pair: two interview rows
	// sharing one id, a calendar event, assigned dates on both requests and
	// deactivation of both requests, all in one transaction. A pair is never
	// half-created.
	CreatePair(ctx context.Context, pair domain.MatchedPair) (*domain.Interview, *domain.Interview, error)

	// RejectPair deletes both sides of a session plus its event, returns both
	// requests to the pool and attempts to re-match each of them.
	RejectPair(ctx context.Context, interviewID, initiatorID string) error

	// GetInterview returns both participant rows of a booked session.
	GetInterview(ctx context.Context, interviewID string) ([]domain.Interview, error)
}

type LifecycleServiceImpl struct {
	BaseService
	sqlDB         *sqlx.DB
	requests      repository.RequestRepository
	interviews    repository.InterviewRepository
	skills        repository.SkillRepository
	history       repository.HistoryRepository
	users         repository.UserRepository
	matching      MatchingService
	notifications gateway.NotificationGateway
	email         gateway.EmailGateway
	meeting       gateway.MeetingProvider
}

func NewLifecycleService(
	db Transactor,
	sqlDB *sqlx.DB,
	log *slog.Logger,
	requests repository.RequestRepository,
	interviews repository.InterviewRepository,
	skills repository.SkillRepository,
	history repository.HistoryRepository,
	users repository.UserRepository,
	matching MatchingService,
	notifications gateway.NotificationGateway,
	email gateway.EmailGateway,
	meeting gateway.MeetingProvider,
) *LifecycleServiceImpl {
	return &LifecycleServiceImpl{
		BaseService:   NewBaseService(db, log),
		sqlDB:         sqlDB,
		requests:      requests,
		interviews:    interviews,
		skills:        skills,
		history:       history,
		users:         users,
		matching:      matching,
		notifications: notifications,
		email:         email,
		meeting:       meeting,
	}
}

func (s *LifecycleServiceImpl) CreatePair(ctx context.Context, pair domain.MatchedPair) (*domain.Interview, *domain.Interview, error) {
	const op = "internal.service.lifecycle.CreatePair"

	candReq := pair.Candidate()
	intrReq := pair.Interviewer()

	if candReq == nil || intrReq == nil {
		return nil, nil, fmt.Errorf("%s: %w", op, apperrors.ErrIncompletePair)
	}

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("candidate_request_id", candReq.ID),
		slog.Int64("interviewer_request_id", intrReq.ID),
	)

	startTime, ok := firstCommonSlot(candReq, intrReq)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", op, apperrors.ErrNoCommonSlot)
	}

	// No room, no pair: a provisioning failure aborts the whole operation
	// before anything is written.
	roomURL, err := s.meeting.CreateRoom(ctx, "Mock interview", startTime)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to create meeting room: %w", op, err)
	}

	interviewID := uuid.NewString()

	candidate := domain.Interview{
		InterviewID: interviewID,
		UserID:      candReq.UserID,
		RequestID:   candReq.ID,
		MasteryID:   candReq.MasteryID,
		Role:        domain.RoleCandidate,
		RoomURL:     roomURL,
		StartTime:   startTime,
	}
	interviewer := domain.Interview{
		InterviewID: interviewID,
		UserID:      intrReq.UserID,
		RequestID:   intrReq.ID,
		MasteryID:   intrReq.MasteryID,
		Role:        domain.RoleInterviewer,
		RoomURL:     roomURL,
		StartTime:   startTime,
	}

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		// Re-check both requests under row locks so two concurrent matches
		// can never consume the same request into two pairs.
		for _, reqID := range []int64{candReq.ID, intrReq.ID} {
			locked, err := s.requests.GetByIDForUpdate(ctx, tx, reqID)
			if err != nil {
				return fmt.Errorf("%s: failed to lock request: %w", op, err)
			}

			if !locked.IsActive {
				return &apperrors.RequestConsumedError{RequestID: reqID}
			}
		}

		if err := s.interviews.CreatePair(ctx, tx, candidate, interviewer); err != nil {
			return fmt.Errorf("%s: failed to create interview pair: %w", op, err)
		}

		event := domain.Event{
			ID:          uuid.NewString(),
			InterviewID: interviewID,
			Title:       "Mock interview",
			StartTime:   startTime,
		}
		if err := s.interviews.CreateEvent(ctx, tx, event); err != nil {
			return fmt.Errorf("%s: failed to create event: %w", op, err)
		}

		for _, reqID := range []int64{candReq.ID, intrReq.ID} {
			if err := s.requests.AddAssignedDate(ctx, tx, reqID, startTime); err != nil {
				return fmt.Errorf("%s: failed to add assigned date: %w", op, err)
			}

			if err := s.requests.SetActive(ctx, tx, reqID, false); err != nil {
				return fmt.Errorf("%s: failed to deactivate request: %w", op, err)
			}
		}

		if err := s.createFeedbackDetails(ctx, tx, interviewID, candReq.MasteryID, candReq.UserID, intrReq.UserID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info("interview pair created",
		slog.String("interview_id", interviewID),
		slog.Time("start_time", startTime),
	)

	// Notifications and emails are fire-and-log: a delivery failure never
	// undoes a successfully created pair.
	s.notifyScheduled(ctx, candidate, interviewer)

	return &candidate, &interviewer, nil
}

func (s *LifecycleServiceImpl) createFeedbackDetails(ctx context.Context, tx *sqlx.Tx, interviewID string, masteryID int64, candidateID, interviewerID string) error {
	skills, err := s.skills.GetMasterySkills(ctx, tx, masteryID)
	if err != nil {
		return fmt.Errorf("failed to load mastery skills: %w", err)
	}

	skillIDs := make(pq.Int64Array, len(skills))
	for i, sk := range skills {
		skillIDs[i] = sk.ID
	}

	for _, userID := range []string{candidateID, interviewerID} {
		detail := domain.FeedbackDetail{
			InterviewID: interviewID,
			UserID:      userID,
			SkillIDs:    skillIDs,
		}
		if err := s.history.CreateFeedbackDetail(ctx, tx, detail); err != nil {
			return fmt.Errorf("failed to create feedback detail: %w", err)
		}
	}

	return nil
}

func (s *LifecycleServiceImpl) RejectPair(ctx context.Context, interviewID, initiatorID string) error {
	const op = "internal.service.lifecycle.RejectPair"
	log := s.log.With(slog.String("op", op), slog.String("interview_id", interviewID))

	var rows []domain.Interview

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		rows, err = s.interviews.GetPairForUpdate(ctx, tx, interviewID)
		if err != nil {
			return fmt.Errorf("%s: failed to load interview pair: %w", op, err)
		}

		if err := s.interviews.DeletePair(ctx, tx, interviewID); err != nil {
			return fmt.Errorf("%s: failed to delete interview pair: %w", op, err)
		}

		if err := s.interviews.DeleteEventByInterview(ctx, tx, interviewID); err != nil {
			return fmt.Errorf("%s: failed to delete event: %w", op, err)
		}

		if err := s.history.DeleteFeedbackDetails(ctx, tx, interviewID); err != nil {
			return fmt.Errorf("%s: failed to delete feedback details: %w", op, err)
		}

		// A rejected request does not disappear, it returns to the pool.
		for _, row := range rows {
			if _, err := s.requests.GetByIDForUpdate(ctx, tx, row.RequestID); err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					log.Warn("originating request no longer exists", slog.Int64("request_id", row.RequestID))
					continue
				}

				return fmt.Errorf("%s: failed to lock request: %w", op, err)
			}

			if err := s.requests.RemoveAssignedDate(ctx, tx, row.RequestID, row.StartTime); err != nil {
				return fmt.Errorf("%s: failed to remove assigned date: %w", op, err)
			}

			if err := s.requests.SetActive(ctx, tx, row.RequestID, true); err != nil {
				return fmt.Errorf("%s: failed to reactivate request: %w", op, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Info("interview pair rejected", slog.String("initiator_id", initiatorID))

	s.notifyRejected(ctx, rows, initiatorID)

	// Each side immediately tries to find a new partner. Failures here are
	// logged, the rejection itself already succeeded.
	for _, row := range rows {
		s.rematch(ctx, row.RequestID)
	}

	return nil
}

func (s *LifecycleServiceImpl) GetInterview(ctx context.Context, interviewID string) ([]domain.Interview, error) {
	const op = "internal.service.lifecycle.GetInterview"

	rows, err := s.interviews.GetPair(ctx, s.sqlDB, interviewID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get interview pair: %w", op, err)
	}

	return rows, nil
}

func (s *LifecycleServiceImpl) rematch(ctx context.Context, requestID int64) {
	const op = "internal.service.lifecycle.rematch"
	log := s.log.With(slog.String("op", op), slog.Int64("request_id", requestID))

	req, err := s.requests.GetByID(ctx, s.sqlDB, requestID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Error("failed to load request for re-matching", sl.Err(err))
		}

		return
	}

	if !req.IsActive {
		return
	}

	counterpart, err := s.matching.Match(ctx, req)
	if err != nil {
		log.Error("re-matching failed", sl.Err(err))
		return
	}

	if counterpart == nil {
		return
	}

	if _, _, err := s.CreatePair(ctx, domain.MatchedPair{Requests: []domain.InterviewRequest{*req, *counterpart}}); err != nil {
		if errors.Is(err, apperrors.ErrRequestConsumed) {
			log.Info("counterpart consumed concurrently, request stays in pool")
			return
		}

		log.Error("failed to create pair after re-matching", sl.Err(err))
	}
}

func (s *LifecycleServiceImpl) notifyScheduled(ctx context.Context, candidate, interviewer domain.Interview) {
	const op = "internal.service.lifecycle.notifyScheduled"
	log := s.log.With(slog.String("op", op), slog.String("interview_id", candidate.InterviewID))

	candUser, candErr := s.users.GetByID(ctx, s.sqlDB, candidate.UserID)
	intrUser, intrErr := s.users.GetByID(ctx, s.sqlDB, interviewer.UserID)

	for _, row := range []domain.Interview{candidate, interviewer} {
		payload := fmt.Sprintf("Interview scheduled for %s, room: %s", row.StartTime.Format(time.RFC3339), row.RoomURL)
		if err := s.notifications.Send(ctx, row.UserID, gateway.KindInterviewScheduled, payload); err != nil {
			log.Error("failed to send scheduled notification", sl.Err(err), slog.String("user_id", row.UserID))
		}
	}

	if candErr != nil || intrErr != nil {
		log.Error("failed to load participants for email", sl.Err(errors.Join(candErr, intrErr)))
		return
	}

	if err := s.email.SendScheduled(ctx, candUser, intrUser, candidate.StartTime, candidate.RoomURL); err != nil {
		log.Error("failed to send scheduled email", sl.Err(err), slog.String("user_id", candUser.ID))
	}

	if err := s.email.SendScheduled(ctx, intrUser, candUser, interviewer.StartTime, interviewer.RoomURL); err != nil {
		log.Error("failed to send scheduled email", sl.Err(err), slog.String("user_id", intrUser.ID))
	}
}

func (s *LifecycleServiceImpl) notifyRejected(ctx context.Context, rows []domain.Interview, initiatorID string) {
	const op = "internal.service.lifecycle.notifyRejected"
	log := s.log.With(slog.String("op", op))

	var initiator, recipient *domain.Interview

	for i := range rows {
		if rows[i].UserID == initiatorID {
			initiator = &rows[i]
		} else {
			recipient = &rows[i]
		}
	}

	for _, row := range rows {
		payload := fmt.Sprintf("Interview on %s was cancelled", row.StartTime.Format(time.RFC3339))
		if err := s.notifications.Send(ctx, row.UserID, gateway.KindInterviewRejected, payload); err != nil {
			log.Error("failed to send rejection notification", sl.Err(err), slog.String("user_id", row.UserID))
		}
	}

	if initiator == nil || recipient == nil {
		return
	}

	rejector, err := s.users.GetByID(ctx, s.sqlDB, initiator.UserID)
	if err != nil {
		log.Error("failed to load rejecting user for email", sl.Err(err))
		return
	}

	recipientUser, err := s.users.GetByID(ctx, s.sqlDB, recipient.UserID)
	if err != nil {
		log.Error("failed to load recipient user for email", sl.Err(err))
		return
	}

	if err := s.email.SendRejected(ctx, recipientUser, rejector, recipient.StartTime); err != nil {
		log.Error("failed to send rejection email", sl.Err(err), slog.String("user_id", recipientUser.ID))
	}
}

// firstCommonSlot returns the earliest proposed time slot shared by both
// requests.
func firstCommonSlot(a, b *domain.InterviewRequest) (time.Time, bool) {
	slots := make(map[int64]time.Time, len(a.TimeSlots))
	for _, slot := range a.TimeSlots {
		slots[slot.UTC().Unix()] = slot.UTC()
	}

	var common []time.Time

	for _, slot := range b.TimeSlots {
		if t, ok := slots[slot.UTC().Unix()]; ok {
			common = append(common, t)
		}
	}

	if len(common) == 0 {
		return time.Time{}, false
	}

	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	return common[0], true
}
