package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/repository"
	"github.com/peerview/interview-service/pkg/logger/sl"
)

// RequestPublisher announces newly created requests to the matcher queue.
// Declared here so the service does not depend on the queue package.
type RequestPublisher interface {
	PublishRequest(ctx context.Context, requestID int64, req *domain.InterviewRequest) error
}

// RequestService owns the lifecycle of interview requests: creation with an
// immediate matching attempt, updates and withdrawal.
type RequestService interface {
	CreateRequest(ctx context.Context, req *domain.InterviewRequest) (int64, error)
	UpdateRequest(ctx context.Context, req *domain.InterviewRequest) error
	WithdrawRequest(ctx context.Context, id int64, userID string) error
}

type RequestServiceImpl struct {
	BaseService
	requests  repository.RequestRepository
	skills    repository.SkillRepository
	matching  MatchingService
	lifecycle LifecycleService
	publisher RequestPublisher
}

func NewRequestService(
	db Transactor,
	log *slog.Logger,
	requests repository.RequestRepository,
	skills repository.SkillRepository,
	matching MatchingService,
	lifecycle LifecycleService,
	publisher RequestPublisher,
) *RequestServiceImpl {
	return &RequestServiceImpl{
		BaseService: NewBaseService(db, log),
		requests:    requests,
		skills:      skills,
		matching:    matching,
		lifecycle:   lifecycle,
		publisher:   publisher,
	}
}

func (s *RequestServiceImpl) CreateRequest(ctx context.Context, req *domain.InterviewRequest) (int64, error) {
	const op = "internal.service.request.CreateRequest"
	log := s.log.With(slog.String("op", op), slog.String("user_id", req.UserID))

	var id int64

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		// A dangling mastery id would only surface as a foreign key
		// violation, report it as not found instead.
		if _, err = s.skills.GetMastery(ctx, tx, req.MasteryID); err != nil {
			return fmt.Errorf("%s: failed to check mastery: %w", op, err)
		}

		req.IsActive = true

		id, err = s.requests.Create(ctx, tx, req)
		if err != nil {
			return fmt.Errorf("%s: failed to create request: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	req.ID = id

	log.Info("interview request created", slog.Int64("request_id", id))

	// The announcement is best effort: the local matcher below works off
	// the database either way.
	if err := s.publisher.PublishRequest(ctx, id, req); err != nil {
		log.Error("failed to publish request to matcher queue", sl.Err(err))
	}

	s.tryMatch(ctx, req)

	return id, nil
}

// tryMatch attempts to pair the fresh request right away. Failures are
// logged only, the request stays in the pool for later matching.
func (s *RequestServiceImpl) tryMatch(ctx context.Context, req *domain.InterviewRequest) {
	const op = "internal.service.request.tryMatch"
	log := s.log.With(slog.String("op", op), slog.Int64("request_id", req.ID))

	counterpart, err := s.matching.Match(ctx, req)
	if err != nil {
		log.Error("matching attempt failed", sl.Err(err))
		return
	}

	if counterpart == nil {
		log.Debug("no compatible counterpart yet")
		return
	}

	if _, _, err := s.lifecycle.CreatePair(ctx, domain.MatchedPair{Requests: []domain.InterviewRequest{*req, *counterpart}}); err != nil {
		if errors.Is(err, apperrors.ErrRequestConsumed) {
			log.Info("counterpart consumed concurrently, request stays in pool")
			return
		}

		log.Error("failed to create pair", sl.Err(err))
	}
}

func (s *RequestServiceImpl) UpdateRequest(ctx context.Context, req *domain.InterviewRequest) error {
	const op = "internal.service.request.UpdateRequest"

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		existing, err := s.requests.GetByIDForUpdate(ctx, tx, req.ID)
		if err != nil {
			return fmt.Errorf("%s: failed to load request: %w", op, err)
		}

		if existing.UserID != req.UserID {
			return fmt.Errorf("%s: request belongs to another user: %w", op, apperrors.ErrNotFound)
		}

		// An update only renegotiates count, language and slots; role,
		// mastery and the active flag survive from the stored row.
		req.Role = existing.Role
		req.MasteryID = existing.MasteryID
		req.IsActive = existing.IsActive
		req.CreatedAt = existing.CreatedAt

		if err := s.requests.Update(ctx, tx, req); err != nil {
			return fmt.Errorf("%s: failed to update request: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	log := s.log.With(slog.String("op", op), slog.Int64("request_id", req.ID))
	log.Info("interview request updated")

	// New slots mean new matching chances, so an active request re-enters
	// the flow exactly like a fresh one. Booked requests stay out of the
	// pool until rejection reactivates them.
	if req.IsActive {
		if err := s.publisher.PublishRequest(ctx, req.ID, req); err != nil {
			log.Error("failed to publish request to matcher queue", sl.Err(err))
		}

		s.tryMatch(ctx, req)
	}

	return nil
}

func (s *RequestServiceImpl) WithdrawRequest(ctx context.Context, id int64, userID string) error {
	const op = "internal.service.request.WithdrawRequest"

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		existing, err := s.requests.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("%s: failed to load request: %w", op, err)
		}

		if existing.UserID != userID {
			return fmt.Errorf("%s: request belongs to another user: %w", op, apperrors.ErrNotFound)
		}

		if err := s.requests.Delete(ctx, tx, id); err != nil {
			return fmt.Errorf("%s: failed to delete request: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("interview request withdrawn", slog.String("op", op), slog.Int64("request_id", id))

	return nil
}
