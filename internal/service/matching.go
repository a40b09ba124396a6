package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/repository"
)

// MatchingService searches the request pool for a compatible counterpart.
type MatchingService interface {
	// Match returns the oldest compatible opposite-role request, or nil when
	// none exists. Absence of a match is a normal outcome, not an error.
	// Match is read-only; consuming the returned request into a pair is the
	// lifecycle service's responsibility.
	Match(ctx context.Context, req *domain.InterviewRequest) (*domain.InterviewRequest, error)
}

type MatchingServiceImpl struct {
	db       *sqlx.DB
	log      *slog.Logger
	requests repository.RequestRepository
}

func NewMatchingService(db *sqlx.DB, log *slog.Logger, requests repository.RequestRepository) *MatchingServiceImpl {
	return &MatchingServiceImpl{
		db:       db,
		log:      log,
		requests: requests,
	}
}

func (s *MatchingServiceImpl) Match(ctx context.Context, req *domain.InterviewRequest) (*domain.InterviewRequest, error) {
	const op = "internal.service.matching.Match"
	log := s.log.With(slog.String("op", op), slog.Int64("request_id", req.ID))

	counterpart, err := s.requests.FindCompatible(ctx, s.db, req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to search for compatible request: %w", op, err)
	}

	if counterpart == nil {
		log.Debug("no compatible request found")
		return nil, nil
	}

	log.Info("compatible request found", slog.Int64("counterpart_id", counterpart.ID))

	return counterpart, nil
}
