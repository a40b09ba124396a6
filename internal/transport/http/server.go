// package http implements the HTTP transport layer for the service.
// It handles incoming requests, decodes them, calls the appropriate service methods,
// and encodes the responses.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/service"
	"github.com/peerview/interview-service/internal/validation"
	"github.com/peerview/interview-service/pkg/logger/sl"
)

// Server holds the dependencies for the HTTP server, including the logger and service interfaces.
type Server struct {
	log                 *slog.Logger
	requestService      service.RequestService
	lifecycleService    service.LifecycleService
	metricsService      service.MetricsService
	notificationService service.NotificationService
}

// NewServer creates a new instance of the HTTP server.
func NewServer(
	log *slog.Logger,
	rs service.RequestService,
	ls service.LifecycleService,
	ms service.MetricsService,
	ns service.NotificationService,
) *Server {
	return &Server{
		log:                 log,
		requestService:      rs,
		lifecycleService:    ls,
		metricsService:      ms,
		notificationService: ns,
	}
}

// Routes sets up the router with all middleware and API endpoints.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/requests/create", s.postRequestCreate)
	mux.Post("/requests/update", s.postRequestUpdate)
	mux.Post("/requests/withdraw", s.postRequestWithdraw)
	mux.Get("/interviews", s.getInterview)
	mux.Post("/interviews/reject", s.postInterviewReject)
	mux.Post("/interviews/feedback", s.postInterviewFeedback)
	mux.Get("/users/notifications", s.getNotifications)
	mux.Post("/notifications/read", s.postNotificationRead)
	mux.Get("/stats", s.getStats)

	return mux
}

func (s *Server) postRequestCreate(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postRequestCreate"

	var req createRequestRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	domainReq := &domain.InterviewRequest{
		UserID:            req.UserID,
		MasteryID:         req.MasteryID,
		Role:              domain.Role(req.Role),
		DesiredInterviews: req.DesiredInterviews,
		LanguageCode:      req.LanguageCode,
		TimeSlots:         req.TimeSlots,
	}

	id, err := s.requestService.CreateRequest(r.Context(), domainReq)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	interviewRequestsCreated.Inc()

	s.respond(w, http.StatusCreated, map[string]int64{"request_id": id})
}

func (s *Server) postRequestUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postRequestUpdate"

	var req updateRequestRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	domainReq := &domain.InterviewRequest{
		ID:                req.RequestID,
		UserID:            req.UserID,
		DesiredInterviews: req.DesiredInterviews,
		LanguageCode:      req.LanguageCode,
		TimeSlots:         req.TimeSlots,
	}

	if err := s.requestService.UpdateRequest(r.Context(), domainReq); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) postRequestWithdraw(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postRequestWithdraw"

	var req withdrawRequestRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if err := s.requestService.WithdrawRequest(r.Context(), req.RequestID, req.UserID); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (s *Server) getInterview(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getInterview"

	interviewID := r.URL.Query().Get("interview_id")
	if interviewID == "" {
		s.handleServiceError(w, r, op, fmt.Errorf("%w: missing interview_id", apperrors.ErrInvalidRequest))
		return
	}

	rows, err := s.lifecycleService.GetInterview(r.Context(), interviewID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]domain.Interview{"participants": rows})
}

func (s *Server) postInterviewReject(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postInterviewReject"

	var req rejectInterviewRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if err := s.lifecycleService.RejectPair(r.Context(), req.InterviewID, req.UserID); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (s *Server) postInterviewFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postInterviewFeedback"

	var req submitFeedbackRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if err := s.metricsService.SubmitFeedback(r.Context(), req.InterviewID, req.UserID, req.Marks); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	feedbackSubmissions.Inc()

	s.respond(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) getNotifications(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getNotifications"

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.handleServiceError(w, r, op, fmt.Errorf("%w: missing user_id", apperrors.ErrInvalidRequest))
		return
	}

	list, err := s.notificationService.ListNotifications(r.Context(), userID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]domain.Notification{"notifications": list})
}

func (s *Server) postNotificationRead(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postNotificationRead"

	var req markNotificationReadRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if err := s.notificationService.MarkRead(r.Context(), req.NotificationID, req.UserID); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"status": "read"})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getStats"

	stats, err := s.metricsService.GetStats(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]domain.Stats{"stats": stats})
}

// respond is a helper function to encode data to JSON and write it to the response.
// It centralizes setting the Content-Type header and writing the status code.
func (s *Server) respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

// respondError is a convenience wrapper around respond for sending simple error messages.
func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respond(w, code, map[string]string{"error": message})
}

// decodeAndValidate is a helper that deserializes a JSON request body into a struct
// and then runs validation checks on it.
func (s *Server) decodeAndValidate(r *http.Request, v interface{}) error {
	if err := s.decode(r.Body, v); err != nil {
		return err
	}

	if err := validation.ValidateStruct(v); err != nil {
		return err
	}

	return nil
}

// decode is a helper function to decode a JSON request body.
func (s *Server) decode(body io.ReadCloser, v interface{}) error {
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// handleServiceError provides centralized error handling for all HTTP handlers.
// It logs the internal error and maps it to a user-friendly HTTP response.
func (s *Server) handleServiceError(w http.ResponseWriter, _ *http.Request, op string, err error) {
	log := s.log.With(slog.String("op", op))
	log.Error("service error occurred", sl.Err(err))

	var (
		consumedErr   *apperrors.RequestConsumedError
		mismatchErr   *apperrors.SkillMismatchError
		validationErr *validation.ValidationError
	)

	switch {
	case errors.As(err, &validationErr):
		wrappedErr := fmt.Errorf("%w: %s", apperrors.ErrValidation, validationErr.Error())
		s.respondError(w, http.StatusBadRequest, wrappedErr.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest):
		s.respondError(w, http.StatusBadRequest, "invalid request body")
	case errors.Is(err, apperrors.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "resource not found")
	case errors.As(err, &consumedErr):
		s.respondError(w, http.StatusConflict, consumedErr.Error())
	case errors.As(err, &mismatchErr):
		s.respondError(w, http.StatusConflict, mismatchErr.Error())
	case errors.Is(err, apperrors.ErrFeedbackAlreadySubmitted):
		s.respondError(w, http.StatusConflict, apperrors.ErrFeedbackAlreadySubmitted.Error())
	case errors.Is(err, apperrors.ErrNoCommonSlot):
		s.respondError(w, http.StatusConflict, apperrors.ErrNoCommonSlot.Error())
	case errors.Is(err, apperrors.ErrIncompletePair):
		s.respondError(w, http.StatusConflict, apperrors.ErrIncompletePair.Error())
	case errors.Is(err, apperrors.ErrAlreadyExists):
		s.respondError(w, http.StatusConflict, "resource already exists")
	default:
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
