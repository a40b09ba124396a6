package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/gateway"
	"github.com/peerview/interview-service/internal/repository"
)

type TransactorMock struct {
	mock.Mock
}

var _ Transactor = (*TransactorMock)(nil)

func (m *TransactorMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*sqlx.Tx), args.Error(1)
}

type RequestRepositoryMock struct {
	mock.Mock
}

var _ repository.RequestRepository = (*RequestRepositoryMock)(nil)

func (m *RequestRepositoryMock) Create(ctx context.Context, tx *sqlx.Tx, req *domain.InterviewRequest) (int64, error) {
	args := m.Called(ctx, tx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RequestRepositoryMock) GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.InterviewRequest, error) {
	args := m.Called(ctx, ext, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.InterviewRequest), args.Error(1)
}

func (m *RequestRepositoryMock) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.InterviewRequest, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.InterviewRequest), args.Error(1)
}

func (m *RequestRepositoryMock) Update(ctx context.Context, tx *sqlx.Tx, req *domain.InterviewRequest) error {
	args := m.Called(ctx, tx, req)
	return args.Error(0)
}

func (m *RequestRepositoryMock) Delete(ctx context.Context, tx *sqlx.Tx, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *RequestRepositoryMock) SetActive(ctx context.Context, tx *sqlx.Tx, id int64, active bool) error {
	args := m.Called(ctx, tx, id, active)
	return args.Error(0)
}

func (m *RequestRepositoryMock) AddAssignedDate(ctx context.Context, tx *sqlx.Tx, id int64, date time.Time) error {
	args := m.Called(ctx, tx, id, date)
	return args.Error(0)
}

func (m *RequestRepositoryMock) RemoveAssignedDate(ctx context.Context, tx *sqlx.Tx, id int64, date time.Time) error {
	args := m.Called(ctx, tx, id, date)
	return args.Error(0)
}

func (m *RequestRepositoryMock) FindCompatible(ctx context.Context, ext sqlx.ExtContext, req *domain.InterviewRequest) (*domain.InterviewRequest, error) {
	args := m.Called(ctx, ext, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.InterviewRequest), args.Error(1)
}

type InterviewRepositoryMock struct {
	mock.Mock
}

var _ repository.InterviewRepository = (*InterviewRepositoryMock)(nil)

func (m *InterviewRepositoryMock) CreatePair(ctx context.Context, tx *sqlx.Tx, a, b domain.Interview) error {
	args := m.Called(ctx, tx, a, b)
	return args.Error(0)
}

func (m *InterviewRepositoryMock) GetPair(ctx context.Context, ext sqlx.ExtContext, interviewID string) ([]domain.Interview, error) {
	args := m.Called(ctx, ext, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Interview), args.Error(1)
}

func (m *InterviewRepositoryMock) GetPairForUpdate(ctx context.Context, tx *sqlx.Tx, interviewID string) ([]domain.Interview, error) {
	args := m.Called(ctx, tx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Interview), args.Error(1)
}

func (m *InterviewRepositoryMock) DeletePair(ctx context.Context, tx *sqlx.Tx, interviewID string) error {
	args := m.Called(ctx, tx, interviewID)
	return args.Error(0)
}

func (m *InterviewRepositoryMock) ListPendingFeedback(ctx context.Context, from, to time.Time) ([]domain.Interview, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Interview), args.Error(1)
}

func (m *InterviewRepositoryMock) CreateEvent(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	args := m.Called(ctx, tx, ev)
	return args.Error(0)
}

func (m *InterviewRepositoryMock) DeleteEventByInterview(ctx context.Context, tx *sqlx.Tx, interviewID string) error {
	args := m.Called(ctx, tx, interviewID)
	return args.Error(0)
}

type SkillRepositoryMock struct {
	mock.Mock
}

var _ repository.SkillRepository = (*SkillRepositoryMock)(nil)

func (m *SkillRepositoryMock) GetMastery(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Mastery, error) {
	args := m.Called(ctx, ext, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Mastery), args.Error(1)
}

func (m *SkillRepositoryMock) GetMasterySkills(ctx context.Context, ext sqlx.ExtContext, masteryID int64) ([]domain.Skill, error) {
	args := m.Called(ctx, ext, masteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Skill), args.Error(1)
}

func (m *SkillRepositoryMock) GetSkillsForUpdate(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]domain.Skill, error) {
	args := m.Called(ctx, tx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Skill), args.Error(1)
}

func (m *SkillRepositoryMock) UpdateSkillStats(ctx context.Context, tx *sqlx.Tx, skill *domain.Skill) error {
	args := m.Called(ctx, tx, skill)
	return args.Error(0)
}

func (m *SkillRepositoryMock) UpdateMasteryMarks(ctx context.Context, tx *sqlx.Tx, masteryID int64, hard, soft float64) error {
	args := m.Called(ctx, tx, masteryID, hard, soft)
	return args.Error(0)
}

func (m *SkillRepositoryMock) CreateMasterySnapshot(ctx context.Context, tx *sqlx.Tx, snap domain.MasterySnapshot) error {
	args := m.Called(ctx, tx, snap)
	return args.Error(0)
}

type HistoryRepositoryMock struct {
	mock.Mock
}

var _ repository.HistoryRepository = (*HistoryRepositoryMock)(nil)

func (m *HistoryRepositoryMock) GetByInterviewForUpdate(ctx context.Context, tx *sqlx.Tx, interviewID string) (*domain.InterviewHistory, error) {
	args := m.Called(ctx, tx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.InterviewHistory), args.Error(1)
}

func (m *HistoryRepositoryMock) Create(ctx context.Context, tx *sqlx.Tx, h *domain.InterviewHistory) (int64, error) {
	args := m.Called(ctx, tx, h)
	return args.Get(0).(int64), args.Error(1)
}

func (m *HistoryRepositoryMock) MarkSubmitted(ctx context.Context, tx *sqlx.Tx, historyID int64, role domain.Role) error {
	args := m.Called(ctx, tx, historyID, role)
	return args.Error(0)
}

func (m *HistoryRepositoryMock) AddMarks(ctx context.Context, tx *sqlx.Tx, historyID int64, role domain.Role, marks map[int64]int) error {
	args := m.Called(ctx, tx, historyID, role, marks)
	return args.Error(0)
}

func (m *HistoryRepositoryMock) GetMarks(ctx context.Context, tx *sqlx.Tx, historyID int64) ([]domain.SkillMark, error) {
	args := m.Called(ctx, tx, historyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.SkillMark), args.Error(1)
}

func (m *HistoryRepositoryMock) CreateSummary(ctx context.Context, tx *sqlx.Tx, s domain.InterviewSummary) error {
	args := m.Called(ctx, tx, s)
	return args.Error(0)
}

func (m *HistoryRepositoryMock) CreateFeedbackDetail(ctx context.Context, tx *sqlx.Tx, d domain.FeedbackDetail) error {
	args := m.Called(ctx, tx, d)
	return args.Error(0)
}

func (m *HistoryRepositoryMock) GetFeedbackDetail(ctx context.Context, ext sqlx.ExtContext, interviewID, userID string) (*domain.FeedbackDetail, error) {
	args := m.Called(ctx, ext, interviewID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackDetail), args.Error(1)
}

func (m *HistoryRepositoryMock) DeleteFeedbackDetails(ctx context.Context, tx *sqlx.Tx, interviewID string) error {
	args := m.Called(ctx, tx, interviewID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

var _ repository.UserRepository = (*UserRepositoryMock)(nil)

func (m *UserRepositoryMock) GetByID(ctx context.Context, ext sqlx.ExtContext, id string) (*domain.User, error) {
	args := m.Called(ctx, ext, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserRepositoryMock) IncrementInterviewCounters(ctx context.Context, tx *sqlx.Tx, candidateID, interviewerID string) error {
	args := m.Called(ctx, tx, candidateID, interviewerID)
	return args.Error(0)
}

func (m *UserRepositoryMock) IncrementSpecializationCounters(ctx context.Context, tx *sqlx.Tx, candidateMasteryID, interviewerMasteryID int64) error {
	args := m.Called(ctx, tx, candidateMasteryID, interviewerMasteryID)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetStats(ctx context.Context) ([]domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Stats), args.Error(1)
}

type NotificationGatewayMock struct {
	mock.Mock
}

var _ gateway.NotificationGateway = (*NotificationGatewayMock)(nil)

func (m *NotificationGatewayMock) Send(ctx context.Context, userID, kind, payload string) error {
	args := m.Called(ctx, userID, kind, payload)
	return args.Error(0)
}

type EmailGatewayMock struct {
	mock.Mock
}

var _ gateway.EmailGateway = (*EmailGatewayMock)(nil)

func (m *EmailGatewayMock) SendScheduled(ctx context.Context, user, counterpart *domain.User, startTime time.Time, roomURL string) error {
	args := m.Called(ctx, user, counterpart, startTime, roomURL)
	return args.Error(0)
}

func (m *EmailGatewayMock) SendRejected(ctx context.Context, user, rejector *domain.User, startTime time.Time) error {
	args := m.Called(ctx, user, rejector, startTime)
	return args.Error(0)
}

type MeetingProviderMock struct {
	mock.Mock
}

var _ gateway.MeetingProvider = (*MeetingProviderMock)(nil)

func (m *MeetingProviderMock) CreateRoom(ctx context.Context, topic string, startTime time.Time) (string, error) {
	args := m.Called(ctx, topic, startTime)
	return args.String(0), args.Error(1)
}

type MatchingServiceMock struct {
	mock.Mock
}

var _ MatchingService = (*MatchingServiceMock)(nil)

func (m *MatchingServiceMock) Match(ctx context.Context, req *domain.InterviewRequest) (*domain.InterviewRequest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.InterviewRequest), args.Error(1)
}

type LifecycleServiceMock struct {
	mock.Mock
}

var _ LifecycleService = (*LifecycleServiceMock)(nil)

func (m *LifecycleServiceMock) CreatePair(ctx context.Context, pair domain.MatchedPair) (*domain.Interview, *domain.Interview, error) {
	args := m.Called(ctx, pair)

	var a, b *domain.Interview
	if args.Get(0) != nil {
		a = args.Get(0).(*domain.Interview)
	}
	if args.Get(1) != nil {
		b = args.Get(1).(*domain.Interview)
	}

	return a, b, args.Error(2)
}

func (m *LifecycleServiceMock) RejectPair(ctx context.Context, interviewID, initiatorID string) error {
	args := m.Called(ctx, interviewID, initiatorID)
	return args.Error(0)
}

func (m *LifecycleServiceMock) GetInterview(ctx context.Context, interviewID string) ([]domain.Interview, error) {
	args := m.Called(ctx, interviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Interview), args.Error(1)
}

type RequestPublisherMock struct {
	mock.Mock
}

var _ RequestPublisher = (*RequestPublisherMock)(nil)

func (m *RequestPublisherMock) PublishRequest(ctx context.Context, requestID int64, req *domain.InterviewRequest) error {
	args := m.Called(ctx, requestID, req)
	return args.Error(0)
}
