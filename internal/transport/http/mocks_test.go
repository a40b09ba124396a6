package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/service"
)

type RequestServiceMock struct {
	mock.Mock
}

var _ service.RequestService = (*RequestServiceMock)(nil)

func (m *RequestServiceMock) CreateRequest(ctx context.Context, req *domain.InterviewRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RequestServiceMock) UpdateRequest(ctx context.Context, req *domain.InterviewRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *RequestServiceMock) WithdrawRequest(ctx context.Context, id int64, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

type LifecycleServiceMock struct {
	mock.Mock
}

var _ service.LifecycleService = (*LifecycleServiceMock)(nil)

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

type MetricsServiceMock struct {
	mock.Mock
}

var _ service.MetricsService = (*MetricsServiceMock)(nil)

func (m *MetricsServiceMock) SubmitFeedback(ctx context.Context, interviewID, userID string, marks map[int64]int) error {
	args := m.Called(ctx, interviewID, userID, marks)
	return args.Error(0)
}

func (m *MetricsServiceMock) GetStats(ctx context.Context) ([]domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Stats), args.Error(1)
}

type NotificationServiceMock struct {
	mock.Mock
}

var _ service.NotificationService = (*NotificationServiceMock)(nil)

func (m *NotificationServiceMock) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *NotificationServiceMock) MarkRead(ctx context.Context, id int64, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}
