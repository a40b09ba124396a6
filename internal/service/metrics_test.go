package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peerview/interview-service/internal/apperrors"
	"github.com/peerview/interview-service/internal/domain"
)

type metricsMocks struct {
	transactor *TransactorMock
	interviews *InterviewRepositoryMock
	skills     *SkillRepositoryMock
	history    *HistoryRepositoryMock
	users      *UserRepositoryMock
}

func newMetricsService(t *testing.T) (*MetricsServiceImpl, *metricsMocks) {
	t.Helper()

	sqlxDB, _, _ := newMockDBAndTx(t)

	m := &metricsMocks{
		transactor: new(TransactorMock),
		interviews: new(InterviewRepositoryMock),
		skills:     new(SkillRepositoryMock),
		history:    new(HistoryRepositoryMock),
		users:      new(UserRepositoryMock),
	}

	svc := NewMetricsService(
		m.transactor, sqlxDB, newTestLogger(),
		m.interviews, m.skills, m.history, m.users,
	)

	return svc, m
}

func feedbackRows(start time.Time) []domain.Interview {
	return []domain.Interview{
		{InterviewID: "iv-1", UserID: "cand-1", RequestID: 1, MasteryID: 10, Role: domain.RoleCandidate, StartTime: start},
		{InterviewID: "iv-1", UserID: "intr-1", RequestID: 2, MasteryID: 20, Role: domain.RoleInterviewer, StartTime: start},
	}
}

func TestMetricsServiceImpl_SubmitFeedback_FirstSubmission(t *testing.T) {
	ctx := context.Background()
	svc, m := newMetricsService(t)

	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start.Add(45 * time.Minute) }

	_, mockedTx, smock := newMockDBAndTx(t)
	smock.ExpectCommit()

	marks := map[int64]int{101: 8, 102: 6}

	m.transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(mockedTx, nil).Once()
	m.interviews.On("GetPairForUpdate", ctx, mockedTx, "iv-1").Return(feedbackRows(start), nil).Once()
	m.history.On("GetFeedbackDetail", ctx, mockedTx, "iv-1", "cand-1").
		Return(&domain.FeedbackDetail{InterviewID: "iv-1", UserID: "cand-1", SkillIDs: pq.Int64Array{101, 102}}, nil).Once()
	m.history.On("GetByInterviewForUpdate", ctx, mockedTx, "iv-1").Return(nil, apperrors.ErrNotFound).Once()
	m.history.On("Create", ctx, mockedTx, mock.MatchedBy(func(h *domain.InterviewHistory) bool {
		return h.CandidateSubmitted && !h.InterviewerSubmitted &&
			h.CandidateID == "cand-1" && h.InterviewerID == "intr-1" &&
			h.DurationMinutes == 45
	})).Return(int64(7), nil).Once()
	m.history.On("AddMarks", ctx, mockedTx, int64(7), domain.RoleCandidate, marks).Return(nil).Once()

	err := svc.SubmitFeedback(ctx, "iv-1", "cand-1", marks)
	require.NoError(t, err)

	// One submission alone never touches the aggregates.
	m.users.AssertNotCalled(t, "IncrementInterviewCounters", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.interviews.AssertNotCalled(t, "DeletePair", mock.Anything, mock.Anything, mock.Anything)
	m.history.AssertExpectations(t)
	require.NoError(t, smock.ExpectationsWereMet())
}

func TestMetricsServiceImpl_SubmitFeedback_SkillMismatch(t *testing.T) {
	ctx := context.Background()
	svc, m := newMetricsService(t)

	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	_, mockedTx, smock := newMockDBAndTx(t)
	smock.ExpectRollback()

	m.transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(mockedTx, nil).Once()
	m.interviews.On("GetPairForUpdate", ctx, mockedTx, "iv-1").Return(feedbackRows(start), nil).Once()
	m.history.On("GetFeedbackDetail", ctx, mockedTx, "iv-1", "cand-1").
		Return(&domain.FeedbackDetail{SkillIDs: pq.Int64Array{101, 102}}, nil).Once()

	err := svc.SubmitFeedback(ctx, "iv-1", "cand-1", map[int64]int{101: 8, 999: 5})

	var mismatch *apperrors.SkillMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []int64{102}, mismatch.Missing)
	assert.Equal(t, []int64{999}, mismatch.Unknown)

	m.history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	m.history.AssertNotCalled(t, "AddMarks", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, smock.ExpectationsWereMet())
}

func TestMetricsServiceImpl_SubmitFeedback_DuplicateSide(t *testing.T) {
	ctx := context.Background()
	svc, m := newMetricsService(t)

	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	_, mockedTx, smock := newMockDBAndTx(t)
	smock.ExpectRollback()

	m.transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(mockedTx, nil).Once()
	m.interviews.On("GetPairForUpdate", ctx, mockedTx, "iv-1").Return(feedbackRows(start), nil).Once()
	m.history.On("GetFeedbackDetail", ctx, mockedTx, "iv-1", "cand-1").
		Return(&domain.FeedbackDetail{SkillIDs: pq.Int64Array{101}}, nil).Once()
	m.history.On("GetByInterviewForUpdate", ctx, mockedTx, "iv-1").
		Return(&domain.InterviewHistory{ID: 7, CandidateSubmitted: true}, nil).Once()

	err := svc.SubmitFeedback(ctx, "iv-1", "cand-1", map[int64]int{101: 8})
	require.ErrorIs(t, err, apperrors.ErrFeedbackAlreadySubmitted)

	m.history.AssertNotCalled(t, "AddMarks", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, smock.ExpectationsWereMet())
}

func TestMetricsServiceImpl_SubmitFeedback_CompletesAndAggregates(t *testing.T) {
	ctx := context.Background()
	svc, m := newMetricsService(t)

	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	now := start.Add(50 * time.Minute)
	svc.now = func() time.Time { return now }

	_, mockedTx, smock := newMockDBAndTx(t)
	smock.ExpectCommit()

	marks := map[int64]int{101: 8}

	m.transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(mockedTx, nil).Once()
	m.interviews.On("GetPairForUpdate", ctx, mockedTx, "iv-1").Return(feedbackRows(start), nil).Once()
	m.history.On("GetFeedbackDetail", ctx, mockedTx, "iv-1", "cand-1").
		Return(&domain.FeedbackDetail{SkillIDs: pq.Int64Array{101}}, nil).Once()
	m.history.On("GetByInterviewForUpdate", ctx, mockedTx, "iv-1").
		Return(&domain.InterviewHistory{
			ID:                   7,
			InterviewID:          "iv-1",
			Date:                 start,
			DurationMinutes:      40,
			CandidateID:          "cand-1",
			InterviewerID:        "intr-1",
			InterviewerSubmitted: true,
		}, nil).Once()
	m.history.On("MarkSubmitted", ctx, mockedTx, int64(7), domain.RoleCandidate).Return(nil).Once()
	m.history.On("AddMarks", ctx, mockedTx, int64(7), domain.RoleCandidate, marks).Return(nil).Once()

	m.users.On("IncrementInterviewCounters", ctx, mockedTx, "cand-1", "intr-1").Return(nil).Once()
	// Cross-specialization pair: the candidate's specialization earns the
	// completed counter, the interviewer's the conducted one.
	m.users.On("IncrementSpecializationCounters", ctx, mockedTx, int64(10), int64(20)).Return(nil).Once()

	// Marks from both sides in submission order: the interviewer rated the
	// candidate's skill 201 earlier, the candidate just rated skill 101.
	m.history.On("GetMarks", ctx, mockedTx, int64(7)).Return([]domain.SkillMark{
		{HistoryID: 7, SubmittedBy: domain.RoleInterviewer, SkillID: 201, Mark: 7},
		{HistoryID: 7, SubmittedBy: domain.RoleCandidate, SkillID: 101, Mark: 8},
	}, nil).Once()
	m.skills.On("GetSkillsForUpdate", ctx, mockedTx, []int64{201, 101}).Return([]domain.Skill{
		{ID: 201, MasteryID: 10, Type: domain.SkillTypeHard, AverageMark: 0, Counter: 0},
		{ID: 101, MasteryID: 20, Type: domain.SkillTypeHard, AverageMark: 6.00, Counter: 3},
	}, nil).Once()

	// First mark ever: the average becomes the mark itself.
	m.skills.On("UpdateSkillStats", ctx, mockedTx, mock.MatchedBy(func(sk *domain.Skill) bool {
		return sk.ID == 201 && sk.AverageMark == 7.0 && sk.Counter == 1 && sk.Grows
	})).Return(nil).Once()
	// Running mean: (6.00*3 + 8) / 4 = 6.50, which did not shrink.
	m.skills.On("UpdateSkillStats", ctx, mockedTx, mock.MatchedBy(func(sk *domain.Skill) bool {
		return sk.ID == 101 && sk.AverageMark == 6.50 && sk.Counter == 4 && sk.Grows
	})).Return(nil).Once()

	m.skills.On("GetMasterySkills", ctx, mockedTx, int64(10)).Return([]domain.Skill{
		{ID: 201, MasteryID: 10, Type: domain.SkillTypeHard, AverageMark: 7.0, Counter: 1},
	}, nil).Once()
	m.skills.On("UpdateMasteryMarks", ctx, mockedTx, int64(10), 7.0, 0.0).Return(nil).Once()
	m.skills.On("CreateMasterySnapshot", ctx, mockedTx, domain.MasterySnapshot{
		MasteryID: 10, Date: now, HardSkillMark: 7.0, SoftSkillMark: 0,
	}).Return(nil).Once()

	m.skills.On("GetMasterySkills", ctx, mockedTx, int64(20)).Return([]domain.Skill{
		{ID: 101, MasteryID: 20, Type: domain.SkillTypeHard, AverageMark: 6.50, Counter: 4},
		{ID: 102, MasteryID: 20, Type: domain.SkillTypeSoft, AverageMark: 5.0, Counter: 2},
	}, nil).Once()
	m.skills.On("UpdateMasteryMarks", ctx, mockedTx, int64(20), 6.50, 5.0).Return(nil).Once()
	m.skills.On("CreateMasterySnapshot", ctx, mockedTx, domain.MasterySnapshot{
		MasteryID: 20, Date: now, HardSkillMark: 6.50, SoftSkillMark: 5.0,
	}).Return(nil).Once()

	m.history.On("CreateSummary", ctx, mockedTx, domain.InterviewSummary{
		InterviewID: "iv-1", Date: start, DurationMinutes: 40,
		CandidateID: "cand-1", InterviewerID: "intr-1",
	}).Return(nil).Once()
	m.history.On("DeleteFeedbackDetails", ctx, mockedTx, "iv-1").Return(nil).Once()
	m.interviews.On("DeletePair", ctx, mockedTx, "iv-1").Return(nil).Once()
	m.interviews.On("DeleteEventByInterview", ctx, mockedTx, "iv-1").Return(nil).Once()

	err := svc.SubmitFeedback(ctx, "iv-1", "cand-1", marks)
	require.NoError(t, err)

	m.skills.AssertExpectations(t)
	m.history.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.interviews.AssertExpectations(t)
	require.NoError(t, smock.ExpectationsWereMet())
}

func TestApplyMark(t *testing.T) {
	testCases := []struct {
		name            string
		skill           domain.Skill
		mark            int
		expectedAverage float64
		expectedCounter int
		expectedGrows   bool
	}{
		{
			name:            "first mark sets the average",
			skill:           domain.Skill{},
			mark:            7,
			expectedAverage: 7.0,
			expectedCounter: 1,
			expectedGrows:   true,
		},
		{
			name:            "average grows",
			skill:           domain.Skill{AverageMark: 6.00, Counter: 3},
			mark:            8,
			expectedAverage: 6.50,
			expectedCounter: 4,
			expectedGrows:   true,
		},
		{
			name:            "average shrinks",
			skill:           domain.Skill{AverageMark: 8.00, Counter: 2, Grows: true},
			mark:            5,
			expectedAverage: 7.00,
			expectedCounter: 3,
			expectedGrows:   false,
		},
		{
			name:            "equal average still counts as growing",
			skill:           domain.Skill{AverageMark: 6.00, Counter: 2},
			mark:            6,
			expectedAverage: 6.00,
			expectedCounter: 3,
			expectedGrows:   true,
		},
		{
			name:            "half-up rounding",
			skill:           domain.Skill{AverageMark: 7.00, Counter: 2},
			mark:            8,
			expectedAverage: 7.33,
			expectedCounter: 3,
			expectedGrows:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sk := tc.skill
			applyMark(&sk, tc.mark)

			assert.InDelta(t, tc.expectedAverage, sk.AverageMark, 1e-9)
			assert.Equal(t, tc.expectedCounter, sk.Counter)
			assert.Equal(t, tc.expectedGrows, sk.Grows)
		})
	}
}

func TestApplyMark_Sequence(t *testing.T) {
	// The average is recomputed incrementally, one mark at a time.
	sk := domain.Skill{}

	for _, mark := range []int{6, 6, 6} {
		applyMark(&sk, mark)
	}

	assert.InDelta(t, 6.00, sk.AverageMark, 1e-9)
	assert.Equal(t, 3, sk.Counter)

	applyMark(&sk, 8)

	assert.InDelta(t, 6.50, sk.AverageMark, 1e-9)
	assert.Equal(t, 4, sk.Counter)
	assert.True(t, sk.Grows)
}

func TestCheckSkillSet(t *testing.T) {
	offered := []int64{1, 2, 3}

	t.Run("exact match", func(t *testing.T) {
		err := checkSkillSet(offered, map[int64]int{1: 5, 2: 6, 3: 7})
		require.NoError(t, err)
	})

	t.Run("missing and unknown reported sorted", func(t *testing.T) {
		err := checkSkillSet(offered, map[int64]int{1: 5, 9: 4, 5: 3})

		var mismatch *apperrors.SkillMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, []int64{2, 3}, mismatch.Missing)
		assert.Equal(t, []int64{5, 9}, mismatch.Unknown)
	})
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 45, durationMinutes(start, start.Add(45*time.Minute)))
	assert.Equal(t, 0, durationMinutes(start, start))
	// Feedback submitted before the scheduled start clamps to zero.
	assert.Equal(t, 0, durationMinutes(start, start.Add(-10*time.Minute)))
}

func TestRoundTo2(t *testing.T) {
	assert.InDelta(t, 6.50, roundTo2(6.5), 1e-9)
	assert.InDelta(t, 7.33, roundTo2(22.0/3.0), 1e-9)
	assert.InDelta(t, 6.67, roundTo2(20.0/3.0), 1e-9)
	assert.InDelta(t, 7.38, roundTo2(7.375), 1e-9)
}
