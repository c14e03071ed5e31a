package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/domain/mocks"
	"github.com/fairyhunter13/ats-cv-scorer/internal/usecase"
)

func threeCriteria() []domain.Criterion {
	return []domain.Criterion{
		{ID: 1, FormID: 9, Label: "Has degree", Order: 1},
		{ID: 2, FormID: 9, Label: "Speaks English", Order: 2},
		{ID: 3, FormID: 9, Label: "Lives nearby", Order: 3},
	}
}

func TestManualScore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		met, total int
		want       float64
		status     domain.Status
	}{
		{0, 3, 0, domain.StatusNoApto},
		{1, 3, 33, domain.StatusNoApto},
		{2, 3, 67, domain.StatusRevision},
		{3, 3, 100, domain.StatusApto},
		{7, 10, 70, domain.StatusApto},
		{2, 5, 40, domain.StatusRevision},
		{1, 8, 12, domain.StatusNoApto},
		{3, 8, 38, domain.StatusNoApto},
	}
	for _, tt := range tests {
		got := usecase.ManualScore(tt.met, tt.total)
		assert.Equal(t, tt.want, got, "%d/%d", tt.met, tt.total)
		assert.Equal(t, tt.status, usecase.ManualStatus(got), "%d/%d", tt.met, tt.total)
	}
}

func TestParseCriterionValue(t *testing.T) {
	t.Parallel()
	for _, v := range []string{"1", "true", "TRUE", " si ", "Sí", "cumple", "on"} {
		assert.True(t, usecase.ParseCriterionValue(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "off", "yes please"} {
		assert.False(t, usecase.ParseCriterionValue(v), v)
	}
}

func TestRecordResponses_RecomputesScore(t *testing.T) {
	t.Parallel()
	c := backendCandidate()
	repo := &mocks.MockCandidateRepository{}
	repo.On("Get", mock.Anything, c.ID).Return(c, nil)
	store := &mocks.MockCriteriaStore{}
	store.On("ListForCandidate", mock.Anything, c.ID).Return(threeCriteria(), nil)
	store.On("ListResponses", mock.Anything, c.ID).Return(map[int64]bool{1: true, 3: false}, nil)
	store.On("SaveManualEvaluation", mock.Anything, mock.MatchedBy(func(ev domain.ManualEvaluation) bool {
		return ev.CandidateID == c.ID &&
			len(ev.Responses) == 1 && ev.Responses[2] &&
			ev.Score != nil && *ev.Score == 67 &&
			ev.Status == domain.StatusRevision
	})).Return(nil).Once()
	events := &mocks.MockEventPublisher{}
	events.On("PublishCandidateScored", mock.Anything, mock.MatchedBy(func(ev domain.CandidateScored) bool {
		return ev.Source == usecase.SourceManual && ev.Score == 67
	})).Return(nil).Once()
	metrics := &metricsRecorder{}

	svc := usecase.NewCriteriaService(repo, store, newKeyLocker(), events, metrics)
	got, err := svc.RecordResponses(context.Background(), c.ID, map[int64]bool{2: true})
	require.NoError(t, err)
	assert.Equal(t, 67.0, got.Score)
	assert.Equal(t, domain.StatusRevision, got.Status)
	assert.Equal(t, []string{"manual/REVISION"}, metrics.sources)
	store.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestRecordResponses_SubmittedValueOverridesExisting(t *testing.T) {
	t.Parallel()
	c := backendCandidate()
	repo := &mocks.MockCandidateRepository{}
	repo.On("Get", mock.Anything, c.ID).Return(c, nil)
	store := &mocks.MockCriteriaStore{}
	store.On("ListForCandidate", mock.Anything, c.ID).Return(threeCriteria(), nil)
	store.On("ListResponses", mock.Anything, c.ID).Return(map[int64]bool{1: true, 2: true, 3: true}, nil)
	store.On("SaveManualEvaluation", mock.Anything, mock.Anything).Return(nil).Once()

	svc := usecase.NewCriteriaService(repo, store, nil, nil, nil)
	got, err := svc.RecordResponses(context.Background(), c.ID, map[int64]bool{1: false, 2: false})
	require.NoError(t, err)
	assert.Equal(t, 33.0, got.Score)
	assert.Equal(t, domain.StatusNoApto, got.Status)
}

func TestRecordResponses_NoCriteriaLeavesScoreUntouched(t *testing.T) {
	t.Parallel()
	c := backendCandidate()
	c.Score = 55
	repo := &mocks.MockCandidateRepository{}
	repo.On("Get", mock.Anything, c.ID).Return(c, nil)
	store := &mocks.MockCriteriaStore{}
	store.On("ListForCandidate", mock.Anything, c.ID).Return([]domain.Criterion{}, nil)
	events := &mocks.MockEventPublisher{}

	svc := usecase.NewCriteriaService(repo, store, newKeyLocker(), events, nil)
	got, err := svc.RecordResponses(context.Background(), c.ID, map[int64]bool{})
	require.NoError(t, err)
	assert.Equal(t, 55.0, got.Score)
	assert.Equal(t, domain.StatusRevision, got.Status)
	store.AssertNotCalled(t, "SaveManualEvaluation", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "PublishCandidateScored", mock.Anything, mock.Anything)
}

func TestRecordResponses_UnknownCriterionRejected(t *testing.T) {
	t.Parallel()
	c := backendCandidate()
	repo := &mocks.MockCandidateRepository{}
	repo.On("Get", mock.Anything, c.ID).Return(c, nil)
	store := &mocks.MockCriteriaStore{}
	store.On("ListForCandidate", mock.Anything, c.ID).Return(threeCriteria(), nil)

	svc := usecase.NewCriteriaService(repo, store, nil, nil, nil)
	_, err := svc.RecordResponses(context.Background(), c.ID, map[int64]bool{1: true, 44: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "[44]")
	store.AssertNotCalled(t, "SaveManualEvaluation", mock.Anything, mock.Anything)
}

func TestRecordResponses_Errors(t *testing.T) {
	t.Parallel()
	c := backendCandidate()

	t.Run("persist failure", func(t *testing.T) {
		t.Parallel()
		repo := &mocks.MockCandidateRepository{}
		repo.On("Get", mock.Anything, c.ID).Return(c, nil)
		store := &mocks.MockCriteriaStore{}
		store.On("ListForCandidate", mock.Anything, c.ID).Return(threeCriteria(), nil)
		store.On("ListResponses", mock.Anything, c.ID).Return(map[int64]bool{}, nil)
		store.On("SaveManualEvaluation", mock.Anything, mock.Anything).Return(errors.New("deadlock detected"))

		_, err := usecase.NewCriteriaService(repo, store, nil, nil, nil).
			RecordResponses(context.Background(), c.ID, map[int64]bool{1: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "op=criteria.persist")
	})

	t.Run("locked", func(t *testing.T) {
		t.Parallel()
		locker := newKeyLocker()
		unlock, err := locker.TryLock(context.Background(), "analysis:candidate:42")
		require.NoError(t, err)
		defer unlock()

		_, err = usecase.NewCriteriaService(&mocks.MockCandidateRepository{}, &mocks.MockCriteriaStore{}, locker, nil, nil).
			RecordResponses(context.Background(), 42, map[int64]bool{1: true})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}
