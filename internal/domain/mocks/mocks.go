// Package mocks provides testify mocks for the domain ports.
package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// MockCandidateRepository mocks domain.CandidateRepository.
type MockCandidateRepository struct{ mock.Mock }

func (m *MockCandidateRepository) Get(ctx domain.Context, id int64) (domain.Candidate, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Candidate), args.Error(1)
}

func (m *MockCandidateRepository) ListSkills(ctx domain.Context, candidateID int64) ([]domain.SkillEvaluation, error) {
	args := m.Called(ctx, candidateID)
	if v := args.Get(0); v != nil {
		return v.([]domain.SkillEvaluation), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAnalysisStore mocks domain.AnalysisStore.
type MockAnalysisStore struct{ mock.Mock }

func (m *MockAnalysisStore) SaveAnalysis(ctx domain.Context, out domain.AnalysisOutcome) error {
	return m.Called(ctx, out).Error(0)
}

// MockCriteriaStore mocks domain.CriteriaStore.
type MockCriteriaStore struct{ mock.Mock }

func (m *MockCriteriaStore) ListForCandidate(ctx domain.Context, candidateID int64) ([]domain.Criterion, error) {
	args := m.Called(ctx, candidateID)
	if v := args.Get(0); v != nil {
		return v.([]domain.Criterion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCriteriaStore) ListResponses(ctx domain.Context, candidateID int64) (map[int64]bool, error) {
	args := m.Called(ctx, candidateID)
	if v := args.Get(0); v != nil {
		return v.(map[int64]bool), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCriteriaStore) SaveManualEvaluation(ctx domain.Context, ev domain.ManualEvaluation) error {
	return m.Called(ctx, ev).Error(0)
}

// MockUsageRepository mocks domain.UsageRepository.
type MockUsageRepository struct{ mock.Mock }

func (m *MockUsageRepository) Summary(ctx domain.Context, clientID int64, monthStart time.Time) (domain.UsageSummary, error) {
	args := m.Called(ctx, clientID, monthStart)
	return args.Get(0).(domain.UsageSummary), args.Error(1)
}

// MockFileStorage mocks domain.FileStorage.
type MockFileStorage struct{ mock.Mock }

func (m *MockFileStorage) Resolve(ctx domain.Context, ref string) (string, string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.String(1), args.Error(2)
}

// MockTextExtractor mocks domain.TextExtractor.
type MockTextExtractor struct{ mock.Mock }

func (m *MockTextExtractor) ExtractPath(ctx domain.Context, fileName, path string) (string, error) {
	args := m.Called(ctx, fileName, path)
	return args.String(0), args.Error(1)
}

// MockChatClient mocks domain.ChatClient.
type MockChatClient struct{ mock.Mock }

func (m *MockChatClient) Provider() string { return "mock" }

func (m *MockChatClient) ChatJSON(ctx domain.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.ChatResponse), args.Error(1)
}

// MockEventPublisher mocks domain.EventPublisher.
type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) PublishCandidateScored(ctx domain.Context, ev domain.CandidateScored) error {
	return m.Called(ctx, ev).Error(0)
}

// MockRateLimiter mocks domain.RateLimiter.
type MockRateLimiter struct{ mock.Mock }

func (m *MockRateLimiter) Allow(ctx domain.Context, key string, cost int64) (bool, time.Duration, error) {
	args := m.Called(ctx, key, cost)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}
