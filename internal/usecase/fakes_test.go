package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// memAnalysisStore keeps the last saved outcome per candidate and replaces
// the skill set on every save.
type memAnalysisStore struct {
	mu     sync.Mutex
	saves  int
	last   map[int64]domain.AnalysisOutcome
	skills map[int64][]domain.SkillResult
	usage  []domain.UsageRecord
	err    error
}

func newMemAnalysisStore() *memAnalysisStore {
	return &memAnalysisStore{
		last:   map[int64]domain.AnalysisOutcome{},
		skills: map[int64][]domain.SkillResult{},
	}
}

func (s *memAnalysisStore) SaveAnalysis(_ context.Context, out domain.AnalysisOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves++
	s.last[out.CandidateID] = out
	s.skills[out.CandidateID] = append([]domain.SkillResult(nil), out.Skills...)
	if out.Usage != nil {
		s.usage = append(s.usage, *out.Usage)
	}
	return nil
}

type keyLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newKeyLocker() *keyLocker { return &keyLocker{held: map[string]bool{}} }

func (l *keyLocker) TryLock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrConflict
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}

type recordingTracer struct {
	mu     sync.Mutex
	traces []domain.AnalysisTrace
}

func (r *recordingTracer) TraceAnalysis(_ context.Context, t domain.AnalysisTrace) {
	r.mu.Lock()
	r.traces = append(r.traces, t)
	r.mu.Unlock()
}

type metricsRecorder struct {
	mu       sync.Mutex
	analyses []string
	sources  []string
}

func (m *metricsRecorder) ObserveAnalysis(strategy, outcome string, _ time.Duration) {
	m.mu.Lock()
	m.analyses = append(m.analyses, strategy+"/"+outcome)
	m.mu.Unlock()
}

func (m *metricsRecorder) ObserveScore(source string, _ float64, status string) {
	m.mu.Lock()
	m.sources = append(m.sources, source+"/"+status)
	m.mu.Unlock()
}
