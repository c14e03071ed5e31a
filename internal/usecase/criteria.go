package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/observability"
)

// CriteriaService records manual checklist answers and recomputes the
// candidate aggregate from them.
type CriteriaService struct {
	candidates domain.CandidateRepository
	store      domain.CriteriaStore
	locker     domain.Locker
	events     domain.EventPublisher
	metrics    Metrics
	now        func() time.Time
}

// NewCriteriaService constructs a CriteriaService. events and metrics may be nil.
func NewCriteriaService(candidates domain.CandidateRepository, store domain.CriteriaStore, locker domain.Locker, events domain.EventPublisher, metrics Metrics) *CriteriaService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &CriteriaService{
		candidates: candidates,
		store:      store,
		locker:     locker,
		events:     events,
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RecordResponses upserts the submitted responses and, when the candidate's
// form has criteria, stores score = round(100*met/total) with its status.
func (s *CriteriaService) RecordResponses(ctx context.Context, candidateID int64, responses map[int64]bool) (domain.Candidate, error) {
	if candidateID <= 0 {
		return domain.Candidate{}, fmt.Errorf("%w: candidate id required", domain.ErrInvalidArgument)
	}
	ctx, lg := observability.ContextWithAttrs(ctx, slog.Int64("candidate_id", candidateID))

	if s.locker != nil {
		unlock, err := s.locker.TryLock(ctx, analysisLockKey(candidateID))
		if err != nil {
			return domain.Candidate{}, fmt.Errorf("op=criteria.lock: %w", err)
		}
		defer unlock()
	}

	c, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=criteria.get: %w", err)
	}
	criteria, err := s.store.ListForCandidate(ctx, candidateID)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=criteria.list: %w", err)
	}
	known := make(map[int64]struct{}, len(criteria))
	for _, cr := range criteria {
		known[cr.ID] = struct{}{}
	}
	var unknown []int64
	for id := range responses {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
		return domain.Candidate{}, fmt.Errorf("%w: unknown criteria %v", domain.ErrInvalidArgument, unknown)
	}
	if len(responses) == 0 && len(criteria) == 0 {
		return c, nil
	}

	ev := domain.ManualEvaluation{CandidateID: candidateID, Responses: responses}
	if len(criteria) > 0 {
		existing, err := s.store.ListResponses(ctx, candidateID)
		if err != nil {
			return domain.Candidate{}, fmt.Errorf("op=criteria.list_responses: %w", err)
		}
		met := 0
		for _, cr := range criteria {
			v, ok := responses[cr.ID]
			if !ok {
				v = existing[cr.ID]
			}
			if v {
				met++
			}
		}
		score := ManualScore(met, len(criteria))
		ev.Score = &score
		ev.Status = ManualStatus(score)
	}

	if err := s.store.SaveManualEvaluation(ctx, ev); err != nil {
		lg.Error("persist manual evaluation failed", slog.Any("error", err))
		return domain.Candidate{}, fmt.Errorf("op=criteria.persist: %w", err)
	}
	if ev.Score == nil {
		lg.Info("criteria responses recorded without criteria to score")
		return c, nil
	}

	c.Score = *ev.Score
	c.Status = ev.Status
	s.metrics.ObserveScore(SourceManual, c.Score, string(c.Status))
	if s.events != nil {
		err := s.events.PublishCandidateScored(ctx, domain.CandidateScored{
			CandidateID:     c.ID,
			ClientID:        c.ClientID,
			VacancyID:       c.VacancyID,
			Score:           c.Score,
			Status:          c.Status,
			MatchPercentage: c.MatchPercentage,
			Source:          SourceManual,
			SkillCount:      len(c.Skills),
			ScoredAt:        s.now(),
		})
		if err != nil {
			lg.Warn("publish candidate scored event failed", slog.Any("error", err))
		}
	}
	lg.Info("manual evaluation recorded",
		slog.Float64("score", c.Score),
		slog.String("status", string(c.Status)),
		slog.Int("criteria", len(criteria)))
	return c, nil
}

// ManualScore is round(100*met/total) with ties to even. total must be > 0.
func ManualScore(met, total int) float64 {
	return math.RoundToEven(100 * float64(met) / float64(total))
}

// ManualStatus thresholds a manual score: >=70 APTO, <40 NO_APTO, else REVISION.
func ManualStatus(score float64) domain.Status {
	switch {
	case score >= 70:
		return domain.StatusApto
	case score < 40:
		return domain.StatusNoApto
	default:
		return domain.StatusRevision
	}
}

var truthyCriterionValues = map[string]struct{}{
	"1": {}, "true": {}, "si": {}, "sí": {}, "cumple": {}, "on": {},
}

// ParseCriterionValue interprets a submitted form value.
func ParseCriterionValue(v string) bool {
	_, ok := truthyCriterionValues[strings.ToLower(strings.TrimSpace(v))]
	return ok
}
