package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/observability"
	"github.com/fairyhunter13/ats-cv-scorer/pkg/textx"
)

// Scoring sources reported on events and metrics.
const (
	SourceAI     = "ai"
	SourceManual = "manual"
)

// Metrics receives scoring observations. The Prometheus recorder in the
// observability adapter implements it.
type Metrics interface {
	ObserveAnalysis(strategy, outcome string, d time.Duration)
	ObserveScore(source string, score float64, status string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAnalysis(string, string, time.Duration) {}
func (noopMetrics) ObserveScore(string, float64, string)          {}

// AnalysisService runs CV analysis for one candidate and persists the outcome.
type AnalysisService struct {
	candidates domain.CandidateRepository
	store      domain.AnalysisStore
	files      domain.FileStorage
	extractor  domain.TextExtractor
	evaluator  *Evaluator
	locker     domain.Locker

	quota   domain.RateLimiter
	tracer  domain.AnalysisTracer
	events  domain.EventPublisher
	metrics Metrics
	now     func() time.Time
}

// AnalysisOption configures optional collaborators.
type AnalysisOption func(*AnalysisService)

// WithQuota enables a per-client remote AI quota.
func WithQuota(rl domain.RateLimiter) AnalysisOption {
	return func(s *AnalysisService) { s.quota = rl }
}

// WithTracer sets the analysis tracer.
func WithTracer(t domain.AnalysisTracer) AnalysisOption {
	return func(s *AnalysisService) { s.tracer = t }
}

// WithEvents sets the scoring event publisher.
func WithEvents(p domain.EventPublisher) AnalysisOption {
	return func(s *AnalysisService) { s.events = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) AnalysisOption {
	return func(s *AnalysisService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) AnalysisOption {
	return func(s *AnalysisService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAnalysisService constructs an AnalysisService with its dependencies.
func NewAnalysisService(
	candidates domain.CandidateRepository,
	store domain.AnalysisStore,
	files domain.FileStorage,
	extractor domain.TextExtractor,
	evaluator *Evaluator,
	locker domain.Locker,
	opts ...AnalysisOption,
) *AnalysisService {
	s := &AnalysisService{
		candidates: candidates,
		store:      store,
		files:      files,
		extractor:  extractor,
		evaluator:  evaluator,
		locker:     locker,
		metrics:    noopMetrics{},
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func analysisLockKey(candidateID int64) string {
	return fmt.Sprintf("analysis:candidate:%d", candidateID)
}

// Run analyzes the candidate's CV and stores score, status, explanation,
// match percentage, raw text and the skill set in one write. Precondition
// and persistence errors are returned; extraction and remote AI failures are
// absorbed into a valid result.
func (s *AnalysisService) Run(ctx context.Context, candidateID int64) (domain.Candidate, error) {
	if candidateID <= 0 {
		return domain.Candidate{}, fmt.Errorf("%w: candidate id required", domain.ErrInvalidArgument)
	}
	start := time.Now()
	ctx, lg := observability.ContextWithAttrs(ctx, slog.Int64("candidate_id", candidateID))

	if s.locker != nil {
		unlock, err := s.locker.TryLock(ctx, analysisLockKey(candidateID))
		if err != nil {
			return domain.Candidate{}, fmt.Errorf("op=analysis.lock: %w", err)
		}
		defer unlock()
	}

	c, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=analysis.get: %w", err)
	}
	if strings.TrimSpace(c.CVFile) == "" {
		return domain.Candidate{}, domain.ErrNoCVFile
	}
	filePath, fileName, err := s.files.Resolve(ctx, c.CVFile)
	if err != nil {
		if errors.Is(err, domain.ErrCVFileMissing) {
			return domain.Candidate{}, err
		}
		return domain.Candidate{}, fmt.Errorf("op=analysis.resolve_file: %w", err)
	}
	if fileName == "" {
		fileName = path.Base(c.CVFile)
	}

	profile := ResolveProfile(c)
	raw := s.extract(ctx, lg, fileName, filePath)
	res, usage := s.evaluate(ctx, lg, c, raw, profile)

	out := buildOutcome(c, raw, res, usage, s.now())
	if err := s.store.SaveAnalysis(ctx, out); err != nil {
		s.metrics.ObserveAnalysis(res.Strategy, "error", time.Since(start))
		lg.Error("persist cv analysis failed", slog.Any("error", err))
		return domain.Candidate{}, fmt.Errorf("op=analysis.persist: %w", err)
	}
	applyOutcome(&c, out)

	s.metrics.ObserveAnalysis(res.Strategy, "ok", time.Since(start))
	s.metrics.ObserveScore(SourceAI, c.Score, string(c.Status))
	if usage != nil && s.tracer != nil {
		s.tracer.TraceAnalysis(ctx, domain.AnalysisTrace{
			ProfileSummary:   profile.Summary,
			VacancyTitle:     profile.VacancyTitle,
			TextLength:       utf8.RuneCountInString(raw),
			ClientID:         c.ClientID,
			ClientName:       c.Client.CompanyName,
			CandidateID:      c.ID,
			Score:            c.Score,
			Status:           c.Status,
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
			Model:            usage.Model,
		})
	}
	s.publish(ctx, lg, c, SourceAI, res.Strategy, out.AnalyzedAt)

	lg.Info("cv analysis completed",
		slog.String("strategy", res.Strategy),
		slog.Float64("score", c.Score),
		slog.String("status", string(c.Status)),
		slog.Int("skills", len(out.Skills)))
	return c, nil
}

func (s *AnalysisService) extract(ctx context.Context, lg *slog.Logger, fileName, filePath string) string {
	if s.extractor == nil {
		return ""
	}
	text, err := s.extractor.ExtractPath(ctx, fileName, filePath)
	if err != nil {
		lg.Warn("cv text extraction failed", slog.String("file", fileName), slog.Any("error", err))
		return ""
	}
	return text
}

func (s *AnalysisService) evaluate(ctx context.Context, lg *slog.Logger, c domain.Candidate, raw string, p domain.ProfileConfig) (domain.EvaluationResult, *domain.UsageRecord) {
	if s.quota != nil && s.evaluator.RemoteEnabled() && strings.TrimSpace(raw) != "" {
		allowed, retryAfter, err := s.quota.Allow(ctx, fmt.Sprintf("ai:client:%d", c.ClientID), 1)
		switch {
		case err != nil:
			lg.Warn("ai quota check failed, allowing remote call", slog.Any("error", err))
		case !allowed:
			lg.Info("ai quota exhausted, using fallback",
				slog.Int64("client_id", c.ClientID),
				slog.Duration("retry_after", retryAfter))
			return s.evaluator.EvaluateLocal(raw, p), nil
		}
	}
	return s.evaluator.Evaluate(ctx, raw, p)
}

func (s *AnalysisService) publish(ctx context.Context, lg *slog.Logger, c domain.Candidate, source, strategy string, at time.Time) {
	if s.events == nil {
		return
	}
	ev := domain.CandidateScored{
		CandidateID:     c.ID,
		ClientID:        c.ClientID,
		VacancyID:       c.VacancyID,
		Score:           c.Score,
		Status:          c.Status,
		MatchPercentage: c.MatchPercentage,
		Source:          source,
		Strategy:        strategy,
		SkillCount:      len(c.Skills),
		ScoredAt:        at,
	}
	if err := s.events.PublishCandidateScored(ctx, ev); err != nil {
		lg.Warn("publish candidate scored event failed", slog.Any("error", err))
	}
}

// buildOutcome re-applies every bound before anything reaches storage.
func buildOutcome(c domain.Candidate, raw string, res domain.EvaluationResult, usage *domain.UsageRecord, now time.Time) domain.AnalysisOutcome {
	status := res.Status
	if !status.Valid() {
		status = domain.StatusRevision
	}
	var match *float64
	if res.MatchPercentage != nil {
		m := clamp(*res.MatchPercentage, 0, 100)
		match = &m
	}
	skills := res.Skills
	if len(skills) > domain.MaxSkills {
		skills = skills[:domain.MaxSkills]
	}
	cleaned := make([]domain.SkillResult, 0, len(skills))
	for _, sk := range skills {
		name := textx.Truncate(strings.TrimSpace(sk.Skill), domain.MaxSkillNameChars)
		if name == "" {
			continue
		}
		var mp *float64
		if sk.MatchPercentage != nil {
			v := clamp(*sk.MatchPercentage, 0, 100)
			mp = &v
		}
		cleaned = append(cleaned, domain.SkillResult{
			Skill:           name,
			Level:           int(clamp(float64(sk.Level), 0, 100)),
			MatchPercentage: mp,
		})
	}

	out := domain.AnalysisOutcome{
		CandidateID:     c.ID,
		Score:           clamp(res.Score, 0, 100),
		Status:          status,
		Explanation:     textx.Truncate(res.Explanation, domain.MaxExplanationChars),
		MatchPercentage: match,
		RawText:         textx.Truncate(raw, domain.MaxStoredRawText),
		AnalyzedAt:      now,
		Skills:          cleaned,
	}
	if usage != nil {
		u := *usage
		u.ClientID = c.ClientID
		id := c.ID
		u.CandidateID = &id
		u.CreatedAt = now
		u.Model = textx.Truncate(u.Model, domain.MaxModelChars)
		out.Usage = &u
	}
	return out
}

func applyOutcome(c *domain.Candidate, out domain.AnalysisOutcome) {
	c.Score = out.Score
	c.Status = out.Status
	c.Explanation = out.Explanation
	c.MatchPercentage = out.MatchPercentage
	c.RawText = out.RawText
	at := out.AnalyzedAt
	c.AnalysisDate = &at
	c.Skills = make([]domain.SkillEvaluation, 0, len(out.Skills))
	for _, sk := range out.Skills {
		c.Skills = append(c.Skills, domain.SkillEvaluation{
			CandidateID:     c.ID,
			Skill:           sk.Skill,
			Level:           sk.Level,
			MatchPercentage: sk.MatchPercentage,
		})
	}
}
