package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/pkg/textx"
)

// AnalysisTracer records each remote CV analysis as a "cv_analysis" span.
type AnalysisTracer struct {
	tracer trace.Tracer
}

// NewAnalysisTracer uses the global tracer provider; with tracing disabled
// the spans are no-ops.
func NewAnalysisTracer() *AnalysisTracer {
	return &AnalysisTracer{tracer: otel.Tracer("usecase.analysis")}
}

// NewAnalysisTracerWith uses an explicit provider.
func NewAnalysisTracerWith(tp trace.TracerProvider) *AnalysisTracer {
	return &AnalysisTracer{tracer: tp.Tracer("usecase.analysis")}
}

// TraceAnalysis implements domain.AnalysisTracer.
func (t *AnalysisTracer) TraceAnalysis(ctx domain.Context, a domain.AnalysisTrace) {
	if t == nil || t.tracer == nil {
		return
	}
	_, span := t.tracer.Start(ctx, "cv_analysis", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(
		attribute.String("analysis.profile_summary", textx.Truncate(a.ProfileSummary, 300)),
		attribute.String("analysis.vacancy_title", textx.Truncate(a.VacancyTitle, 100)),
		attribute.Int("analysis.text_length", a.TextLength),
		attribute.Int64("analysis.client_id", a.ClientID),
		attribute.String("analysis.client", a.ClientName),
		attribute.Int64("analysis.candidate_id", a.CandidateID),
		attribute.Float64("analysis.score", a.Score),
		attribute.String("analysis.status", string(a.Status)),
		attribute.Int("llm.usage.prompt_tokens", a.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", a.CompletionTokens),
		attribute.Int("llm.usage.total_tokens", a.TotalTokens),
		attribute.String("llm.model", a.Model),
	)
}
