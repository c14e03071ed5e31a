package postgres

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// UsageRepo aggregates llm_usage_logs.
type UsageRepo struct{ Pool PgxPool }

// NewUsageRepo constructs a UsageRepo with the given pool.
func NewUsageRepo(p PgxPool) *UsageRepo { return &UsageRepo{Pool: p} }

// Summary returns all-time totals and the totals since monthStart.
func (r *UsageRepo) Summary(ctx domain.Context, clientID int64, monthStart time.Time) (domain.UsageSummary, error) {
	ctx, span := otel.Tracer("repo.usage").Start(ctx, "usage.Summary")
	defer span.End()
	dbAttrs(span, "SELECT", "llm_usage_logs")
	span.SetAttributes(attribute.Int64("client.id", clientID))

	s := domain.UsageSummary{ClientID: clientID}
	err := r.Pool.QueryRow(ctx, `SELECT
    COALESCE(SUM(total_tokens) FILTER (WHERE created_at >= $2), 0)::bigint,
    COUNT(*) FILTER (WHERE created_at >= $2),
    COALESCE(SUM(total_tokens), 0)::bigint,
    COUNT(*)
FROM llm_usage_logs WHERE client_id = $1`, clientID, monthStart).Scan(&s.MonthTokens, &s.MonthRuns, &s.TotalTokens, &s.TotalRuns)
	if err != nil {
		return domain.UsageSummary{}, fmt.Errorf("op=usage.summary: %w", err)
	}
	return s, nil
}
