package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// AnalysisRepo writes analysis outcomes.
type AnalysisRepo struct{ Pool PgxPool }

// NewAnalysisRepo constructs an AnalysisRepo with the given pool.
func NewAnalysisRepo(p PgxPool) *AnalysisRepo { return &AnalysisRepo{Pool: p} }

// SaveAnalysis updates the candidate aggregate, replaces its skill
// evaluations and appends the usage record in one transaction. Either all
// rows are written or none.
func (r *AnalysisRepo) SaveAnalysis(ctx domain.Context, out domain.AnalysisOutcome) error {
	ctx, span := otel.Tracer("repo.analysis").Start(ctx, "analysis.Save")
	defer span.End()
	dbAttrs(span, "UPDATE", "candidates")
	span.SetAttributes(
		attribute.Int64("candidate.id", out.CandidateID),
		attribute.Int("skills.count", len(out.Skills)),
		attribute.Bool("usage.recorded", out.Usage != nil),
	)

	err := inTx(ctx, r.Pool, func(tx pgx.Tx) error {
		if err := lockCandidate(ctx, tx, out.CandidateID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE candidates SET score=$2, status=$3, explanation=$4, match_percentage=$5, raw_text=$6, analysis_date=$7 WHERE id=$1`,
			out.CandidateID, out.Score, string(out.Status), out.Explanation, out.MatchPercentage, out.RawText, out.AnalyzedAt)
		if err != nil {
			return fmt.Errorf("update candidate: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM skill_evaluations WHERE candidate_id=$1`, out.CandidateID); err != nil {
			return fmt.Errorf("delete skills: %w", err)
		}
		if len(out.Skills) > 0 {
			names, levels, matches := skillColumns(out.Skills)
			_, err := tx.Exec(ctx,
				`INSERT INTO skill_evaluations (candidate_id, skill, level, match_percentage)
SELECT $1, s.skill, s.level, s.match FROM unnest($2::text[], $3::int[], $4::float8[]) AS s(skill, level, match)`,
				out.CandidateID, names, levels, matches)
			if err != nil {
				return fmt.Errorf("insert skills: %w", err)
			}
		}
		if u := out.Usage; u != nil {
			_, err := tx.Exec(ctx,
				`INSERT INTO llm_usage_logs (client_id, candidate_id, prompt_tokens, completion_tokens, total_tokens, model, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				u.ClientID, u.CandidateID, u.PromptTokens, u.CompletionTokens, u.TotalTokens, u.Model, u.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert usage: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("op=analysis.save: %w", err)
	}
	return nil
}

// lockCandidate takes a row lock on the candidate for the rest of tx.
func lockCandidate(ctx domain.Context, tx pgx.Tx, id int64) error {
	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM candidates WHERE id=$1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock candidate: %w", err)
	}
	return nil
}

func skillColumns(skills []domain.SkillResult) ([]string, []int32, []*float64) {
	names := make([]string, len(skills))
	levels := make([]int32, len(skills))
	matches := make([]*float64, len(skills))
	for i, s := range skills {
		names[i] = s.Skill
		levels[i] = int32(s.Level)
		matches[i] = s.MatchPercentage
	}
	return names, levels, matches
}
