package postgres

import (
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// CriteriaRepo reads form criteria and stores manual criterion responses.
type CriteriaRepo struct{ Pool PgxPool }

// NewCriteriaRepo constructs a CriteriaRepo with the given pool.
func NewCriteriaRepo(p PgxPool) *CriteriaRepo { return &CriteriaRepo{Pool: p} }

// ListForCandidate returns the criteria of the form behind the candidate's
// earliest submission, in display order. No submission means no criteria.
func (r *CriteriaRepo) ListForCandidate(ctx domain.Context, candidateID int64) ([]domain.Criterion, error) {
	ctx, span := otel.Tracer("repo.criteria").Start(ctx, "criteria.ListForCandidate")
	defer span.End()
	dbAttrs(span, "SELECT", "form_criteria")

	rows, err := r.Pool.Query(ctx, `SELECT fc.id, fc.form_id, fc.label, fc.sort_order
FROM form_criteria fc
WHERE fc.form_id = (
    SELECT fs.form_id FROM form_submissions fs
    WHERE fs.candidate_id = $1
    ORDER BY fs.submitted_at, fs.id
    LIMIT 1)
ORDER BY fc.sort_order, fc.id`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("op=criteria.list: %w", err)
	}
	defer rows.Close()

	out := []domain.Criterion{}
	for rows.Next() {
		var c domain.Criterion
		if err := rows.Scan(&c.ID, &c.FormID, &c.Label, &c.Order); err != nil {
			return nil, fmt.Errorf("op=criteria.list_scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=criteria.list: %w", err)
	}
	return out, nil
}

// ListResponses returns the stored meets flag per criterion id.
func (r *CriteriaRepo) ListResponses(ctx domain.Context, candidateID int64) (map[int64]bool, error) {
	ctx, span := otel.Tracer("repo.criteria").Start(ctx, "criteria.ListResponses")
	defer span.End()
	dbAttrs(span, "SELECT", "criterion_responses")

	rows, err := r.Pool.Query(ctx, `SELECT criterion_id, meets FROM criterion_responses WHERE candidate_id=$1`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("op=criteria.responses: %w", err)
	}
	defer rows.Close()

	out := map[int64]bool{}
	for rows.Next() {
		var (
			id    int64
			meets bool
		)
		if err := rows.Scan(&id, &meets); err != nil {
			return nil, fmt.Errorf("op=criteria.responses_scan: %w", err)
		}
		out[id] = meets
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=criteria.responses: %w", err)
	}
	return out, nil
}

// SaveManualEvaluation upserts the responses in ascending criterion order
// and, when a score is present, updates the candidate aggregate. All in one
// transaction.
func (r *CriteriaRepo) SaveManualEvaluation(ctx domain.Context, ev domain.ManualEvaluation) error {
	ctx, span := otel.Tracer("repo.criteria").Start(ctx, "criteria.SaveManualEvaluation")
	defer span.End()
	dbAttrs(span, "UPSERT", "criterion_responses")
	span.SetAttributes(
		attribute.Int64("candidate.id", ev.CandidateID),
		attribute.Int("responses.count", len(ev.Responses)),
	)

	ids := make([]int64, 0, len(ev.Responses))
	for id := range ev.Responses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	err := inTx(ctx, r.Pool, func(tx pgx.Tx) error {
		if err := lockCandidate(ctx, tx, ev.CandidateID); err != nil {
			return err
		}
		for _, id := range ids {
			_, err := tx.Exec(ctx, `INSERT INTO criterion_responses (candidate_id, criterion_id, meets) VALUES ($1,$2,$3)
ON CONFLICT (candidate_id, criterion_id) DO UPDATE SET meets = EXCLUDED.meets
WHERE criterion_responses.meets IS DISTINCT FROM EXCLUDED.meets`,
				ev.CandidateID, id, ev.Responses[id])
			if err != nil {
				return fmt.Errorf("upsert response %d: %w", id, err)
			}
		}
		if ev.Score != nil {
			_, err := tx.Exec(ctx, `UPDATE candidates SET score=$2, status=$3 WHERE id=$1`,
				ev.CandidateID, *ev.Score, string(ev.Status))
			if err != nil {
				return fmt.Errorf("update candidate: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("op=criteria.save: %w", err)
	}
	return nil
}
