package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// CandidateRepo loads candidates together with their client analysis config
// and vacancy.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

const candidateQuery = `SELECT c.id, c.client_id, c.vacancy_id, c.name, c.email, c.score, c.status,
       c.match_percentage, c.explanation, c.analysis_date, c.raw_text, c.cv_file,
       cl.company_name,
       cfg.client_id IS NOT NULL,
       COALESCE(cfg.default_profile, ''), COALESCE(cfg.default_desired_skills, '{}'),
       COALESCE(cfg.instructions, ''),
       COALESCE(v.title, ''), COALESCE(v.profile_for_analysis, ''), COALESCE(v.desired_skills, '{}')
FROM candidates c
JOIN clients cl ON cl.id = c.client_id
LEFT JOIN cv_analysis_configs cfg ON cfg.client_id = c.client_id
LEFT JOIN vacancies v ON v.id = c.vacancy_id
WHERE c.id = $1`

// Get implements domain.CandidateRepository.
func (r *CandidateRepo) Get(ctx domain.Context, id int64) (domain.Candidate, error) {
	ctx, span := otel.Tracer("repo.candidates").Start(ctx, "candidates.Get")
	defer span.End()
	dbAttrs(span, "SELECT", "candidates")
	span.SetAttributes(attribute.Int64("candidate.id", id))

	var (
		c                domain.Candidate
		status           string
		analysisDate     *time.Time
		hasConfig        bool
		cfg              domain.AnalysisConfig
		vTitle, vProfile string
		vSkills          []string
	)
	err := r.Pool.QueryRow(ctx, candidateQuery, id).Scan(
		&c.ID, &c.ClientID, &c.VacancyID, &c.Name, &c.Email, &c.Score, &status,
		&c.MatchPercentage, &c.Explanation, &analysisDate, &c.RawText, &c.CVFile,
		&c.Client.CompanyName,
		&hasConfig,
		&cfg.DefaultProfile, &cfg.DefaultDesiredSkills, &cfg.Instructions,
		&vTitle, &vProfile, &vSkills,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", err)
	}

	c.Status = domain.ParseStatus(status)
	c.AnalysisDate = analysisDate
	c.Client.ID = c.ClientID
	if hasConfig {
		c.Client.Analysis = &cfg
	}
	if c.VacancyID != nil {
		c.Vacancy = &domain.Vacancy{
			ID:                 *c.VacancyID,
			ClientID:           c.ClientID,
			Title:              vTitle,
			ProfileForAnalysis: vProfile,
			DesiredSkills:      vSkills,
		}
	}
	return c, nil
}

// ListSkills implements domain.CandidateRepository. Highest levels first.
func (r *CandidateRepo) ListSkills(ctx domain.Context, candidateID int64) ([]domain.SkillEvaluation, error) {
	ctx, span := otel.Tracer("repo.candidates").Start(ctx, "candidates.ListSkills")
	defer span.End()
	dbAttrs(span, "SELECT", "skill_evaluations")

	rows, err := r.Pool.Query(ctx,
		`SELECT skill, level, match_percentage FROM skill_evaluations WHERE candidate_id=$1 ORDER BY level DESC, skill`,
		candidateID)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.list_skills: %w", err)
	}
	defer rows.Close()

	out := []domain.SkillEvaluation{}
	for rows.Next() {
		s := domain.SkillEvaluation{CandidateID: candidateID}
		if err := rows.Scan(&s.Skill, &s.Level, &s.MatchPercentage); err != nil {
			return nil, fmt.Errorf("op=candidate.list_skills_scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidate.list_skills: %w", err)
	}
	return out, nil
}
