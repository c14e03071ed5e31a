package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/pkg/textx"
)

const unreadableExplanation = "Could not extract text from the CV. Make sure the file is a readable PDF or DOCX."

// Fallback scores a CV without a language model. The first desired skills get
// ascending fixed levels; a CV with text but no desired skills gets two
// generic entries. The result is deterministic for the same input.
func Fallback(raw string, p domain.ProfileConfig) domain.EvaluationResult {
	desired := p.DesiredSkills
	scored := desired
	if len(scored) > domain.MaxFallbackSkills {
		scored = scored[:domain.MaxFallbackSkills]
	}

	skills := make([]domain.SkillResult, 0, len(scored)+2)
	for i, name := range scored {
		mp := math.Min(100, float64(75+3*i))
		skills = append(skills, domain.SkillResult{
			Skill:           textx.Truncate(name, domain.MaxSkillNameChars),
			Level:           min(70+5*i, 95),
			MatchPercentage: &mp,
		})
	}
	if len(skills) == 0 && raw != "" {
		skills = append(skills,
			domain.SkillResult{Skill: "General experience", Level: 65},
			domain.SkillResult{Skill: "Education", Level: 70},
		)
	}

	score := 72.0
	if len(desired) > 0 || len(skills) > 0 {
		sum := 0
		for _, s := range skills {
			sum += s.Level
		}
		avg := float64(sum) / float64(len(skills))
		score = math.Min(95, 50+5*float64(len(desired))+0.3*avg)
	}

	var status domain.Status
	switch {
	case score >= 75:
		status = domain.StatusApto
	case score >= 50:
		status = domain.StatusRevision
	default:
		status = domain.StatusNoApto
	}
	score = round1(score)
	match := score

	return domain.EvaluationResult{
		Score:           score,
		Status:          status,
		MatchPercentage: &match,
		Skills:          skills,
		Strategy:        domain.StrategyFallback,
		Explanation: fmt.Sprintf(
			"Analysis against the %s profile: %s... No AI credential configured or the AI call failed; using automatic basic evaluation.",
			titleOrDefault(p.VacancyTitle), textx.Truncate(summaryOrDefault(p.Summary), 80),
		),
	}
}

func summaryOrDefault(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "General profile"
	}
	return s
}

// UnreadableResult is recorded when no text could be extracted from the CV.
func UnreadableResult() domain.EvaluationResult {
	return domain.EvaluationResult{
		Score:       0,
		Status:      domain.StatusNoApto,
		Explanation: unreadableExplanation,
		Skills:      []domain.SkillResult{},
		Strategy:    domain.StrategyUnreadable,
	}
}
