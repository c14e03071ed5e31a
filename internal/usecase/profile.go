// Package usecase contains application business logic services.
package usecase

import (
	"strings"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// GenericProfile is used when neither a vacancy nor the client supplies a profile.
const GenericProfile = "Evaluate the candidate's general experience and relevant skills."

// ResolveProfile picks the evaluation target for a candidate. Vacancy data
// wins over client defaults; instructions always come from the client.
func ResolveProfile(c domain.Candidate) domain.ProfileConfig {
	var defProfile, defInstructions string
	var defSkills []string
	if cfg := c.Client.Analysis; cfg != nil {
		defProfile = strings.TrimSpace(cfg.DefaultProfile)
		defSkills = cfg.DefaultDesiredSkills
		defInstructions = strings.TrimSpace(cfg.Instructions)
	}

	out := domain.ProfileConfig{
		Instructions:  defInstructions,
		DesiredSkills: cleanSkills(defSkills),
	}
	if v := c.Vacancy; v != nil {
		out.VacancyTitle = v.Title
		out.Summary = firstNonEmpty(strings.TrimSpace(v.ProfileForAnalysis), defProfile, v.Title, GenericProfile)
		if skills := cleanSkills(v.DesiredSkills); len(skills) > 0 {
			out.DesiredSkills = skills
		}
		return out
	}
	out.Summary = firstNonEmpty(defProfile, GenericProfile)
	return out
}

// cleanSkills trims names and drops blanks. The result is never nil.
func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
