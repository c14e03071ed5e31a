package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/usecase"
)

func TestFallback_PythonSQLScenario(t *testing.T) {
	t.Parallel()
	p := domain.ProfileConfig{
		Summary:       "Backend services in Python",
		DesiredSkills: []string{"Python", "SQL"},
		VacancyTitle:  "Backend Developer",
	}
	res := usecase.Fallback("page one\n\npage two", p)

	require.Len(t, res.Skills, 2)
	assert.Equal(t, "Python", res.Skills[0].Skill)
	assert.Equal(t, 70, res.Skills[0].Level)
	assert.Equal(t, 75.0, *res.Skills[0].MatchPercentage)
	assert.Equal(t, "SQL", res.Skills[1].Skill)
	assert.Equal(t, 75, res.Skills[1].Level)
	assert.Equal(t, 78.0, *res.Skills[1].MatchPercentage)

	assert.InDelta(t, 81.8, res.Score, 1e-9)
	assert.Equal(t, domain.StatusApto, res.Status)
	require.NotNil(t, res.MatchPercentage)
	assert.InDelta(t, 81.8, *res.MatchPercentage, 1e-9)
	assert.Equal(t, domain.StrategyFallback, res.Strategy)
	assert.Contains(t, res.Explanation, "Backend Developer")
	assert.Contains(t, res.Explanation, "automatic basic evaluation")
}

func TestFallback_Table(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		raw        string
		skills     []string
		wantScore  float64
		wantStatus domain.Status
		wantSkills int
	}{
		{name: "text without desired skills", raw: "some cv", wantScore: 70.3, wantStatus: domain.StatusRevision, wantSkills: 2},
		{name: "no text and no skills", raw: "", wantScore: 72, wantStatus: domain.StatusRevision, wantSkills: 0},
		{name: "single desired skill", raw: "cv", skills: []string{"Go"}, wantScore: 76, wantStatus: domain.StatusApto, wantSkills: 1},
		{name: "many desired skills capped", raw: "cv", skills: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}, wantScore: 95, wantStatus: domain.StatusApto, wantSkills: 8},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := usecase.Fallback(tt.raw, domain.ProfileConfig{Summary: "p", DesiredSkills: tt.skills})
			assert.InDelta(t, tt.wantScore, res.Score, 1e-9)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Len(t, res.Skills, tt.wantSkills)
			for i, s := range res.Skills {
				assert.LessOrEqual(t, s.Level, 95, "skill %d", i)
			}
		})
	}
}

func TestFallback_GenericSkills(t *testing.T) {
	t.Parallel()
	res := usecase.Fallback("cv text", domain.ProfileConfig{})
	require.Len(t, res.Skills, 2)
	assert.Equal(t, domain.SkillResult{Skill: "General experience", Level: 65}, res.Skills[0])
	assert.Equal(t, domain.SkillResult{Skill: "Education", Level: 70}, res.Skills[1])
	assert.Contains(t, res.Explanation, "the vacancy")
	assert.Contains(t, res.Explanation, "General profile")
}

func TestFallback_Deterministic(t *testing.T) {
	t.Parallel()
	p := domain.ProfileConfig{Summary: "x", DesiredSkills: []string{"Go", "Kafka", "Redis"}}
	assert.Equal(t, usecase.Fallback("cv", p), usecase.Fallback("cv", p))
}

func TestUnreadableResult(t *testing.T) {
	t.Parallel()
	res := usecase.UnreadableResult()
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, domain.StatusNoApto, res.Status)
	assert.Nil(t, res.MatchPercentage)
	assert.Empty(t, res.Skills)
	assert.Contains(t, res.Explanation, "readable PDF or DOCX")
}
