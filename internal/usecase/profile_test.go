package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/usecase"
)

func TestResolveProfile(t *testing.T) {
	t.Parallel()
	clientCfg := &domain.AnalysisConfig{
		DefaultProfile:       "Client default profile",
		DefaultDesiredSkills: []string{"Communication", " ", "Teamwork"},
		Instructions:         "Value open source work",
	}

	tests := []struct {
		name string
		in   domain.Candidate
		want domain.ProfileConfig
	}{
		{
			name: "vacancy profile wins",
			in: domain.Candidate{
				Client:  domain.Client{Analysis: clientCfg},
				Vacancy: &domain.Vacancy{Title: "Backend Developer", ProfileForAnalysis: "Go and Postgres services", DesiredSkills: []string{"Go", "SQL"}},
			},
			want: domain.ProfileConfig{
				Summary:       "Go and Postgres services",
				DesiredSkills: []string{"Go", "SQL"},
				Instructions:  "Value open source work",
				VacancyTitle:  "Backend Developer",
			},
		},
		{
			name: "empty vacancy profile uses client default and client skills",
			in: domain.Candidate{
				Client:  domain.Client{Analysis: clientCfg},
				Vacancy: &domain.Vacancy{Title: "Data Engineer", ProfileForAnalysis: "   "},
			},
			want: domain.ProfileConfig{
				Summary:       "Client default profile",
				DesiredSkills: []string{"Communication", "Teamwork"},
				Instructions:  "Value open source work",
				VacancyTitle:  "Data Engineer",
			},
		},
		{
			name: "vacancy title when nothing else",
			in: domain.Candidate{
				Vacancy: &domain.Vacancy{Title: "QA Analyst"},
			},
			want: domain.ProfileConfig{
				Summary:       "QA Analyst",
				DesiredSkills: []string{},
				VacancyTitle:  "QA Analyst",
			},
		},
		{
			name: "no vacancy uses client defaults",
			in:   domain.Candidate{Client: domain.Client{Analysis: clientCfg}},
			want: domain.ProfileConfig{
				Summary:       "Client default profile",
				DesiredSkills: []string{"Communication", "Teamwork"},
				Instructions:  "Value open source work",
			},
		},
		{
			name: "no vacancy and no client config",
			in:   domain.Candidate{},
			want: domain.ProfileConfig{
				Summary:       usecase.GenericProfile,
				DesiredSkills: []string{},
			},
		},
		{
			name: "untitled vacancy without profile",
			in:   domain.Candidate{Vacancy: &domain.Vacancy{}},
			want: domain.ProfileConfig{
				Summary:       usecase.GenericProfile,
				DesiredSkills: []string{},
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, usecase.ResolveProfile(tt.in))
		})
	}
}
