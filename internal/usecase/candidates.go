package usecase

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// CandidateService serves read-only candidate views.
type CandidateService struct {
	Repo domain.CandidateRepository
}

// NewCandidateService constructs a CandidateService.
func NewCandidateService(repo domain.CandidateRepository) CandidateService {
	return CandidateService{Repo: repo}
}

// Get returns the candidate with its current skill evaluations.
func (s CandidateService) Get(ctx context.Context, id int64) (domain.Candidate, error) {
	if id <= 0 {
		return domain.Candidate{}, fmt.Errorf("%w: candidate id required", domain.ErrInvalidArgument)
	}
	c, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", err)
	}
	skills, err := s.Repo.ListSkills(ctx, id)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.list_skills: %w", err)
	}
	c.Skills = skills
	return c, nil
}
