package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// UsageService reports remote AI token usage per client.
type UsageService struct {
	Repo domain.UsageRepository
	Now  func() time.Time
}

// NewUsageService constructs a UsageService.
func NewUsageService(repo domain.UsageRepository) UsageService {
	return UsageService{Repo: repo, Now: func() time.Time { return time.Now().UTC() }}
}

// Summary returns month-to-date (UTC calendar month) and all-time totals.
func (s UsageService) Summary(ctx context.Context, clientID int64) (domain.UsageSummary, error) {
	if clientID <= 0 {
		return domain.UsageSummary{}, fmt.Errorf("%w: client id required", domain.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	sum, err := s.Repo.Summary(ctx, clientID, monthStart)
	if err != nil {
		return domain.UsageSummary{}, fmt.Errorf("op=usage.summary: %w", err)
	}
	sum.ClientID = clientID
	return sum, nil
}
