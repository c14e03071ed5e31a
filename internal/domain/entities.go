package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// Analysis precondition errors. Both are reported to the caller as invalid
// arguments so the user can re-upload the file.
var (
	ErrNoCVFile      = fmt.Errorf("%w: candidate has no CV file", ErrInvalidArgument)
	ErrCVFileMissing = fmt.Errorf("%w: CV file not found on server", ErrInvalidArgument)
)

// Fixed policy limits.
const (
	MaxPromptTextChars  = 12000
	MaxStoredRawText    = 65535
	MaxSkills           = 12
	MaxFallbackSkills   = 8
	MaxSkillNameChars   = 100
	MaxExplanationChars = 10000
	MaxModelChars       = 64
)

// Status is the evaluation outcome of a candidate.
type Status string

const (
	StatusApto     Status = "APTO"
	StatusRevision Status = "REVISION"
	StatusNoApto   Status = "NO_APTO"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusApto, StatusRevision, StatusNoApto:
		return true
	}
	return false
}

// ParseStatus normalizes raw into a Status. Unknown values become REVISION.
func ParseStatus(raw string) Status {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if s.Valid() {
		return s
	}
	return StatusRevision
}

// AnalysisConfig holds a client's default CV analysis settings.
type AnalysisConfig struct {
	DefaultProfile       string
	DefaultDesiredSkills []string
	Instructions         string
}

// Client is the tenant owning candidates and vacancies.
type Client struct {
	ID          int64
	CompanyName string
	// Analysis is nil when the client never configured CV analysis.
	Analysis *AnalysisConfig
}

// Vacancy is a job posting candidates are scored against.
type Vacancy struct {
	ID                 int64
	ClientID           int64
	Title              string
	ProfileForAnalysis string
	DesiredSkills      []string
}

// Candidate is one application under evaluation.
// Invariants: Score in [0,100]; Status valid; MatchPercentage in [0,100] when set.
type Candidate struct {
	ID              int64
	ClientID        int64
	VacancyID       *int64
	Name            string
	Email           string
	Score           float64
	Status          Status
	MatchPercentage *float64
	Explanation     string
	AnalysisDate    *time.Time
	RawText         string
	CVFile          string

	Client  Client
	Vacancy *Vacancy
	Skills  []SkillEvaluation
}

// SkillEvaluation is one identified competency produced by an analysis run.
type SkillEvaluation struct {
	CandidateID     int64    `json:"candidate_id"`
	Skill           string   `json:"skill"`
	Level           int      `json:"level"`
	MatchPercentage *float64 `json:"match_percentage"`
}

// ProfileConfig is the resolved evaluation target for one analysis run.
// VacancyTitle is empty when the candidate has no vacancy.
type ProfileConfig struct {
	Summary       string
	DesiredSkills []string
	Instructions  string
	VacancyTitle  string
}

// Evaluation strategies.
const (
	StrategyRemote     = "remote"
	StrategyFallback   = "fallback"
	StrategyUnreadable = "unreadable"
)

// SkillResult is a skill entry of an EvaluationResult.
type SkillResult struct {
	Skill           string   `json:"skill"`
	Level           int      `json:"level"`
	MatchPercentage *float64 `json:"match_percentage"`
}

// EvaluationResult is the normalized output of the AI evaluator.
type EvaluationResult struct {
	Score           float64
	Status          Status
	Explanation     string
	MatchPercentage *float64
	Skills          []SkillResult
	Strategy        string
}

// UsageRecord is one token accounting entry for a remote AI call.
type UsageRecord struct {
	ID               int64
	ClientID         int64
	CandidateID      *int64
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
	CreatedAt        time.Time
}

// UsageSummary aggregates token usage for a client.
type UsageSummary struct {
	ClientID    int64 `json:"client_id"`
	MonthTokens int64 `json:"month_tokens"`
	MonthRuns   int64 `json:"month_runs"`
	TotalTokens int64 `json:"total_tokens"`
	TotalRuns   int64 `json:"total_runs"`
}

// AnalysisOutcome is everything one analysis run writes, applied atomically.
type AnalysisOutcome struct {
	CandidateID     int64
	Score           float64
	Status          Status
	Explanation     string
	MatchPercentage *float64
	RawText         string
	AnalyzedAt      time.Time
	Skills          []SkillResult
	Usage           *UsageRecord
}

// Criterion is a yes/no manual evaluation item of an application form.
type Criterion struct {
	ID     int64
	FormID int64
	Label  string
	Order  int
}

// ManualEvaluation is what one manual scoring call writes. Score is nil when
// the form has no criteria and the aggregate must stay untouched.
type ManualEvaluation struct {
	CandidateID int64
	Responses   map[int64]bool
	Score       *float64
	Status      Status
}

// CandidateScored is published after a successful scoring write.
type CandidateScored struct {
	CandidateID     int64     `json:"candidate_id"`
	ClientID        int64     `json:"client_id"`
	VacancyID       *int64    `json:"vacancy_id,omitempty"`
	Score           float64   `json:"score"`
	Status          Status    `json:"status"`
	MatchPercentage *float64  `json:"match_percentage,omitempty"`
	Source          string    `json:"source"`
	Strategy        string    `json:"strategy,omitempty"`
	SkillCount      int       `json:"skill_count"`
	ScoredAt        time.Time `json:"scored_at"`
}

// AnalysisTrace is the payload sent to the optional analysis tracer.
type AnalysisTrace struct {
	ProfileSummary   string
	VacancyTitle     string
	TextLength       int
	ClientID         int64
	ClientName       string
	CandidateID      int64
	Score            float64
	Status           Status
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Context is an alias so ports read naturally without importing context everywhere.
type Context = context.Context
