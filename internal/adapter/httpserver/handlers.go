package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/fairyhunter13/ats-cv-scorer/internal/config"
	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// Analyzer runs a CV analysis for a candidate.
type Analyzer interface {
	Run(ctx context.Context, candidateID int64) (domain.Candidate, error)
}

// CriteriaRecorder records manual criterion responses.
type CriteriaRecorder interface {
	RecordResponses(ctx context.Context, candidateID int64, responses map[int64]bool) (domain.Candidate, error)
}

// CandidateReader loads a candidate with its skill evaluations.
type CandidateReader interface {
	Get(ctx context.Context, id int64) (domain.Candidate, error)
}

// UsageReader summarizes a client's AI token usage.
type UsageReader interface {
	Summary(ctx context.Context, clientID int64) (domain.UsageSummary, error)
}

// Check is a named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Analysis   Analyzer
	Criteria   CriteriaRecorder
	Candidates CandidateReader
	Usage      UsageReader
	Checks     []Check
}

// NewServer constructs a Server. Nil checks are skipped by /readyz.
func NewServer(cfg config.Config, analysis Analyzer, criteria CriteriaRecorder, candidates CandidateReader, usage UsageReader, checks ...Check) *Server {
	return &Server{Cfg: cfg, Analysis: analysis, Criteria: criteria, Candidates: candidates, Usage: usage, Checks: checks}
}

type skillView struct {
	Skill           string   `json:"skill"`
	Level           int      `json:"level"`
	MatchPercentage *float64 `json:"match_percentage"`
}

type candidateView struct {
	ID              int64       `json:"id"`
	ClientID        int64       `json:"client_id"`
	VacancyID       *int64      `json:"vacancy_id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Score           float64     `json:"score"`
	Status          string      `json:"status"`
	MatchPercentage *float64    `json:"match_percentage"`
	Explanation     string      `json:"explanation"`
	AnalysisDate    *time.Time  `json:"analysis_date"`
	CVFile          string      `json:"cv_file"`
	RawTextLength   int         `json:"raw_text_length"`
	Skills          []skillView `json:"skills"`
}

func toCandidateView(c domain.Candidate) candidateView {
	v := candidateView{
		ID:              c.ID,
		ClientID:        c.ClientID,
		VacancyID:       c.VacancyID,
		Name:            c.Name,
		Email:           c.Email,
		Score:           c.Score,
		Status:          string(c.Status),
		MatchPercentage: c.MatchPercentage,
		Explanation:     c.Explanation,
		AnalysisDate:    c.AnalysisDate,
		CVFile:          c.CVFile,
		RawTextLength:   len([]rune(c.RawText)),
		Skills:          make([]skillView, 0, len(c.Skills)),
	}
	for _, s := range c.Skills {
		v.Skills = append(v.Skills, skillView{Skill: s.Skill, Level: s.Level, MatchPercentage: s.MatchPercentage})
	}
	return v
}

// AnalyzeHandler handles POST /v1/candidates/{id}/analysis.
func (s *Server) AnalyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		c, err := s.Analysis.Run(r.Context(), id)
		if err != nil {
			writeError(w, r, err, map[string]any{"candidate_id": id})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "candidate": toCandidateView(c)})
	}
}

// CriteriaHandler handles POST /v1/candidates/{id}/criteria.
func (s *Server) CriteriaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		responses, details, err := decodeCriteria(r)
		if err != nil {
			writeError(w, r, err, details)
			return
		}
		c, err := s.Criteria.RecordResponses(r.Context(), id, responses)
		if err != nil {
			writeError(w, r, err, map[string]any{"candidate_id": id})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "candidate": toCandidateView(c)})
	}
}

// CandidateHandler handles GET /v1/candidates/{id}.
func (s *Server) CandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		c, err := s.Candidates.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toCandidateView(c))
	}
}

// UsageHandler handles GET /v1/clients/{id}/usage.
func (s *Server) UsageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		sum, err := s.Usage.Summary(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

// ReadyzHandler runs every configured check with a shared 2s budget.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		ok := true
		for _, c := range s.Checks {
			if c.Probe == nil {
				continue
			}
			if err := c.Probe(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: c.Name, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: c.Name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
