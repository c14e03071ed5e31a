package domain

import "time"

// Repositories (ports)

type CandidateRepository interface {
	// Get loads a candidate with its client analysis config and vacancy.
	Get(ctx Context, id int64) (Candidate, error)
	ListSkills(ctx Context, candidateID int64) ([]SkillEvaluation, error)
}

// AnalysisStore applies an AnalysisOutcome in a single transaction.
type AnalysisStore interface {
	SaveAnalysis(ctx Context, out AnalysisOutcome) error
}

type CriteriaStore interface {
	// ListForCandidate returns the criteria of the form the candidate first applied through.
	ListForCandidate(ctx Context, candidateID int64) ([]Criterion, error)
	ListResponses(ctx Context, candidateID int64) (map[int64]bool, error)
	SaveManualEvaluation(ctx Context, ev ManualEvaluation) error
}

type UsageRepository interface {
	Summary(ctx Context, clientID int64, monthStart time.Time) (UsageSummary, error)
}

// FileStorage resolves a stored CV reference to a locally readable path.
// It returns ErrCVFileMissing when the file cannot be read.
type FileStorage interface {
	Resolve(ctx Context, ref string) (path string, fileName string, err error)
}

// TextExtractor (port)
// ExtractPath extracts text from a file at path with provided original filename.
type TextExtractor interface {
	ExtractPath(ctx Context, fileName, path string) (string, error)
}

// ChatRequest is a single JSON-constrained chat completion call.
type ChatRequest struct {
	System      string
	User        string
	Model       string
	Temperature float32
	MaxTokens   int
}

// ChatResponse carries the message content and provider token counters.
type ChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// ChatClient is the remote language model capability.
type ChatClient interface {
	Provider() string
	ChatJSON(ctx Context, req ChatRequest) (ChatResponse, error)
}

// Locker serializes work per key. TryLock fails with ErrConflict when the
// key is already held.
type Locker interface {
	TryLock(ctx Context, key string) (unlock func(), err error)
}

// RateLimiter is a token bucket keyed by an arbitrary string.
type RateLimiter interface {
	Allow(ctx Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// AnalysisTracer receives best-effort analysis traces. Implementations must
// not block the caller for long and never fail it.
type AnalysisTracer interface {
	TraceAnalysis(ctx Context, t AnalysisTrace)
}

// EventPublisher publishes scoring events.
type EventPublisher interface {
	PublishCandidateScored(ctx Context, ev CandidateScored) error
}
