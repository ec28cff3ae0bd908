package research

import "time"

// Source is a candidate document returned by a search agent. URL is the
// identity key used for deduplication across parallel search branches.
type Source struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Category string `json:"category"` // e.g. "google_search", "academic", "news"

	// CredibilityScore of zero means the search agent never rated the
	// source; rated sources carry a value in (0,1].
	CredibilityScore float64 `json:"credibility_score,omitempty"`
	RecencyScore     float64 `json:"recency_score,omitempty"`
	RelevanceScore   float64 `json:"relevance_score,omitempty"`

	// Set by the fact-check phase. A source the fact checker never saw
	// stays Validated=false with Confidence 0.
	Validated  bool    `json:"validated"`
	Confidence float64 `json:"confidence"`
}

// Summary is the evolving product of the iterative quality loop.
type Summary struct {
	Content      string  `json:"content"`
	QualityScore float64 `json:"quality_score"`
	Iterations   int     `json:"iterations"`
}

// Preferences describe how a user wants reports rendered.
type Preferences struct {
	CitationStyle    string   `json:"citation_style" yaml:"citation_style"`
	DetailLevel      string   `json:"detail_level" yaml:"detail_level"`
	PreferredSources []string `json:"preferred_sources" yaml:"preferred_sources"`
}

// DefaultPreferences returns the preferences used when no profile is
// configured for a user.
func DefaultPreferences() Preferences {
	return Preferences{
		CitationStyle:    "APA",
		DetailLevel:      "comprehensive",
		PreferredSources: []string{"academic", "peer-reviewed"},
	}
}

// Memory is a durable fact derived from a completed research run.
// Immutable once stored; the memory store is append-only per user.
type Memory struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	CreatedAt time.Time     `json:"created_at"`
	Data      MemoryPayload `json:"data"`
}

// MemoryPayload is the stored fact itself.
type MemoryPayload struct {
	Query        string  `json:"query"`
	Summary      string  `json:"summary"`
	SourcesCount int     `json:"sources_count"`
	QualityScore float64 `json:"quality_score"`
}

// Context carries exactly the fields the workflow contract uses. It is a
// first-class serializable value so a paused run can resume in a
// different process.
type Context struct {
	Query           string      `json:"query"`
	UserID          string      `json:"user_id"`
	SessionID       string      `json:"session_id"`
	MaxSources      int         `json:"max_sources"`
	RequireApproval bool        `json:"require_approval"`
	MinQualityScore float64     `json:"min_quality_score"`
	Memories        []Memory    `json:"memories,omitempty"`
	Preferences     Preferences `json:"preferences"`
}

// Checkpoint is the persisted workflow state needed to re-enter the
// pipeline at report generation without recomputing earlier phases.
type Checkpoint struct {
	Context Context   `json:"context"`
	Summary Summary   `json:"summary"`
	Sources []Source  `json:"sources"`
	SavedAt time.Time `json:"saved_at"`
}

// Pipeline statuses surfaced to callers.
const (
	StatusCompleted = "completed"
	StatusPaused    = "paused"
	StatusFailed    = "failed"
)

// PauseReasonAwaitingApproval is the reason recorded when the approval
// gate defers or rejects.
const PauseReasonAwaitingApproval = "awaiting_approval"

// PipelineResult is what one run of the research pipeline produced.
// Report is empty when Status is paused.
type PipelineResult struct {
	Status       string   `json:"status"`
	PauseReason  string   `json:"pause_reason,omitempty"`
	Summary      Summary  `json:"summary"`
	Report       string   `json:"report,omitempty"`
	Sources      []Source `json:"sources,omitempty"`
	SourcesCount int      `json:"sources_count"`
	QualityScore float64  `json:"quality_score"`

	// Set when the outcome was computed but a bookkeeping write failed.
	// The result is still valid; callers decide whether to retry.
	PersistenceWarning string `json:"persistence_warning,omitempty"`
}

// Outcome is the structured result of Research or Resume. Callers always
// receive one of these, never a bare error, for workflow-level failures.
type Outcome struct {
	Success          bool            `json:"success"`
	SessionID        string          `json:"session_id"`
	Query            string          `json:"query"`
	Status           string          `json:"status"`
	Result           *PipelineResult `json:"result,omitempty"`
	DurationSeconds  float64         `json:"duration_seconds"`
	SourcesProcessed int             `json:"sources_processed"`
	QualityScore     float64         `json:"quality_score"`
	Error            string          `json:"error,omitempty"`

	PersistenceWarning string `json:"persistence_warning,omitempty"`
}
