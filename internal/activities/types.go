package activities

import "github.com/researchpro/orchestrator/internal/research"

// ResolveSessionInput resolves or creates the session a research run
// executes under.
type ResolveSessionInput struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

// ResolveSessionResult reports the session a run is bound to.
type ResolveSessionResult struct {
	SessionID string `json:"session_id"`
	Created   bool   `json:"created"`
}

// FetchMemoriesInput bounds the memory context retrieval.
type FetchMemoriesInput struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
}

// SearchAngleInput is one branch of the parallel search fan-out.
type SearchAngleInput struct {
	Angle      research.Angle `json:"angle"`
	MaxResults int            `json:"max_results"`
}

// SearchAngleResult carries one angle's candidate sources.
type SearchAngleResult struct {
	Sources []research.Source `json:"sources"`
}

// FactCheckInput carries the deduplicated sources to annotate.
type FactCheckInput struct {
	Sources []research.Source `json:"sources"`
}

// FactCheckResult carries the annotated sources, same cardinality and
// order as the input.
type FactCheckResult struct {
	Sources []research.Source `json:"sources"`
}

// SummarizeInput is one iteration of the quality loop.
type SummarizeInput struct {
	Sources         []research.Source `json:"sources"`
	PreviousSummary string            `json:"previous_summary,omitempty"`
}

// SummarizeResult is the generated or refined summary text.
type SummarizeResult struct {
	Content string `json:"content"`
}

// ApprovalInput asks a human to sign off on the current summary.
type ApprovalInput struct {
	SessionID string `json:"session_id"`
	Summary   string `json:"summary"`
}

// ApprovalResult is the human decision.
type ApprovalResult struct {
	Approved bool `json:"approved"`
}

// PauseInput suspends a session with the checkpoint resume needs.
type PauseInput struct {
	SessionID  string              `json:"session_id"`
	Reason     string              `json:"reason"`
	Checkpoint research.Checkpoint `json:"checkpoint"`
}

// ReportInput carries everything report generation needs.
type ReportInput struct {
	Query       string               `json:"query"`
	Summary     research.Summary     `json:"summary"`
	Sources     []research.Source    `json:"sources"`
	Preferences research.Preferences `json:"preferences"`
}

// ReportResult is the rendered report.
type ReportResult struct {
	Report string `json:"report"`
}

// CompleteRunInput persists a finished run to its session.
type CompleteRunInput struct {
	SessionID string                  `json:"session_id"`
	Result    research.PipelineResult `json:"result"`
	Resumed   bool                    `json:"resumed"`
}

// FailRunInput marks a session failed.
type FailRunInput struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

// StoreMemoryInput appends the durable fact for a completed run.
type StoreMemoryInput struct {
	UserID  string                 `json:"user_id"`
	Payload research.MemoryPayload `json:"payload"`
}

// ArchiveRunInput archives a finished run for audit.
type ArchiveRunInput struct {
	SessionID       string  `json:"session_id"`
	UserID          string  `json:"user_id"`
	Query           string  `json:"query"`
	Status          string  `json:"status"`
	QualityScore    float64 `json:"quality_score"`
	SourcesCount    int     `json:"sources_count"`
	Iterations      int     `json:"iterations"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
}

// RecordPhaseInput publishes the pipeline's current phase to shared state.
type RecordPhaseInput struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
}
