// Package agents abstracts the four specialized agent roles the research
// pipeline drives: search, fact-check, summarize and report generation,
// plus the human approval request. The workflow treats each capability
// as an opaque async call; transport is an implementation detail.
package agents

import (
	"context"

	"github.com/researchpro/orchestrator/internal/research"
)

// Capability names, used in errors and metrics labels.
const (
	CapabilitySearch    = "search"
	CapabilityFactCheck = "fact_check"
	CapabilitySummarize = "summarize"
	CapabilityReport    = "report"
	CapabilityApproval  = "approval"
)

// ReportRequest carries everything the report agent needs to write the
// narrative synthesis of a research run.
type ReportRequest struct {
	Query       string               `json:"query"`
	Summary     research.Summary     `json:"summary"`
	Sources     []research.Source    `json:"sources"`
	Preferences research.Preferences `json:"preferences"`
}

// Gateway is the agent capability surface the workflow depends on.
type Gateway interface {
	// Search returns ranked candidate sources for one query angle,
	// bounded to maxResults.
	Search(ctx context.Context, angle string, maxResults int) ([]research.Source, error)

	// FactCheck annotates sources with validation flags and confidence
	// scores. It never drops sources.
	FactCheck(ctx context.Context, sources []research.Source) ([]research.Source, error)

	// Summarize generates or refines a summary of the given sources.
	// previousSummary is empty on the first iteration.
	Summarize(ctx context.Context, sources []research.Source, previousSummary string) (string, error)

	// GenerateReport produces the narrative synthesis for the final report.
	GenerateReport(ctx context.Context, req ReportRequest) (string, error)

	// RequestApproval asks a human to approve the current summary.
	// True means approved; false means deferred or rejected.
	RequestApproval(ctx context.Context, sessionID, summary string) (bool, error)
}
