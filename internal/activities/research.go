package activities

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/researchpro/orchestrator/internal/metrics"
	"github.com/researchpro/orchestrator/internal/research"
)

// SearchAngle runs one branch of the parallel search fan-out. A failure
// here is isolated by the workflow: the angle contributes zero results
// and the other branches continue.
func (a *Activities) SearchAngle(ctx context.Context, input SearchAngleInput) (SearchAngleResult, error) {
	if input.MaxResults <= 0 {
		// Integer division of maxSources across angles can bottom out at
		// zero; the branch then legitimately contributes nothing.
		return SearchAngleResult{}, nil
	}

	sources, err := a.gateway.Search(ctx, input.Angle.Query, input.MaxResults)
	if err != nil {
		metrics.SearchAngleFailures.Inc()
		a.logger.Warn("Search angle failed",
			zap.String("facet", input.Angle.Facet),
			zap.Error(err),
		)
		return SearchAngleResult{}, err
	}

	if len(sources) > input.MaxResults {
		sources = sources[:input.MaxResults]
	}
	return SearchAngleResult{Sources: sources}, nil
}

// FactCheckSources annotates sources with validation flags and
// confidence scores. The phase never drops a source: anything the fact
// checker failed to annotate is returned unvalidated with confidence 0.
func (a *Activities) FactCheckSources(ctx context.Context, input FactCheckInput) (FactCheckResult, error) {
	if len(input.Sources) == 0 {
		return FactCheckResult{}, nil
	}

	annotated, err := a.gateway.FactCheck(ctx, input.Sources)
	if err != nil {
		return FactCheckResult{}, err
	}

	byURL := make(map[string]research.Source, len(annotated))
	for _, s := range annotated {
		byURL[s.URL] = s
	}

	out := make([]research.Source, len(input.Sources))
	for i, s := range input.Sources {
		if ann, ok := byURL[s.URL]; ok {
			out[i] = ann
		} else {
			s.Validated = false
			s.Confidence = 0
			out[i] = s
		}
	}
	return FactCheckResult{Sources: out}, nil
}

// SummarizeSources generates or refines a summary of the validated
// sources. PreviousSummary is empty on the first loop iteration.
func (a *Activities) SummarizeSources(ctx context.Context, input SummarizeInput) (SummarizeResult, error) {
	content, err := a.gateway.Summarize(ctx, input.Sources, input.PreviousSummary)
	if err != nil {
		return SummarizeResult{}, err
	}
	return SummarizeResult{Content: content}, nil
}

// RequestApproval asks a human to sign off on the current summary.
func (a *Activities) RequestApproval(ctx context.Context, input ApprovalInput) (ApprovalResult, error) {
	approved, err := a.gateway.RequestApproval(ctx, input.SessionID, input.Summary)
	if err != nil {
		return ApprovalResult{}, err
	}
	return ApprovalResult{Approved: approved}, nil
}

// GetPreferences resolves the user's report preferences.
func (a *Activities) GetPreferences(ctx context.Context, userID string) (research.Preferences, error) {
	return a.prefs.ForUser(userID), nil
}

// GenerateReport asks the report agent for a narrative synthesis, then
// renders the full report around it.
func (a *Activities) GenerateReport(ctx context.Context, input ReportInput) (ReportResult, error) {
	synthesis, err := a.gateway.GenerateReport(ctx, agentReportRequest(input))
	if err != nil {
		return ReportResult{}, fmt.Errorf("report synthesis: %w", err)
	}

	report := research.RenderReport(research.ReportInput{
		Query:       input.Query,
		Synthesis:   synthesis,
		Summary:     input.Summary,
		Sources:     input.Sources,
		Preferences: input.Preferences,
	})
	return ReportResult{Report: report}, nil
}
