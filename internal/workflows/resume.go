package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/researchpro/orchestrator/internal/activities"
	"github.com/researchpro/orchestrator/internal/research"
)

// ResumeInput identifies the paused session to resume.
type ResumeInput struct {
	SessionID string `json:"session_id"`
}

// ResumeResearchWorkflow re-enters a paused run at report generation.
// Search, fact-checking and summarization are never re-run: their
// product is reloaded from the checkpoint persisted at the pause.
func ResumeResearchWorkflow(ctx workflow.Context, input ResumeInput) (research.PipelineResult, error) {
	logger := workflow.GetLogger(ctx)

	agentCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	storeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})

	var checkpoint research.Checkpoint
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}), activities.LoadCheckpointActivity, input.SessionID).Get(ctx, &checkpoint); err != nil {
		return research.PipelineResult{}, err
	}

	wctx := checkpoint.Context
	wctx.SessionID = input.SessionID
	logger.Info("Resuming paused run at report generation",
		"session_id", input.SessionID,
		"quality_score", checkpoint.Summary.QualityScore,
	)

	recordPhase(storeCtx, input.SessionID, phaseReporting)
	var report activities.ReportResult
	if err := workflow.ExecuteActivity(agentCtx, activities.GenerateReportActivity, activities.ReportInput{
		Query:       wctx.Query,
		Summary:     checkpoint.Summary,
		Sources:     checkpoint.Sources,
		Preferences: wctx.Preferences,
	}).Get(ctx, &report); err != nil {
		return failRun(storeCtx, wctx, err)
	}

	result := research.PipelineResult{
		Status:       research.StatusCompleted,
		Summary:      checkpoint.Summary,
		Report:       report.Report,
		Sources:      checkpoint.Sources,
		SourcesCount: len(checkpoint.Sources),
		QualityScore: checkpoint.Summary.QualityScore,
	}

	finishRun(storeCtx, wctx, &result, true)
	return result, nil
}
