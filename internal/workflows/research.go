// Package workflows drives the five-phase research pipeline: parallel
// search fan-out, dedup, fact-checking, the iterative quality loop, the
// approval gate and report generation.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/researchpro/orchestrator/internal/activities"
	"github.com/researchpro/orchestrator/internal/quality"
	"github.com/researchpro/orchestrator/internal/research"
)

// TaskQueue is the Temporal task queue the research worker polls.
const TaskQueue = "research-pipeline"

const (
	// maxSummarizationIterations bounds the quality loop. Fixed design
	// constant, not caller-configurable.
	maxSummarizationIterations = 3

	// defaultMinQualityScore gates loop termination when the caller
	// doesn't supply a threshold.
	defaultMinQualityScore = 0.8

	// memoryContextLimit bounds how many memories feed a new run.
	memoryContextLimit = 5
)

// Pipeline phase names published to shared state.
const (
	phaseSearching    = "searching"
	phaseFactChecking = "fact_checking"
	phaseSummarizing  = "summarizing"
	phaseAwaiting     = "awaiting_approval"
	phaseReporting    = "reporting"
)

// ResearchWorkflow executes one research run end to end. It returns a
// paused result without a report when the approval gate defers; a later
// ResumeResearchWorkflow picks up from the persisted checkpoint.
func ResearchWorkflow(ctx workflow.Context, input research.Context) (research.PipelineResult, error) {
	logger := workflow.GetLogger(ctx)

	if input.MinQualityScore <= 0 {
		input.MinQualityScore = defaultMinQualityScore
	}

	agentCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	storeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})

	// Bind the run to a session and record the user's query.
	var resolved activities.ResolveSessionResult
	if err := workflow.ExecuteActivity(storeCtx, activities.ResolveSessionActivity, activities.ResolveSessionInput{
		UserID:    input.UserID,
		SessionID: input.SessionID,
		Query:     input.Query,
	}).Get(ctx, &resolved); err != nil {
		return research.PipelineResult{}, err
	}
	input.SessionID = resolved.SessionID

	// Auxiliary context: relevant memories and report preferences. Both
	// degrade gracefully; neither failure aborts the run.
	if err := workflow.ExecuteActivity(storeCtx, activities.FetchMemoriesActivity, activities.FetchMemoriesInput{
		UserID: input.UserID,
		Query:  input.Query,
		Limit:  memoryContextLimit,
	}).Get(ctx, &input.Memories); err != nil {
		logger.Warn("Memory retrieval failed, continuing without context", "error", err)
	}
	if err := workflow.ExecuteActivity(storeCtx, activities.GetPreferencesActivity, input.UserID).Get(ctx, &input.Preferences); err != nil {
		logger.Warn("Preference lookup failed, using defaults", "error", err)
		input.Preferences = research.DefaultPreferences()
	}

	// Phase 1: parallel search fan-out with per-angle failure isolation.
	recordPhase(storeCtx, input.SessionID, phaseSearching)
	sources := parallelSearch(agentCtx, input)
	logger.Info("Search phase finished",
		"session_id", input.SessionID,
		"unique_sources", len(sources),
	)

	// Phase 2: annotate-only fact checking.
	recordPhase(storeCtx, input.SessionID, phaseFactChecking)
	var checked activities.FactCheckResult
	if err := workflow.ExecuteActivity(agentCtx, activities.FactCheckSourcesActivity, activities.FactCheckInput{
		Sources: sources,
	}).Get(ctx, &checked); err != nil {
		return failRun(storeCtx, input, err)
	}
	validated := checked.Sources

	// Phase 3: iterative summarization until the quality threshold or
	// the iteration cap, whichever comes first.
	recordPhase(storeCtx, input.SessionID, phaseSummarizing)
	summary, err := summarizeLoop(agentCtx, validated, input.MinQualityScore)
	if err != nil {
		return failRun(storeCtx, input, err)
	}

	// Phase 4: approval gate. An immediate approve continues
	// synchronously; anything else suspends the run.
	if input.RequireApproval {
		recordPhase(storeCtx, input.SessionID, phaseAwaiting)
		var approval activities.ApprovalResult
		if err := workflow.ExecuteActivity(agentCtx, activities.RequestApprovalActivity, activities.ApprovalInput{
			SessionID: input.SessionID,
			Summary:   summary.Content,
		}).Get(ctx, &approval); err != nil {
			return failRun(storeCtx, input, err)
		}

		if !approval.Approved {
			if err := workflow.ExecuteActivity(storeCtx, activities.PauseForApprovalActivity, activities.PauseInput{
				SessionID: input.SessionID,
				Reason:    research.PauseReasonAwaitingApproval,
				Checkpoint: research.Checkpoint{
					Context: input,
					Summary: summary,
					Sources: validated,
					SavedAt: workflow.Now(ctx),
				},
			}).Get(ctx, nil); err != nil {
				return failRun(storeCtx, input, err)
			}

			logger.Info("Run paused pending approval", "session_id", input.SessionID)
			return research.PipelineResult{
				Status:       research.StatusPaused,
				PauseReason:  research.PauseReasonAwaitingApproval,
				Summary:      summary,
				SourcesCount: len(validated),
				QualityScore: summary.QualityScore,
			}, nil
		}
	}

	// Phase 5: report generation.
	recordPhase(storeCtx, input.SessionID, phaseReporting)
	var report activities.ReportResult
	if err := workflow.ExecuteActivity(agentCtx, activities.GenerateReportActivity, activities.ReportInput{
		Query:       input.Query,
		Summary:     summary,
		Sources:     validated,
		Preferences: input.Preferences,
	}).Get(ctx, &report); err != nil {
		return failRun(storeCtx, input, err)
	}

	result := research.PipelineResult{
		Status:       research.StatusCompleted,
		Summary:      summary,
		Report:       report.Report,
		Sources:      validated,
		SourcesCount: len(validated),
		QualityScore: summary.QualityScore,
	}

	finishRun(storeCtx, input, &result, false)
	return result, nil
}

// parallelSearch fans one search activity out per angle and merges the
// results. A failed angle contributes zero results; the dispatch order
// of angles fixes dedup tie-breaking.
func parallelSearch(ctx workflow.Context, input research.Context) []research.Source {
	logger := workflow.GetLogger(ctx)

	angles := research.DeriveAngles(input.Query)
	perAngle := input.MaxSources / len(angles)

	futures := make([]workflow.Future, len(angles))
	for i, angle := range angles {
		futures[i] = workflow.ExecuteActivity(ctx, activities.SearchAngleActivity, activities.SearchAngleInput{
			Angle:      angle,
			MaxResults: perAngle,
		})
	}

	perAngleResults := make([][]research.Source, len(angles))
	for i, future := range futures {
		var res activities.SearchAngleResult
		if err := future.Get(ctx, &res); err != nil {
			logger.Warn("Search angle failed, continuing without it",
				"facet", angles[i].Facet,
				"error", err,
			)
			continue
		}
		perAngleResults[i] = res.Sources
	}

	return research.MergeSources(perAngleResults, input.MaxSources)
}

// summarizeLoop runs the bounded quality-improvement loop. It always
// executes at least once and reports exhaustion transparently through
// the returned score and iteration count.
func summarizeLoop(ctx workflow.Context, sources []research.Source, minQuality float64) (research.Summary, error) {
	logger := workflow.GetLogger(ctx)

	var summary research.Summary
	for iteration := 1; iteration <= maxSummarizationIterations; iteration++ {
		var out activities.SummarizeResult
		if err := workflow.ExecuteActivity(ctx, activities.SummarizeSourcesActivity, activities.SummarizeInput{
			Sources:         sources,
			PreviousSummary: summary.Content,
		}).Get(ctx, &out); err != nil {
			return research.Summary{}, err
		}

		score := quality.Evaluate(out.Content, sources)
		summary = research.Summary{
			Content:      out.Content,
			QualityScore: score.Overall,
			Iterations:   iteration,
		}
		logger.Info("Summarization iteration scored",
			"iteration", iteration,
			"quality_score", score.Overall,
		)

		if score.Overall >= minQuality {
			break
		}
	}
	return summary, nil
}

// finishRun persists the completed result. Session persistence failure
// after a computed result is a partial failure: the result is kept and
// the error surfaces as a warning. Memory and archive writes are
// best-effort.
func finishRun(ctx workflow.Context, input research.Context, result *research.PipelineResult, resumed bool) {
	logger := workflow.GetLogger(ctx)

	if err := workflow.ExecuteActivity(ctx, activities.CompleteRunActivity, activities.CompleteRunInput{
		SessionID: input.SessionID,
		Result:    *result,
		Resumed:   resumed,
	}).Get(ctx, nil); err != nil {
		logger.Error("Session persistence failed after successful run",
			"session_id", input.SessionID,
			"error", err,
		)
		result.PersistenceWarning = (&research.PersistenceError{Op: "session update", Err: err}).Error()
	}

	if err := workflow.ExecuteActivity(ctx, activities.StoreMemoryActivity, activities.StoreMemoryInput{
		UserID: input.UserID,
		Payload: research.MemoryPayload{
			Query:        input.Query,
			Summary:      result.Summary.Content,
			SourcesCount: result.SourcesCount,
			QualityScore: result.QualityScore,
		},
	}).Get(ctx, nil); err != nil {
		logger.Warn("Memory write failed", "error", err)
	}

	if err := workflow.ExecuteActivity(ctx, activities.ArchiveRunActivity, activities.ArchiveRunInput{
		SessionID:    input.SessionID,
		UserID:       input.UserID,
		Query:        input.Query,
		Status:       result.Status,
		QualityScore: result.QualityScore,
		SourcesCount: result.SourcesCount,
		Iterations:   result.Summary.Iterations,
	}).Get(ctx, nil); err != nil {
		logger.Warn("Run archive write failed", "error", err)
	}
}

// failRun marks the session failed and propagates the phase error.
func failRun(ctx workflow.Context, input research.Context, cause error) (research.PipelineResult, error) {
	logger := workflow.GetLogger(ctx)

	if err := workflow.ExecuteActivity(ctx, activities.FailRunActivity, activities.FailRunInput{
		SessionID: input.SessionID,
		Error:     cause.Error(),
	}).Get(ctx, nil); err != nil {
		logger.Warn("Failed to mark session failed", "session_id", input.SessionID, "error", err)
	}

	if err := workflow.ExecuteActivity(ctx, activities.ArchiveRunActivity, activities.ArchiveRunInput{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Query:     input.Query,
		Status:    research.StatusFailed,
		Error:     cause.Error(),
	}).Get(ctx, nil); err != nil {
		logger.Warn("Run archive write failed", "error", err)
	}

	return research.PipelineResult{}, cause
}

func recordPhase(ctx workflow.Context, sessionID, phase string) {
	if err := workflow.ExecuteActivity(ctx, activities.RecordPhaseActivity, activities.RecordPhaseInput{
		SessionID: sessionID,
		Phase:     phase,
	}).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("Failed to record phase", "phase", phase, "error", err)
	}
}
