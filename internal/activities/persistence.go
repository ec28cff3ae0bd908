package activities

import (
	"context"
	"fmt"

	"github.com/researchpro/orchestrator/internal/db"
)

// ArchiveRun writes a finished run to the archive database. No-op when
// no archive database is configured.
func (a *Activities) ArchiveRun(ctx context.Context, input ArchiveRunInput) error {
	if a.runWriter == nil {
		return nil
	}
	return a.runWriter.SaveRun(ctx, &db.RunRecord{
		SessionID:       input.SessionID,
		UserID:          input.UserID,
		Query:           input.Query,
		Status:          input.Status,
		QualityScore:    input.QualityScore,
		SourcesCount:    input.SourcesCount,
		Iterations:      input.Iterations,
		DurationSeconds: input.DurationSeconds,
		Error:           input.Error,
	})
}

// RecordPhase publishes the pipeline's current phase to the shared state
// store so operators and other components can observe progress.
func (a *Activities) RecordPhase(ctx context.Context, input RecordPhaseInput) error {
	key := fmt.Sprintf("workflow:%s:phase", input.SessionID)
	return a.shared.Set(ctx, key, input.Phase)
}
