package activities

import (
	"context"
	"fmt"

	"github.com/researchpro/orchestrator/internal/agents"
	"github.com/researchpro/orchestrator/internal/research"
)

// memorySummaryLimit bounds the summary excerpt stored per memory record.
const memorySummaryLimit = 500

// FetchMemories retrieves a bounded set of the user's relevant memories
// as auxiliary context for a new run.
func (a *Activities) FetchMemories(ctx context.Context, input FetchMemoriesInput) ([]research.Memory, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}
	return a.memories.Search(ctx, input.UserID, input.Query, limit)
}

// StoreMemory appends the durable fact derived from a completed run.
func (a *Activities) StoreMemory(ctx context.Context, input StoreMemoryInput) error {
	payload := input.Payload
	if len(payload.Summary) > memorySummaryLimit {
		payload.Summary = payload.Summary[:memorySummaryLimit]
	}
	if _, err := a.memories.Append(ctx, input.UserID, payload); err != nil {
		return fmt.Errorf("store memory: %w", err)
	}
	return nil
}

func agentReportRequest(input ReportInput) agents.ReportRequest {
	return agents.ReportRequest{
		Query:       input.Query,
		Summary:     input.Summary,
		Sources:     input.Sources,
		Preferences: input.Preferences,
	}
}
