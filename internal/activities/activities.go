// Package activities implements the Temporal activities the research
// workflows execute: agent invocations and store mutations. Activities
// are the only place the workflow touches the outside world.
package activities

import (
	"github.com/researchpro/orchestrator/internal/agents"
	"github.com/researchpro/orchestrator/internal/db"
	"github.com/researchpro/orchestrator/internal/memory"
	"github.com/researchpro/orchestrator/internal/preferences"
	"github.com/researchpro/orchestrator/internal/session"
	"github.com/researchpro/orchestrator/internal/state"
	"go.uber.org/zap"
)

// Activity names, referenced by the workflows.
const (
	ResolveSessionActivity   = "ResolveSession"
	FetchMemoriesActivity    = "FetchMemories"
	GetPreferencesActivity   = "GetPreferences"
	SearchAngleActivity      = "SearchAngle"
	FactCheckSourcesActivity = "FactCheckSources"
	SummarizeSourcesActivity = "SummarizeSources"
	RequestApprovalActivity  = "RequestApproval"
	PauseForApprovalActivity = "PauseForApproval"
	GenerateReportActivity   = "GenerateReport"
	LoadCheckpointActivity   = "LoadCheckpoint"
	CompleteRunActivity      = "CompleteRun"
	FailRunActivity          = "FailRun"
	StoreMemoryActivity      = "StoreMemory"
	ArchiveRunActivity       = "ArchiveRun"
	RecordPhaseActivity      = "RecordPhase"
)

// Activities holds dependencies shared by all activity implementations.
type Activities struct {
	sessions  *session.Manager
	memories  *memory.Store
	shared    *state.Store
	gateway   agents.Gateway
	prefs     *preferences.Registry
	runWriter *db.Writer // optional; nil disables archiving
	logger    *zap.Logger
}

// NewActivities creates an activities instance with its dependencies.
// runWriter may be nil when no archive database is configured.
func NewActivities(
	sessions *session.Manager,
	memories *memory.Store,
	shared *state.Store,
	gateway agents.Gateway,
	prefs *preferences.Registry,
	runWriter *db.Writer,
	logger *zap.Logger,
) *Activities {
	return &Activities{
		sessions:  sessions,
		memories:  memories,
		shared:    shared,
		gateway:   gateway,
		prefs:     prefs,
		runWriter: runWriter,
		logger:    logger,
	}
}
