package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap/zaptest"

	"github.com/researchpro/orchestrator/internal/activities"
	"github.com/researchpro/orchestrator/internal/agents"
	"github.com/researchpro/orchestrator/internal/memory"
	"github.com/researchpro/orchestrator/internal/preferences"
	"github.com/researchpro/orchestrator/internal/research"
	"github.com/researchpro/orchestrator/internal/session"
	"github.com/researchpro/orchestrator/internal/state"
)

// fakeGateway is a deterministic in-process stand-in for the agent
// service. It counts calls per capability so tests can assert which
// phases actually ran.
type fakeGateway struct {
	mu             sync.Mutex
	searchCalls    int
	factCheckCalls int
	summarizeCalls int
	reportCalls    int
	approvalCalls  int

	searchFn  func(angle string, maxResults int) ([]research.Source, error)
	summaryFn func(iteration int) string
	approve   bool
}

func (f *fakeGateway) Search(_ context.Context, angle string, maxResults int) ([]research.Source, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	return f.searchFn(angle, maxResults)
}

func (f *fakeGateway) FactCheck(_ context.Context, sources []research.Source) ([]research.Source, error) {
	f.mu.Lock()
	f.factCheckCalls++
	f.mu.Unlock()
	out := make([]research.Source, len(sources))
	for i, s := range sources {
		s.Validated = true
		s.Confidence = 0.9
		out[i] = s
	}
	return out, nil
}

func (f *fakeGateway) Summarize(_ context.Context, _ []research.Source, _ string) (string, error) {
	f.mu.Lock()
	f.summarizeCalls++
	n := f.summarizeCalls
	f.mu.Unlock()
	if f.summaryFn != nil {
		return f.summaryFn(n), nil
	}
	return richSummary(), nil
}

func (f *fakeGateway) GenerateReport(_ context.Context, req agents.ReportRequest) (string, error) {
	f.mu.Lock()
	f.reportCalls++
	f.mu.Unlock()
	return "Synthesis of findings for: " + req.Query, nil
}

func (f *fakeGateway) RequestApproval(_ context.Context, _, _ string) (bool, error) {
	f.mu.Lock()
	f.approvalCalls++
	f.mu.Unlock()
	return f.approve, nil
}

// richSummary clears the quality threshold: long, structured, cited.
func richSummary() string {
	paragraph := strings.Repeat("Quantum processors manipulate entangled qubits to explore many states at once. ", 20)
	return "# Findings\n\n" + paragraph + "\n\nKey results appear in recent surveys [1] (2024) and at https://example.org/qc."
}

// fakeSources returns maxResults sources for an angle with URLs unique
// to that angle.
func fakeSources(angle string, maxResults int) ([]research.Source, error) {
	facet := strings.ReplaceAll(angle, " ", "-")
	out := make([]research.Source, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		out = append(out, research.Source{
			URL:              fmt.Sprintf("https://example.org/%s/%d", facet, i),
			Title:            fmt.Sprintf("Result %d for %s", i, angle),
			Category:         "academic",
			CredibilityScore: 0.8,
		})
	}
	return out, nil
}

// pipelineFixture wires the real activities to miniredis-backed stores
// and the fake gateway.
type pipelineFixture struct {
	gateway  *fakeGateway
	redis    *redis.Client
	sessions *session.Manager
	acts     *activities.Activities
}

func newPipelineFixture(t *testing.T, gw *fakeGateway) *pipelineFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zaptest.NewLogger(t)
	sessions := session.NewManagerFromClient(client, logger)
	acts := activities.NewActivities(
		sessions,
		memory.NewStore(client, logger),
		state.NewStore(client),
		gw,
		preferences.NewRegistry(),
		nil,
		logger,
	)
	return &pipelineFixture{gateway: gw, redis: client, sessions: sessions, acts: acts}
}

func (f *pipelineFixture) newEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ResearchWorkflow)
	env.RegisterWorkflow(ResumeResearchWorkflow)
	env.RegisterActivity(f.acts)
	return env
}

func runPipeline(t *testing.T, env *testsuite.TestWorkflowEnvironment, input research.Context) research.PipelineResult {
	t.Helper()
	env.ExecuteWorkflow(ResearchWorkflow, input)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result research.PipelineResult
	require.NoError(t, env.GetWorkflowResult(&result))
	return result
}

func TestResearchWorkflowCompletes(t *testing.T) {
	gw := &fakeGateway{searchFn: fakeSources, approve: true}
	fixture := newPipelineFixture(t, gw)
	env := fixture.newEnv(t)

	result := runPipeline(t, env, research.Context{
		Query:           "What is quantum computing?",
		UserID:          "user-1",
		MaxSources:      6,
		MinQualityScore: 0.2,
	})

	assert.Equal(t, research.StatusCompleted, result.Status)
	assert.Equal(t, 6, result.SourcesCount)
	assert.Equal(t, 1, result.Summary.Iterations)
	assert.Greater(t, result.QualityScore, 0.0)
	assert.Empty(t, result.PersistenceWarning)

	// 6 sources across 3 angles means 2 per angle.
	assert.Equal(t, 3, gw.searchCalls)
	assert.Equal(t, 1, gw.factCheckCalls)
	assert.Equal(t, 1, gw.reportCalls)

	assert.Contains(t, result.Report, "# Research Report: What is quantum computing?")
	assert.Contains(t, result.Report, "## Quality Metrics")
	assert.Contains(t, result.Report, "## Sources")
	// The source list is capped at five entries.
	assert.NotContains(t, result.Report, "6. [")

	// Every surviving source carries fact-check annotations.
	for _, s := range result.Sources {
		assert.True(t, s.Validated)
		assert.InDelta(t, 0.9, s.Confidence, 1e-9)
	}
}

func TestResearchWorkflowDeduplicatesAcrossAngles(t *testing.T) {
	shared := research.Source{URL: "https://example.org/shared", Title: "Shared", Category: "news"}
	gw := &fakeGateway{
		approve: true,
		searchFn: func(angle string, maxResults int) ([]research.Source, error) {
			// Every angle returns the same shared URL first, then one
			// angle-unique source.
			unique, _ := fakeSources(angle, 1)
			return append([]research.Source{shared}, unique...), nil
		},
	}
	fixture := newPipelineFixture(t, gw)
	env := fixture.newEnv(t)

	result := runPipeline(t, env, research.Context{
		Query:           "history of cryptography",
		UserID:          "user-1",
		MaxSources:      9,
		MinQualityScore: 0.2,
	})

	assert.Equal(t, research.StatusCompleted, result.Status)
	// 3 angles x (1 shared + 1 unique) collapses to 1 + 3 sources.
	assert.Equal(t, 4, result.SourcesCount)

	urls := make(map[string]int)
	for _, s := range result.Sources {
		urls[s.URL]++
	}
	for url, n := range urls {
		assert.Equal(t, 1, n, "duplicate url %s survived the merge", url)
	}
	// First occurrence wins, so the shared source leads the merged list.
	assert.Equal(t, shared.URL, result.Sources[0].URL)
}

func TestResearchWorkflowSurvivesFailedAngle(t *testing.T) {
	gw := &fakeGateway{
		approve: true,
		searchFn: func(angle string, maxResults int) ([]research.Source, error) {
			if strings.Contains(angle, "academic papers") {
				return nil, fmt.Errorf("search backend unavailable")
			}
			return fakeSources(angle, maxResults)
		},
	}
	fixture := newPipelineFixture(t, gw)
	env := fixture.newEnv(t)

	result := runPipeline(t, env, research.Context{
		Query:           "solar panel efficiency",
		UserID:          "user-1",
		MaxSources:      6,
		MinQualityScore: 0.2,
	})

	// One dead angle still leaves the other two branches' results.
	assert.Equal(t, research.StatusCompleted, result.Status)
	assert.Equal(t, 4, result.SourcesCount)
	assert.Equal(t, 3, gw.searchCalls)
	assert.NotEmpty(t, result.Report)
}

func TestResearchWorkflowQualityLoopExhausts(t *testing.T) {
	gw := &fakeGateway{
		searchFn: fakeSources,
		approve:  true,
		// Always below threshold, so the loop must stop at the cap.
		summaryFn: func(int) string { return "brief note" },
	}
	fixture := newPipelineFixture(t, gw)
	env := fixture.newEnv(t)

	result := runPipeline(t, env, research.Context{
		Query:      "graph databases",
		UserID:     "user-1",
		MaxSources: 6,
	})

	assert.Equal(t, research.StatusCompleted, result.Status)
	assert.Equal(t, 3, result.Summary.Iterations)
	assert.Equal(t, 3, gw.summarizeCalls)
	assert.Less(t, result.QualityScore, defaultMinQualityScore)
	// Exhaustion is transparent: the best summary still ships.
	assert.Equal(t, "brief note", result.Summary.Content)
}

func TestResearchWorkflowStopsEarlyAtThreshold(t *testing.T) {
	gw := &fakeGateway{searchFn: fakeSources, approve: true}
	fixture := newPipelineFixture(t, gw)
	env := fixture.newEnv(t)

	result := runPipeline(t, env, research.Context{
		Query:           "container networking",
		UserID:          "user-1",
		MaxSources:      6,
		MinQualityScore: 0.2,
	})

	assert.Equal(t, research.StatusCompleted, result.Status)
	assert.Equal(t, 1, gw.summarizeCalls)
	assert.GreaterOrEqual(t, result.QualityScore, 0.2)
}

func TestResearchWorkflowKeepsResultWhenSessionWriteFails(t *testing.T) {
	gw := &fakeGateway{searchFn: fakeSources, approve: true}
	fixture := newPipelineFixture(t, gw)
	env := fixture.newEnv(t)

	// The session store dies after the pipeline has done its work. The
	// run must still succeed and surface the degraded bookkeeping.
	env.OnActivity(activities.CompleteRunActivity, mock.Anything, mock.Anything).
		Return(errors.New("redis: connection refused"))

	result := runPipeline(t, env, research.Context{
		Query:           "battery chemistry",
		UserID:          "user-1",
		MaxSources:      6,
		MinQualityScore: 0.2,
	})

	assert.Equal(t, research.StatusCompleted, result.Status)
	assert.Contains(t, result.Report, "# Research Report: battery chemistry")
	assert.Equal(t, 6, result.SourcesCount)
	assert.NotEmpty(t, result.PersistenceWarning)
	assert.Contains(t, result.PersistenceWarning, "session update")
}

func TestResearchWorkflowPausesOnRejectedApproval(t *testing.T) {
	gw := &fakeGateway{searchFn: fakeSources, approve: false}
	fixture := newPipelineFixture(t, gw)
	env := fixture.newEnv(t)

	result := runPipeline(t, env, research.Context{
		Query:           "gene editing ethics",
		UserID:          "user-1",
		MaxSources:      6,
		RequireApproval: true,
		MinQualityScore: 0.2,
	})

	assert.Equal(t, research.StatusPaused, result.Status)
	assert.Equal(t, research.PauseReasonAwaitingApproval, result.PauseReason)
	assert.Empty(t, result.Report)
	assert.Equal(t, 1, gw.approvalCalls)
	assert.Equal(t, 0, gw.reportCalls)

	// The session carries the checkpoint the resume path needs.
	sess := findSession(t, fixture)
	assert.Equal(t, session.StatusPaused, sess.Status)
	assert.Equal(t, research.PauseReasonAwaitingApproval, sess.PauseReason)
	require.NotNil(t, sess.Checkpoint)
	assert.Equal(t, 6, len(sess.Checkpoint.Sources))
	assert.NotEmpty(t, sess.Checkpoint.Summary.Content)
}

func TestResumeWorkflowFinishesPausedRun(t *testing.T) {
	gw := &fakeGateway{searchFn: fakeSources, approve: false}
	fixture := newPipelineFixture(t, gw)

	paused := runPipeline(t, fixture.newEnv(t), research.Context{
		Query:           "ocean acidification",
		UserID:          "user-1",
		MaxSources:      6,
		RequireApproval: true,
		MinQualityScore: 0.2,
	})
	require.Equal(t, research.StatusPaused, paused.Status)
	searchesBeforeResume := gw.searchCalls
	summarizationsBeforeResume := gw.summarizeCalls

	sess := findSession(t, fixture)

	env := fixture.newEnv(t)
	env.ExecuteWorkflow(ResumeResearchWorkflow, ResumeInput{SessionID: sess.ID})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result research.PipelineResult
	require.NoError(t, env.GetWorkflowResult(&result))

	assert.Equal(t, research.StatusCompleted, result.Status)
	assert.Contains(t, result.Report, "# Research Report: ocean acidification")
	assert.Equal(t, 6, result.SourcesCount)
	assert.Equal(t, paused.QualityScore, result.QualityScore)

	// Resume re-enters at report generation only. No phase before it
	// runs again.
	assert.Equal(t, searchesBeforeResume, gw.searchCalls)
	assert.Equal(t, summarizationsBeforeResume, gw.summarizeCalls)
	assert.Equal(t, 1, gw.factCheckCalls)
	assert.Equal(t, 1, gw.reportCalls)

	resumed, err := fixture.sessions.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, resumed.Status)
	assert.Nil(t, resumed.Checkpoint)
}

func TestResumeWorkflowRejectsActiveSession(t *testing.T) {
	gw := &fakeGateway{searchFn: fakeSources}
	fixture := newPipelineFixture(t, gw)

	sess, err := fixture.sessions.CreateSession(context.Background(), "user-1", "unpaused query")
	require.NoError(t, err)

	env := fixture.newEnv(t)
	env.ExecuteWorkflow(ResumeResearchWorkflow, ResumeInput{SessionID: sess.ID})
	require.True(t, env.IsWorkflowCompleted())

	err = env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected paused")
	assert.Equal(t, 0, gw.reportCalls)
}

func TestResearchWorkflowTinySourceBudget(t *testing.T) {
	gw := &fakeGateway{searchFn: fakeSources, approve: true}
	fixture := newPipelineFixture(t, gw)
	env := fixture.newEnv(t)

	// maxSources below the angle count divides down to zero per angle,
	// so no search call is made at all.
	result := runPipeline(t, env, research.Context{
		Query:           "rust borrow checker",
		UserID:          "user-1",
		MaxSources:      2,
		MinQualityScore: 0.2,
	})

	assert.Equal(t, research.StatusCompleted, result.Status)
	assert.Equal(t, 0, result.SourcesCount)
	assert.Equal(t, 0, gw.searchCalls)
	assert.NotEmpty(t, result.Report)
}

// findSession returns the single session the fixture's run created.
func findSession(t *testing.T, fixture *pipelineFixture) *session.Session {
	t.Helper()
	ctx := context.Background()

	keys, err := fixture.redis.Keys(ctx, "session:*").Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)

	sess, err := fixture.sessions.GetSession(ctx, strings.TrimPrefix(keys[0], "session:"))
	require.NoError(t, err)
	return sess
}
