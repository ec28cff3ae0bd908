// Package orchestrator is the entry point the caller-facing surface
// drives: it validates requests, dispatches the research workflows and
// shapes their results into structured outcomes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/researchpro/orchestrator/internal/metrics"
	"github.com/researchpro/orchestrator/internal/research"
	"github.com/researchpro/orchestrator/internal/session"
	"github.com/researchpro/orchestrator/internal/tracing"
	"github.com/researchpro/orchestrator/internal/workflows"
)

// defaultUserID is used when a caller doesn't identify the user.
const defaultUserID = "default_user"

// Service coordinates research runs. Callers must not issue concurrent
// Research/Resume calls for the same session id; single writer per
// session is a caller obligation.
type Service struct {
	temporal  client.Client
	sessions  *session.Manager
	logger    *zap.Logger
	taskQueue string
}

// NewService creates the orchestrator service.
func NewService(temporalClient client.Client, sessions *session.Manager, logger *zap.Logger) *Service {
	return &Service{
		temporal:  temporalClient,
		sessions:  sessions,
		logger:    logger,
		taskQueue: workflows.TaskQueue,
	}
}

// ResearchRequest is one research query.
type ResearchRequest struct {
	Query           string
	UserID          string
	SessionID       string
	MaxSources      int
	RequireApproval bool
	MinQualityScore float64
}

// Research runs the five-phase pipeline for a query. Validation
// problems return a typed error; workflow-level failures come back as a
// structured failed Outcome with a nil error.
func (s *Service) Research(ctx context.Context, req ResearchRequest) (research.Outcome, error) {
	if err := validateResearch(req); err != nil {
		return research.Outcome{}, err
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	metrics.ResearchRequests.Inc()
	start := time.Now()

	ctx, span := tracing.StartSpan(ctx, "orchestrator.research")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int("max_sources", req.MaxSources),
		attribute.Bool("require_approval", req.RequireApproval),
	)

	sessionID, err := s.resolveSessionID(ctx, req)
	if err != nil {
		return s.failedOutcome(req.Query, "", start, err), nil
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	s.logger.Info("Starting research",
		zap.String("session_id", sessionID),
		zap.String("user_id", req.UserID),
		zap.Int("max_sources", req.MaxSources),
	)

	run, err := s.temporal.ExecuteWorkflow(ctx, s.startOptions("research", sessionID), workflows.ResearchWorkflow, research.Context{
		Query:           req.Query,
		UserID:          req.UserID,
		SessionID:       sessionID,
		MaxSources:      req.MaxSources,
		RequireApproval: req.RequireApproval,
		MinQualityScore: req.MinQualityScore,
	})
	if err != nil {
		return s.failedOutcome(req.Query, sessionID, start, fmt.Errorf("start workflow: %w", err)), nil
	}

	var result research.PipelineResult
	if err := run.Get(ctx, &result); err != nil {
		if ctx.Err() != nil {
			// The caller's deadline hit while the workflow keeps running
			// server-side; the session stays active for a retry.
			s.logger.Warn("Research timed out waiting for the workflow",
				zap.String("session_id", sessionID),
				zap.Error(ctx.Err()),
			)
			return s.failedOutcome(req.Query, sessionID, start, fmt.Errorf("%w: %v", research.ErrTimeout, ctx.Err())), nil
		}
		return s.failedOutcome(req.Query, sessionID, start, err), nil
	}

	return s.successOutcome(req.Query, sessionID, start, result), nil
}

// Resume re-enters a paused session at report generation. Fails with
// NotFoundError for an unknown session and InvalidStateError when the
// session is not paused, including a second resume of an already
// completed session.
func (s *Service) Resume(ctx context.Context, sessionID string) (research.Outcome, error) {
	if sessionID == "" {
		return research.Outcome{}, &research.ValidationError{Field: "session_id", Msg: "must not be empty"}
	}

	ctx, span := tracing.StartSpan(ctx, "orchestrator.resume")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return research.Outcome{}, &research.NotFoundError{SessionID: sessionID}
	} else if err != nil {
		return research.Outcome{}, fmt.Errorf("load session: %w", err)
	}
	if sess.Status != session.StatusPaused {
		return research.Outcome{}, &research.InvalidStateError{
			SessionID: sessionID,
			Status:    string(sess.Status),
			Expected:  string(session.StatusPaused),
		}
	}

	metrics.ResearchRequests.Inc()
	start := time.Now()
	query := sess.InitialQuery

	s.logger.Info("Resuming research", zap.String("session_id", sessionID))

	run, err := s.temporal.ExecuteWorkflow(ctx, s.startOptions("resume", sessionID), workflows.ResumeResearchWorkflow, workflows.ResumeInput{
		SessionID: sessionID,
	})
	if err != nil {
		return s.failedOutcome(query, sessionID, start, fmt.Errorf("start workflow: %w", err)), nil
	}

	var result research.PipelineResult
	if err := run.Get(ctx, &result); err != nil {
		if ctx.Err() != nil {
			return s.failedOutcome(query, sessionID, start, fmt.Errorf("%w: %v", research.ErrTimeout, ctx.Err())), nil
		}
		return s.failedOutcome(query, sessionID, start, err), nil
	}

	return s.successOutcome(query, sessionID, start, result), nil
}

// resolveSessionID reuses the supplied session when it exists and
// allocates a new one otherwise.
func (s *Service) resolveSessionID(ctx context.Context, req ResearchRequest) (string, error) {
	if req.SessionID != "" {
		_, err := s.sessions.GetSession(ctx, req.SessionID)
		if err == nil {
			return req.SessionID, nil
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return "", fmt.Errorf("resolve session: %w", err)
		}
		s.logger.Info("Unknown session id supplied, allocating a new session",
			zap.String("requested_session_id", req.SessionID),
		)
	}

	sess, err := s.sessions.CreateSession(ctx, req.UserID, req.Query)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sess.ID, nil
}

func (s *Service) startOptions(kind, sessionID string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                    fmt.Sprintf("%s-%s-%s", kind, sessionID, uuid.New().String()[:8]),
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}
}

func (s *Service) successOutcome(query, sessionID string, start time.Time, result research.PipelineResult) research.Outcome {
	duration := time.Since(start).Seconds()
	metrics.ResearchCompleted.WithLabelValues(result.Status).Inc()
	metrics.ResearchDuration.Observe(duration)

	s.logger.Info("Research finished",
		zap.String("session_id", sessionID),
		zap.String("status", result.Status),
		zap.Float64("duration_seconds", duration),
	)

	return research.Outcome{
		Success:            true,
		SessionID:          sessionID,
		Query:              query,
		Status:             result.Status,
		Result:             &result,
		DurationSeconds:    duration,
		SourcesProcessed:   result.SourcesCount,
		QualityScore:       result.QualityScore,
		PersistenceWarning: result.PersistenceWarning,
	}
}

func (s *Service) failedOutcome(query, sessionID string, start time.Time, cause error) research.Outcome {
	duration := time.Since(start).Seconds()
	metrics.ResearchCompleted.WithLabelValues(research.StatusFailed).Inc()
	metrics.ResearchDuration.Observe(duration)

	s.logger.Error("Research failed",
		zap.String("session_id", sessionID),
		zap.Error(cause),
	)

	return research.Outcome{
		Success:         false,
		SessionID:       sessionID,
		Query:           query,
		Status:          research.StatusFailed,
		DurationSeconds: duration,
		Error:           cause.Error(),
	}
}

func validateResearch(req ResearchRequest) error {
	if req.Query == "" {
		return &research.ValidationError{Field: "query", Msg: "must not be empty"}
	}
	if req.MaxSources < 1 {
		return &research.ValidationError{Field: "max_sources", Msg: "must be at least 1"}
	}
	return nil
}
