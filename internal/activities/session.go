package activities

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/researchpro/orchestrator/internal/metrics"
	"github.com/researchpro/orchestrator/internal/research"
	"github.com/researchpro/orchestrator/internal/session"
)

// ResolveSession binds a run to an existing session or creates a fresh
// one, and records the user's query in the session history.
func (a *Activities) ResolveSession(ctx context.Context, input ResolveSessionInput) (ResolveSessionResult, error) {
	if input.SessionID != "" {
		sess, err := a.sessions.GetSession(ctx, input.SessionID)
		if err == nil {
			if addErr := a.sessions.AddMessage(ctx, sess.ID, session.Message{Role: "user", Content: input.Query}); addErr != nil {
				a.logger.Warn("Failed to record user message", zap.Error(addErr))
			}
			return ResolveSessionResult{SessionID: sess.ID}, nil
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return ResolveSessionResult{}, fmt.Errorf("resolve session: %w", err)
		}
		a.logger.Info("Unknown session id supplied, creating a new session",
			zap.String("requested_session_id", input.SessionID),
			zap.String("user_id", input.UserID),
		)
	}

	sess, err := a.sessions.CreateSession(ctx, input.UserID, input.Query)
	if err != nil {
		return ResolveSessionResult{}, fmt.Errorf("create session: %w", err)
	}
	if addErr := a.sessions.AddMessage(ctx, sess.ID, session.Message{Role: "user", Content: input.Query}); addErr != nil {
		a.logger.Warn("Failed to record user message", zap.Error(addErr))
	}
	return ResolveSessionResult{SessionID: sess.ID, Created: true}, nil
}

// PauseForApproval suspends the session at the approval gate with the
// checkpoint a later resume re-enters from.
func (a *Activities) PauseForApproval(ctx context.Context, input PauseInput) error {
	reason := input.Reason
	if reason == "" {
		reason = research.PauseReasonAwaitingApproval
	}
	cp := input.Checkpoint
	return a.sessions.PauseSession(ctx, input.SessionID, reason, &cp)
}

// LoadCheckpoint reloads the persisted workflow state of a paused
// session. Fails with the caller-facing taxonomy: NotFoundError for an
// unknown session, InvalidStateError when the session is not paused.
func (a *Activities) LoadCheckpoint(ctx context.Context, sessionID string) (research.Checkpoint, error) {
	sess, err := a.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return research.Checkpoint{}, &research.NotFoundError{SessionID: sessionID}
	} else if err != nil {
		return research.Checkpoint{}, fmt.Errorf("load session: %w", err)
	}

	if sess.Status != session.StatusPaused {
		return research.Checkpoint{}, &research.InvalidStateError{
			SessionID: sessionID,
			Status:    string(sess.Status),
			Expected:  string(session.StatusPaused),
		}
	}
	if sess.Checkpoint == nil {
		return research.Checkpoint{}, &research.InvalidStateError{
			SessionID: sessionID,
			Status:    "paused without checkpoint",
			Expected:  string(session.StatusPaused),
		}
	}

	metrics.SessionsResumed.Inc()
	return *sess.Checkpoint, nil
}

// CompleteRun persists the final outcome to the session and appends the
// assistant's answer to the history.
func (a *Activities) CompleteRun(ctx context.Context, input CompleteRunInput) error {
	result := input.Result
	if err := a.sessions.CompleteSession(ctx, input.SessionID, &result); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	metrics.SummarizationIterations.Observe(float64(result.Summary.Iterations))

	a.logger.Info("Run completed",
		zap.String("session_id", input.SessionID),
		zap.Bool("resumed", input.Resumed),
		zap.Float64("quality_score", result.QualityScore),
	)

	content := result.Report
	if content == "" {
		content = result.Summary.Content
	}
	if content != "" {
		if err := a.sessions.AddMessage(ctx, input.SessionID, session.Message{Role: "assistant", Content: content}); err != nil {
			a.logger.Warn("Failed to record assistant message", zap.Error(err))
		}
	}
	return nil
}

// FailRun marks the session failed. Best-effort: the workflow error is
// the primary signal.
func (a *Activities) FailRun(ctx context.Context, input FailRunInput) error {
	return a.sessions.FailSession(ctx, input.SessionID, input.Error)
}
