package session

import (
	"errors"
	"time"

	"github.com/researchpro/orchestrator/internal/research"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSession is returned when session data is invalid
	ErrInvalidSession = errors.New("invalid session")
)

// Status is the single lifecycle state of a session. A session holds
// exactly one status at a time.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Session identifies one research conversation. Sessions are never
// deleted by the core; retention is a collaborator concern.
type Session struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	Status       Status                 `json:"status"`
	InitialQuery string                 `json:"initial_query"`
	History      []Message              `json:"history"`
	Context      map[string]interface{} `json:"context"`

	// Result holds the outcome of the latest completed or failed run.
	Result *research.PipelineResult `json:"result,omitempty"`

	// PauseReason and Checkpoint are set together when a run suspends at
	// the approval gate. The checkpoint carries everything needed to
	// resume at report generation without recomputing earlier phases.
	PauseReason string               `json:"pause_reason,omitempty"`
	Checkpoint  *research.Checkpoint `json:"checkpoint,omitempty"`
}

// Message represents a message in the session history
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SetContextValue sets a value in the session context
func (s *Session) SetContextValue(key string, value interface{}) {
	if s.Context == nil {
		s.Context = make(map[string]interface{})
	}
	s.Context[key] = value
}

// GetContextValue retrieves a value from the session context
func (s *Session) GetContextValue(key string) (interface{}, bool) {
	if s.Context == nil {
		return nil, false
	}
	val, ok := s.Context[key]
	return val, ok
}
