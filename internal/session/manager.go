package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/researchpro/orchestrator/internal/metrics"
	"github.com/researchpro/orchestrator/internal/research"
)

// Manager handles session persistence with a Redis backend and a local
// cache in front of it. Only the workflow controller mutates sessions;
// callers must not issue concurrent research/resume calls against one
// session id.
type Manager struct {
	client      *redis.Client
	logger      *zap.Logger
	ttl         time.Duration
	mu          sync.RWMutex
	localCache  map[string]*Session
	cacheAccess map[string]time.Time
	maxSessions int
}

// NewManager creates a session manager connected to the given Redis address.
func NewManager(redisAddr, redisPassword string, logger *zap.Logger) (*Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     redisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewManagerFromClient(client, logger), nil
}

// NewManagerFromClient wraps an existing Redis client. Tests use this
// with miniredis.
func NewManagerFromClient(client *redis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		client:      client,
		logger:      logger,
		ttl:         7 * 24 * time.Hour,
		localCache:  make(map[string]*Session),
		cacheAccess: make(map[string]time.Time),
		maxSessions: 10000,
	}
}

// CreateSession creates a new active session for a user's first query.
func (m *Manager) CreateSession(ctx context.Context, userID, initialQuery string) (*Session, error) {
	sessionID := uuid.New().String()

	now := time.Now()
	session := &Session{
		ID:           sessionID,
		UserID:       userID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Status:       StatusActive,
		InitialQuery: initialQuery,
		History:      make([]Message, 0),
		Context:      make(map[string]interface{}),
	}

	if err := m.saveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[sessionID] = session
	m.cacheAccess[sessionID] = now
	m.cleanupLocalCache()
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	m.logger.Info("Created new session",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
	)
	metrics.SessionsCreated.Inc()

	return session, nil
}

// GetSession retrieves a session by ID. Returns ErrSessionNotFound for
// an unknown id; transport failures surface as distinct errors.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	if session, ok := m.localCache[sessionID]; ok {
		m.mu.RUnlock()
		m.mu.Lock()
		m.cacheAccess[sessionID] = time.Now()
		m.mu.Unlock()
		return session, nil
	}
	m.mu.RUnlock()

	data, err := m.client.Get(ctx, m.sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	m.mu.Lock()
	m.localCache[sessionID] = &session
	m.cacheAccess[sessionID] = time.Now()
	m.cleanupLocalCache()
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	return &session, nil
}

// UpdateSession persists session mutations and refreshes the updated-at
// timestamp. Fails with ErrSessionNotFound for an unknown session id.
func (m *Manager) UpdateSession(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidSession
	}

	exists, err := m.client.Exists(ctx, m.sessionKey(session.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	session.UpdatedAt = time.Now()

	if err := m.saveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[session.ID] = session
	m.cacheAccess[session.ID] = time.Now()
	m.mu.Unlock()

	return nil
}

// AddMessage appends a message to session history.
func (m *Manager) AddMessage(ctx context.Context, sessionID string, msg Message) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%d", time.Now().UnixNano())
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	session.History = append(session.History, msg)

	// Limit history size
	maxHistory := 100
	if len(session.History) > maxHistory {
		session.History = session.History[len(session.History)-maxHistory:]
	}

	return m.UpdateSession(ctx, session)
}

// PauseSession suspends a session at the approval gate, persisting the
// checkpoint a later resume re-enters from.
func (m *Manager) PauseSession(ctx context.Context, sessionID, reason string, checkpoint *research.Checkpoint) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Status = StatusPaused
	session.PauseReason = reason
	session.Checkpoint = checkpoint

	if err := m.UpdateSession(ctx, session); err != nil {
		return err
	}

	m.logger.Info("Paused session",
		zap.String("session_id", sessionID),
		zap.String("reason", reason),
	)
	metrics.SessionsPaused.Inc()
	return nil
}

// CompleteSession marks a session completed with its final result and
// clears any pause bookkeeping.
func (m *Manager) CompleteSession(ctx context.Context, sessionID string, result *research.PipelineResult) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Status = StatusCompleted
	session.Result = result
	session.PauseReason = ""
	session.Checkpoint = nil

	return m.UpdateSession(ctx, session)
}

// FailSession marks a session failed, recording the error description.
func (m *Manager) FailSession(ctx context.Context, sessionID, errMsg string) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Status = StatusFailed
	session.SetContextValue("last_error", errMsg)

	return m.UpdateSession(ctx, session)
}

// Close releases the Redis connection.
func (m *Manager) Close() error {
	return m.client.Close()
}

func (m *Manager) sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func (m *Manager) saveSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return m.client.Set(ctx, m.sessionKey(session.ID), data, m.ttl).Err()
}

// cleanupLocalCache evicts least-recently-accessed sessions when the
// cache exceeds maxSessions. Caller must hold m.mu.
func (m *Manager) cleanupLocalCache() {
	if len(m.localCache) <= m.maxSessions {
		return
	}

	var oldestID string
	var oldest time.Time
	for id, at := range m.cacheAccess {
		if oldestID == "" || at.Before(oldest) {
			oldestID = id
			oldest = at
		}
	}
	if oldestID != "" {
		delete(m.localCache, oldestID)
		delete(m.cacheAccess, oldestID)
	}
}
