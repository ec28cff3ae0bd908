// Package memory persists durable facts derived from completed research
// runs. The store is append-only per user; records are never mutated.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/researchpro/orchestrator/internal/metrics"
	"github.com/researchpro/orchestrator/internal/research"
)

// Store is a Redis-backed per-user memory store.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStore wraps an existing Redis client.
func NewStore(client *redis.Client, logger *zap.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Append stores a new memory record for a user. Existing records are
// never rewritten.
func (s *Store) Append(ctx context.Context, userID string, payload research.MemoryPayload) (*research.Memory, error) {
	mem := &research.Memory{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
		Data:      payload,
	}

	data, err := json.Marshal(mem)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal memory: %w", err)
	}

	if err := s.client.RPush(ctx, s.userKey(userID), data).Err(); err != nil {
		return nil, fmt.Errorf("failed to append memory: %w", err)
	}

	s.logger.Debug("Stored memory record",
		zap.String("user_id", userID),
		zap.String("memory_id", mem.ID),
	)
	metrics.MemoryWrites.Inc()
	return mem, nil
}

// Search ranks a user's memories by the fraction of query terms found in
// the serialized payload (case-insensitive). Ties keep insertion order.
// Returns at most limit records, only those with a positive score.
func (s *Store) Search(ctx context.Context, userID, query string, limit int) ([]research.Memory, error) {
	metrics.MemorySearches.Inc()

	raw, err := s.client.LRange(ctx, s.userKey(userID), 0, -1).Result()
	if err == redis.Nil || len(raw) == 0 {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		score float64
		index int
		mem   research.Memory
	}

	var hits []scored
	for i, item := range raw {
		var mem research.Memory
		if err := json.Unmarshal([]byte(item), &mem); err != nil {
			s.logger.Warn("Skipping undecodable memory record",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}

		haystack := strings.ToLower(serializePayload(mem.Data))
		matched := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, scored{
			score: float64(matched) / float64(len(terms)),
			index: i,
			mem:   mem,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].index < hits[b].index
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]research.Memory, len(hits))
	for i, h := range hits {
		out[i] = h.mem
	}
	return out, nil
}

func (s *Store) userKey(userID string) string {
	return "memory:" + userID
}

func serializePayload(p research.MemoryPayload) string {
	return fmt.Sprintf("%s %s %d %.2f", p.Query, p.Summary, p.SourcesCount, p.QualityScore)
}
