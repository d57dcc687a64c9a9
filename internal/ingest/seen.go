package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// SeenStore remembers which fingerprints earlier runs already processed,
// so re-crawled entities are not re-ingested. The set lives in Redis and
// expires as a whole; an expired set just means one run re-processes old
// entities, which is safe because scoring is deterministic per batch.
type SeenStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSeenStore creates a seen-store over an existing Redis client. A
// non-positive ttl keeps the set forever.
func NewSeenStore(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *SeenStore {
	if key == "" {
		key = "scamforge:seen"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeenStore{client: client, key: key, ttl: ttl, logger: logger}
}

// FilterNew returns the records whose fingerprints are not in the store,
// preserving order. On Redis failure every record is treated as new: a
// lost dedup set must never drop data.
func (s *SeenStore) FilterNew(ctx context.Context, records []*entity.Record) []*entity.Record {
	if s == nil || s.client == nil || len(records) == 0 {
		return records
	}

	members := make([]interface{}, len(records))
	for i, r := range records {
		members[i] = r.Fingerprint
	}

	seen, err := s.client.SMIsMember(ctx, s.key, members...).Result()
	if err != nil || len(seen) != len(records) {
		s.logger.Warn("seen-store lookup failed, treating batch as new", zap.Error(err))
		return records
	}

	out := make([]*entity.Record, 0, len(records))
	for i, r := range records {
		if !seen[i] {
			out = append(out, r)
		}
	}
	return out
}

// MarkSeen adds the records' fingerprints to the store and refreshes the
// set TTL.
func (s *SeenStore) MarkSeen(ctx context.Context, records []*entity.Record) error {
	if s == nil || s.client == nil || len(records) == 0 {
		return nil
	}

	members := make([]interface{}, len(records))
	for i, r := range records {
		members[i] = r.Fingerprint
	}

	if err := s.client.SAdd(ctx, s.key, members...).Err(); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
			return fmt.Errorf("refresh seen ttl: %w", err)
		}
	}
	return nil
}
