package reportstats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// cachedEntry is the wire form of one stats row in the cache blob.
type cachedEntry struct {
	Value  string             `json:"value"`
	TypeID int                `json:"type_id"`
	Stats  entity.ReportStats `json:"stats"`
}

// CachedLoader fronts another Loader with a Redis cache. The whole stats
// map is cached as one blob because the underlying load is a full grouped
// scan anyway. Cache failures degrade to the inner loader, never to an
// error.
type CachedLoader struct {
	inner  Loader
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLoader wraps inner with a Redis cache under key, expiring
// after ttl.
func NewCachedLoader(inner Loader, client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *CachedLoader {
	if key == "" {
		key = "scamforge:reportstats"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLoader{inner: inner, client: client, key: key, ttl: ttl, logger: logger}
}

// Load returns the cached stats map when fresh, otherwise loads from the
// inner loader and repopulates the cache.
func (l *CachedLoader) Load(ctx context.Context) (map[Key]entity.ReportStats, error) {
	if l.client != nil {
		if data, err := l.client.Get(ctx, l.key).Bytes(); err == nil {
			if stats, err := decodeStats(data); err == nil {
				return stats, nil
			}
			l.logger.Warn("discarding undecodable report stats cache", zap.String("key", l.key))
		}
	}

	stats, err := l.inner.Load(ctx)
	if err != nil {
		return nil, err
	}

	if l.client != nil {
		data, err := encodeStats(stats)
		if err == nil {
			if err := l.client.Set(ctx, l.key, data, l.ttl).Err(); err != nil {
				l.logger.Warn("report stats cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}

func encodeStats(stats map[Key]entity.ReportStats) ([]byte, error) {
	entries := make([]cachedEntry, 0, len(stats))
	for k, s := range stats {
		entries = append(entries, cachedEntry{Value: k.Value, TypeID: k.TypeID, Stats: s})
	}
	return json.Marshal(entries)
}

func decodeStats(data []byte) (map[Key]entity.ReportStats, error) {
	var entries []cachedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode report stats cache: %w", err)
	}
	stats := make(map[Key]entity.ReportStats, len(entries))
	for _, e := range entries {
		stats[Key{Value: e.Value, TypeID: e.TypeID}] = e.Stats
	}
	return stats, nil
}
