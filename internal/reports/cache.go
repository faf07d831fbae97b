package reports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/internal/models"
)

// LiveCache keeps recent live views in Redis so a room full of polling
// dashboards does not recompute the same snapshot per request. Entries
// expire on their own; staleness is bounded by the TTL, which defaults to
// the client poll interval.
type LiveCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewLiveCache creates a live-view cache with the given TTL.
func NewLiveCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *LiveCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveCache{client: client, ttl: ttl, logger: logger}
}

func liveKey(sessionID uuid.UUID) string {
	return "live:" + sessionID.String()
}

// Get returns the cached view, if any. Cache failures degrade to a miss.
func (c *LiveCache) Get(ctx context.Context, sessionID uuid.UUID) (*models.LiveView, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, liveKey(sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("live cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var view models.LiveView
	if err := json.Unmarshal(raw, &view); err != nil {
		c.logger.Warn("live cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &view, true
}

// Set stores the view for the cache TTL. Failures are logged, not fatal.
func (c *LiveCache) Set(ctx context.Context, sessionID uuid.UUID, view *models.LiveView) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		c.logger.Warn("live cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, liveKey(sessionID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("live cache set failed", zap.Error(err))
	}
}
