package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/risk"
	"github.com/wonny/tradegate/pkg/logger"
	"github.com/wonny/tradegate/pkg/redis"
)

// CachedProvider wraps a LimitsProvider with a short-TTL Redis cache.
// Cache failures fall through to the underlying provider; a cache can make
// limits lookups cheaper but never changes fail-closed behavior.
type CachedProvider struct {
	next   contracts.LimitsProvider
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedProvider creates a caching wrapper around next
func NewCachedProvider(next contracts.LimitsProvider, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl, logger: log}
}

// GetLimits returns cached limits when fresh, loading through otherwise
func (p *CachedProvider) GetLimits(ctx context.Context, workspaceID string) (*risk.RiskLimits, error) {
	key := fmt.Sprintf("limits:%s", workspaceID)

	var cached risk.RiskLimits
	hit, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.logger.WithError(err).Warn("Limits cache read failed")
	}
	if hit {
		return &cached, nil
	}

	limits, err := p.next.GetLimits(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, limits, p.ttl); err != nil {
		p.logger.WithError(err).Warn("Limits cache write failed")
	}

	return limits, nil
}

// Invalidate drops the cached limits for a workspace (after SaveLimits)
func (p *CachedProvider) Invalidate(ctx context.Context, workspaceID string) error {
	return p.cache.Delete(ctx, fmt.Sprintf("limits:%s", workspaceID))
}
