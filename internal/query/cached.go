package query

import (
	"context"
	"fmt"
	"time"

	"github.com/bloops-games/botmanager/internal/cache"
	"github.com/bloops-games/botmanager/internal/logging"
	"golang.org/x/sync/singleflight"
)

var _ Client = (*CachedClient)(nil)

// CachedClient serves ServerInfo from the store while fresh and fetches from
// the backend on a miss. Concurrent misses for one key share a single fetch.
type CachedClient struct {
	backend Backend
	store   cache.Store
	prefix  string
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group
}

func NewCachedClient(backend Backend, store cache.Store, prefix string, ttl time.Duration) *CachedClient {
	return &CachedClient{
		backend: backend,
		store:   store,
		prefix:  prefix,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *CachedClient) GetServerInfo(ctx context.Context, t Target) (ServerInfo, error) {
	logger := logging.FromContext(ctx).Named("query.CachedClient")
	key := c.prefix + c.backend.Key(t)

	var info ServerInfo
	_, found, err := cache.GetJSON(ctx, c.store, key, &info)
	if err != nil {
		logger.Errorf("failed to get json from cache %s: %v", key, err)
	}

	if found {
		logger.Debugf("cache hit %s", key)
		return info, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		logger.Debugf("cache miss, fetching %s", key)
		fetched, err := c.backend.Fetch(ctx, t)
		if err != nil {
			return ServerInfo{}, err
		}

		if err := cache.PutJSON(ctx, c.store, key, c.ttl, fetched, c.now()); err != nil {
			logger.Errorf("failed to cache fetched data %s: %v", key, err)
		}

		return fetched, nil
	})
	if err != nil {
		return ServerInfo{}, fmt.Errorf("fetch %s: %w", key, err)
	}

	return v.(ServerInfo), nil
}
