package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

// MenuCache is a read-through cache in front of a MenuCatalog. Cache failures fall back
// to the inner catalog.
type MenuCache struct {
	client Client
	inner  interfaces.MenuCatalog
	ttl    time.Duration
	logger logger.Logger
}

func NewMenuCache(client Client, inner interfaces.MenuCatalog, ttl time.Duration, logger logger.Logger) *MenuCache {
	return &MenuCache{client: client, inner: inner, ttl: ttl, logger: logger}
}

func menuKey(id int) string {
	return fmt.Sprintf("menu:item:%d", id)
}

func (c *MenuCache) GetItem(ctx context.Context, id int) (*domain.MenuItem, error) {
	requestID := logger.RequestID(ctx)

	raw, err := c.client.Get(ctx, menuKey(id)).Bytes()
	switch {
	case err == nil:
		var item domain.MenuItem
		if jsonErr := json.Unmarshal(raw, &item); jsonErr == nil {
			return &item, nil
		}
		c.logger.Debug("menu_cache_corrupt", "Discarding undecodable cache entry", requestID,
			map[string]interface{}{"menu_item_id": id})
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Error("menu_cache_failed", "Menu cache read failed", requestID,
			map[string]interface{}{"menu_item_id": id}, err)
	}

	item, err := c.inner.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(item); err == nil {
		if err := c.client.Set(ctx, menuKey(id), payload, c.ttl).Err(); err != nil {
			c.logger.Error("menu_cache_failed", "Menu cache write failed", requestID,
				map[string]interface{}{"menu_item_id": id}, err)
		}
	}
	return item, nil
}
