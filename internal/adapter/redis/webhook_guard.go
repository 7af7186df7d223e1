package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

const webhookPrefix = "webhook:seen:"

type webhookGuard struct {
	client Client
	ttl    time.Duration
}

// NewWebhookGuard remembers delivered webhook keys for ttl.
func NewWebhookGuard(client Client, ttl time.Duration) interfaces.WebhookGuard {
	return &webhookGuard{client: client, ttl: ttl}
}

func (g *webhookGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, webhookPrefix+key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire webhook key: %w", err)
	}
	return ok, nil
}

func (g *webhookGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, webhookPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release webhook key: %w", err)
	}
	return nil
}
