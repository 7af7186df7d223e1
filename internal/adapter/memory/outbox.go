package memory

import (
	"context"
	"sync"

	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

// Outbox records published messages and mail instead of sending them.
type Outbox struct {
	mu            sync.Mutex
	Notifications []interfaces.NotificationMessage
	StatusUpdates []interfaces.StatusUpdateMessage
	Mail          []interfaces.MailMessage
	// Err, when set, is returned by every call.
	Err error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) PublishNotification(ctx context.Context, msg interfaces.NotificationMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.Notifications = append(o.Notifications, msg)
	return nil
}

func (o *Outbox) PublishStatusUpdate(ctx context.Context, msg interfaces.StatusUpdateMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.StatusUpdates = append(o.StatusUpdates, msg)
	return nil
}

func (o *Outbox) Send(ctx context.Context, msg interfaces.MailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.Mail = append(o.Mail, msg)
	return nil
}

// MailCount counts sent mail using template.
func (o *Outbox) MailCount(template string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, m := range o.Mail {
		if m.Template == template {
			n++
		}
	}
	return n
}

// WebhookGuard remembers keys for the life of the process.
type WebhookGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewWebhookGuard() *WebhookGuard {
	return &WebhookGuard{seen: make(map[string]struct{})}
}

func (g *WebhookGuard) Acquire(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

func (g *WebhookGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
	return nil
}
