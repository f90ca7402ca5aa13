//go:build enterprise
// +build enterprise

package mqnative

import (
	"context"
	"time"

	"github.com/zosbridge/commongo/pkg/logger"
	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

// Registration only happens in enterprise builds; in default builds the
// factory therefore sees the library implementation as unavailable.
func init() {
	manager.RegisterMessaging(manager.ImplementationLibrary, NewAdapter)
}

// Adapter exposes the native backend through the MessagingManager interface.
type Adapter struct {
	impl *Manager
}

// NewAdapter is the constructor the factory resolves for the library
// implementation.
func NewAdapter(cfg manager.ResourceConfig, log *logger.Logger) manager.MessagingManager {
	return &Adapter{impl: New(cfg, log)}
}

// Implementation identifies the backend strategy.
func (a *Adapter) Implementation() manager.Implementation { return manager.ImplementationLibrary }

// Kind identifies the resource technology.
func (a *Adapter) Kind() rescapabilities.ResourceKind { return kind }

func (a *Adapter) Connect(ctx context.Context) error    { return a.impl.Connect(ctx) }
func (a *Adapter) Disconnect(ctx context.Context) error { return a.impl.Disconnect(ctx) }
func (a *Adapter) IsConnected() bool                    { return a.impl.IsConnected() }

func (a *Adapter) PutMessage(ctx context.Context, queue string, payload interface{}, props *manager.MessageProperties) error {
	return a.impl.PutMessage(ctx, queue, payload, props)
}

func (a *Adapter) GetMessage(ctx context.Context, queue string, wait time.Duration) (*manager.MessageEnvelope, error) {
	return a.impl.GetMessage(ctx, queue, wait)
}

func (a *Adapter) BrowseMessage(ctx context.Context, queue, messageID string) (*manager.MessageEnvelope, error) {
	return a.impl.BrowseMessage(ctx, queue, messageID)
}

func (a *Adapter) GetQueueDepth(ctx context.Context, queue string) int {
	return a.impl.GetQueueDepth(ctx, queue)
}

func (a *Adapter) PurgeQueue(ctx context.Context, queue string) (int, error) {
	return a.impl.PurgeQueue(ctx, queue)
}

func (a *Adapter) TestConnection(ctx context.Context) bool { return a.impl.TestConnection(ctx) }

var _ manager.MessagingManager = (*Adapter)(nil)
