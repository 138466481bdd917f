package bus

import (
	"context"

	"github.com/Jenaru0/dela-storefront/internal/realtime"
)

// Bus carries storage-change and session-expiry signals between browsing contexts.
// *realtime.Hub serves a single process; the Redis bus spans processes.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	Subscribe(ctx context.Context, channel string, fn func(realtime.Message)) (func(), error)
	Close() error
}

var _ Bus = (*realtime.Hub)(nil)
