package notify

import "context"

// Listener is a standing inbound message stream. Close tears it down; the
// handler passed to Listen is never called again afterwards.
type Listener interface {
	Close() error
}

// Transport is the identity-scoped broadcast channel the notifier runs
// over. Delivery is best effort: messages may be dropped silently, which is
// why the notifier keeps a poll fallback.
type Transport interface {
	// Publish sends one opaque message to every listener of the owner's
	// channel, including this device's own listeners.
	Publish(ctx context.Context, owner string, data []byte) error

	// Listen opens a standing subscription to the owner's channel and
	// invokes fn for every inbound message until the listener is closed.
	Listen(ctx context.Context, owner string, fn func(data []byte)) (Listener, error)
}
