// Package notify implements the change notifier: a debounced publish of
// "something changed" pings over a broadcast transport, a standing
// subscription that reacts to other devices' pings, and the poll/resume
// fallbacks that cover for the transport's best-effort delivery.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/taskvault/taskvault/internal/client/sync"
	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/cryptox"
	"github.com/taskvault/taskvault/internal/logging"
)

// DefaultDebounceWindow is how long after an outbound ping further pings
// for the same owner are suppressed. A burst of edits produces one message;
// the receivers sync once and pick everything up.
const DefaultDebounceWindow = 2 * time.Second

// Syncer is the slice of the sync engine the notifier needs. Satisfied by
// *sync.Engine.
type Syncer interface {
	Sync(ctx context.Context, owner string, opts sync.Options) (sync.Summary, error)
}

// message is the cleartext notification body. It is encrypted to the owner
// before it touches the transport, so the channel carries no metadata
// beyond the owner id.
type message struct {
	DeviceId string `json:"device_id"`
	App      string `json:"app"`
	SentAt   int64  `json:"sent_at"`
}

// envelope is the wire shape: ciphertext plus AES-GCM nonce.
type envelope struct {
	Data  []byte `json:"data"`
	Nonce []byte `json:"nonce"`
}

// Config holds the notifier's collaborators.
type Config struct {
	Transport Transport
	Sealer    cryptox.Sealer
	Syncer    Syncer
	// DeviceID is this device's identity, used to drop our own echoes.
	DeviceID string
	// App tags every outbound message; inbound messages with a different
	// tag are dropped, so several applications can share one channel.
	App            string
	Logger         logging.Logger
	DebounceWindow time.Duration // defaults to DefaultDebounceWindow
}

// Notifier publishes and reacts to encrypted change pings.
type Notifier struct {
	transport Transport
	sealer    cryptox.Sealer
	syncer    Syncer
	device    string
	app       string
	logger    logging.Logger
	window    time.Duration

	mu       stdsync.Mutex
	lastSent map[string]time.Time
}

func New(cfg Config) *Notifier {
	w := cfg.DebounceWindow
	if w == 0 {
		w = DefaultDebounceWindow
	}
	return &Notifier{
		transport: cfg.Transport,
		sealer:    cfg.Sealer,
		syncer:    cfg.Syncer,
		device:    cfg.DeviceID,
		app:       cfg.App,
		logger:    cfg.Logger,
		window:    w,
		lastSent:  make(map[string]time.Time),
	}
}

// Publish sends a change ping for the owner, debounced: at most one
// outbound message per debounce window per owner. A suppressed call is not
// an error; the earlier message already covers it.
func (n *Notifier) Publish(ctx context.Context, owner string) error {
	n.mu.Lock()
	now := time.Now()
	if last, ok := n.lastSent[owner]; ok && now.Sub(last) < n.window {
		n.mu.Unlock()
		return nil
	}
	n.lastSent[owner] = now
	n.mu.Unlock()

	ct, nonce, err := n.sealer.Seal(owner, message{
		DeviceId: n.device,
		App:      n.app,
		SentAt:   now.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("seal notification: %w", err)
	}
	data, err := json.Marshal(envelope{Data: ct, Nonce: nonce})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.transport.Publish(ctx, owner, data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Subscription is a cancellable standing listen.
type Subscription struct {
	listener Listener
	once     stdsync.Once
}

// Cancel tears the subscription down. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if err := s.listener.Close(); err != nil {
			_ = err // listener is gone either way
		}
	})
}

// Subscribe opens a standing listen on the owner's channel. Every inbound
// message is decrypted and silently dropped when it cannot be read, when it
// is this device's own echo, or when the app tag mismatches; otherwise
// onNotified runs. A nil onNotified defaults to an incremental background
// sync whose errors are only logged.
func (n *Notifier) Subscribe(ctx context.Context, owner string, onNotified func(owner string)) (*Subscription, error) {
	if onNotified == nil {
		onNotified = func(owner string) {
			n.backgroundSync(context.Background(), owner, sync.Options{Incremental: true})
		}
	}

	lst, err := n.transport.Listen(ctx, owner, func(data []byte) {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return
		}
		var msg message
		if err := n.sealer.Open(owner, env.Data, env.Nonce, &msg); err != nil {
			return
		}
		if msg.DeviceId == n.device || msg.App != n.app {
			return
		}
		onNotified(owner)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &Subscription{listener: lst}, nil
}

// Poll runs incremental syncs on a fixed interval until ctx is cancelled.
// It is the safety net under the transport's best-effort delivery: even if
// every ping is lost, changes arrive within one interval. Busy skips and
// sync failures are logged, never returned; the next tick retries.
func (n *Notifier) Poll(ctx context.Context, owner string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.backgroundSync(ctx, owner, sync.Options{Incremental: true})
		}
	}
}

// Resume handles regained visibility: the standing listen may have been
// torn down while backgrounded and notifications missed, so cancel the old
// subscription, run a full sync to catch up, and subscribe afresh. The
// catch-up sync is a background action; its failure is logged, not fatal,
// and the poll loop will retry.
func (n *Notifier) Resume(ctx context.Context, owner string, old *Subscription, onNotified func(owner string)) (*Subscription, error) {
	if old != nil {
		old.Cancel()
	}
	n.backgroundSync(ctx, owner, sync.Options{})
	return n.Subscribe(ctx, owner, onNotified)
}

func (n *Notifier) backgroundSync(ctx context.Context, owner string, opts sync.Options) {
	if n.syncer == nil {
		return
	}
	if _, err := n.syncer.Sync(ctx, owner, opts); err != nil {
		if errors.Is(err, common.ErrSyncBusy) {
			return
		}
		n.logger.Warn(ctx, "background sync failed", "owner", owner, "error", err)
	}
}
