package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	stdsync "sync"
	"time"

	"github.com/coder/websocket"
	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/logging"
)

// DefaultDialTimeout bounds the websocket handshake and each publish write.
const DefaultDialTimeout = 10 * time.Second

// WSTransport is a Transport over the record server's /ws endpoint. Each
// Publish is a short-lived connection; Listen holds one open until closed.
type WSTransport struct {
	baseURL string // ws://host:port or wss://host:port
	logger  logging.Logger
	timeout time.Duration

	mu    stdsync.Mutex
	token string
}

func NewWSTransport(baseURL string, logger logging.Logger) *WSTransport {
	return &WSTransport{baseURL: baseURL, logger: logger, timeout: DefaultDialTimeout}
}

// SetAccessToken installs the bearer token sent with every handshake.
func (t *WSTransport) SetAccessToken(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

func (t *WSTransport) dial(ctx context.Context, owner string) (*websocket.Conn, error) {
	t.mu.Lock()
	token := t.token
	t.mu.Unlock()

	header := http.Header{}
	if token != "" {
		header.Set(common.AccessTokenHeaderName, "Bearer "+token)
	}

	addr := fmt.Sprintf("%s/ws?owner=%s", t.baseURL, url.QueryEscape(owner))
	conn, _, err := websocket.Dial(ctx, addr, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %w", addr, common.ErrNetwork, err)
	}
	return conn, nil
}

// Publish dials, writes one message and closes. The debounce upstream keeps
// the connection churn low.
func (t *WSTransport) Publish(ctx context.Context, owner string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	conn, err := t.dial(ctx, owner)
	if err != nil {
		return err
	}
	// CloseNow, not Close: nothing reads this connection, so a close
	// handshake can stall behind frames other devices broadcast meanwhile.
	defer conn.CloseNow()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write: %w: %w", common.ErrNetwork, err)
	}
	return nil
}

type wsListener struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
}

func (l *wsListener) Close() error {
	l.cancel()
	return l.conn.Close(websocket.StatusNormalClosure, "")
}

// Listen dials the owner's channel and pumps inbound frames to fn until the
// listener is closed or the connection drops. A dropped connection ends the
// listen silently; the caller's resume path reopens it.
func (t *WSTransport) Listen(ctx context.Context, owner string, fn func(data []byte)) (Listener, error) {
	dialCtx, dialCancel := context.WithTimeout(ctx, t.timeout)
	defer dialCancel()

	conn, err := t.dial(dialCtx, owner)
	if err != nil {
		return nil, err
	}

	readCtx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			_, data, err := conn.Read(readCtx)
			if err != nil {
				if readCtx.Err() == nil {
					t.logger.Debug(readCtx, "notification listen ended", "owner", owner, "error", err)
				}
				return
			}
			fn(data)
		}
	}()
	return &wsListener{conn: conn, cancel: cancel}, nil
}
