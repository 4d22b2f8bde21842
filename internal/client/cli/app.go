// Package cli implements the interactive TaskVault client: a small REPL
// over the local store, the sync engine and the change notifier.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/taskvault/taskvault/internal/client/config"
	"github.com/taskvault/taskvault/internal/client/localdb"
	"github.com/taskvault/taskvault/internal/client/notify"
	"github.com/taskvault/taskvault/internal/client/remote"
	"github.com/taskvault/taskvault/internal/client/store"
	"github.com/taskvault/taskvault/internal/client/sync"
	"github.com/taskvault/taskvault/internal/cryptox"
	"github.com/taskvault/taskvault/internal/logging"
)

// appTag marks this application's notifications on the shared broadcast
// channel.
const appTag = "taskvault"

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    *localdb.Repositories
	store    *store.Store
	remote   *remote.HTTPClient
	ws       *notify.WSTransport
	ring     *cryptox.Keyring
	engine   *sync.Engine
	notifier *notify.Notifier
	reader   *bufio.Reader

	userName  string
	watchStop context.CancelFunc
	watchSub  *notify.Subscription
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	repos, err := localdb.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	deviceID, err := sync.EnsureDeviceID(ctx, repos.SyncState)
	if err != nil {
		return nil, err
	}

	rc := remote.NewHTTPClient(remote.Config{BaseURL: cfg.ServerAddr, Timeout: cfg.RequestTimeout})
	ring := cryptox.NewKeyring()
	st := store.New(repos.DB, ring, logger)

	eng := sync.New(sync.Config{
		Store:          st,
		Remote:         rc,
		State:          repos.SyncState,
		DeviceID:       deviceID,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	ws := notify.NewWSTransport(wsBaseURL(cfg.ServerAddr), logger)
	notifier := notify.New(notify.Config{
		Transport:      ws,
		Sealer:         ring,
		Syncer:         eng,
		DeviceID:       deviceID,
		App:            appTag,
		Logger:         logger,
		DebounceWindow: cfg.DebounceWindow,
	})

	return &App{
		config:   cfg,
		logger:   logger,
		repos:    repos,
		store:    st,
		remote:   rc,
		ws:       ws,
		ring:     ring,
		engine:   eng,
		notifier: notifier,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// wsBaseURL turns the server's http(s) base URL into its ws(s) twin.
func wsBaseURL(addr string) string {
	if rest, ok := strings.CutPrefix(addr, "https"); ok {
		return "wss" + rest
	}
	if rest, ok := strings.CutPrefix(addr, "http"); ok {
		return "ws" + rest
	}
	return addr
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		a.stopWatch()
		_ = a.repos.DB.Close()
	}()
	a.Root(ctx)
}
