package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/collections"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/config"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/dataset"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/kvstore"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/remote"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/session"
	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
	"github.com/google/uuid"
)

const (
	memoryStorePath = ":memory:"
	deviceKey       = "device"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    kvstore.Store
	remote   remote.Client
	defaults *dataset.Dataset
	sessions *session.Manager
	sync     *collections.Synchronizer
	reader   *bufio.Reader
	out      io.Writer

	mu      sync.Mutex
	watches map[string]func()
}

// NewApp opens the local store and connects the remote document store when
// one is configured.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stderr, "nutrikeeper-cli", logging.ParseLevel(c.LogLevel))

	store, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}

	var rc remote.Client = remote.Disabled{}
	if c.RemoteConfigured() {
		device, err := deviceID(ctx, store)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		gc, err := remote.NewGRPCClient(c.RemoteAddr, c.RemoteSecret, device, logger)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("remote store: %w", err)
		}
		rc = gc
	} else {
		logger.Info(ctx, "No remote store configured, running in local-only mode")
	}

	return newApp(c, logger, store, rc, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, logger logging.Logger, store kvstore.Store, rc remote.Client, in io.Reader, out io.Writer) *App {
	defaults := dataset.MustLoad()

	a := &App{
		config:   c,
		logger:   logger,
		store:    store,
		remote:   rc,
		defaults: defaults,
		sessions: session.NewManager(store, c.AdminEmails, session.WithLogger(logger)),
		reader:   bufio.NewReader(in),
		out:      out,
		watches:  make(map[string]func()),
	}
	a.sync = collections.New(defaults, store, rc,
		collections.WithLogger(logger),
		collections.WithRemoteTimeout(c.RemoteTimeout),
		collections.WithWriteGuard(a.guard),
	)
	return a
}

func openStore(ctx context.Context, c *config.Config) (kvstore.Store, error) {
	if c.DataPath == memoryStorePath {
		return kvstore.NewMemoryStore(c.StoreQuota), nil
	}
	store, err := kvstore.OpenSQLite(ctx, c.DataPath, c.StoreQuota)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// deviceID returns the id this installation presents to the remote store,
// minting it on first use.
func deviceID(ctx context.Context, store kvstore.Store) (string, error) {
	raw, err := store.Get(ctx, deviceKey)
	if err != nil {
		return "", err
	}
	if raw != nil {
		return string(raw), nil
	}
	id := uuid.NewString()
	if err := store.Set(ctx, deviceKey, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}

// guard lets admins edit the catalog collections of the default dataset
// and any signed-in user edit everything else.
func (a *App) guard(ctx context.Context, collection string) error {
	if slices.Contains(a.defaults.Collections(), collection) {
		_, err := a.sessions.RequireAdmin(ctx)
		return err
	}
	_, err := a.sessions.RequireSession(ctx)
	return err
}

func (a *App) isLoggedIn() bool {
	s, err := a.sessions.CurrentSession(context.Background())
	return err == nil && s != nil
}

func (a *App) getStatus() string {
	s, err := a.sessions.CurrentSession(context.Background())
	if err != nil || s == nil {
		return "(guest)"
	}
	if a.sessions.IsAdmin(s) {
		return fmt.Sprintf("(%s admin)", s.Email)
	}
	return fmt.Sprintf("(%s)", s.Email)
}

// Run starts the REPL on the app's input and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to NutriKeeper CLI (type 'help' for commands)")
	if !remote.IsConfigured(a.remote) {
		fmt.Fprintln(a.out, "Local-only mode: changes stay on this device")
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() {
	a.mu.Lock()
	for name, stop := range a.watches {
		stop()
		delete(a.watches, name)
	}
	a.mu.Unlock()

	errs := []error{a.sync.Close(), a.remote.Close(), a.store.Close()}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn(context.Background(), "shutdown", "error", err)
	}
}
