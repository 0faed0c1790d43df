package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mmcdole/wardrobe/internal/api"
	"github.com/mmcdole/wardrobe/internal/catalog"
	"github.com/mmcdole/wardrobe/internal/config"
	"github.com/mmcdole/wardrobe/internal/logging"
	"github.com/mmcdole/wardrobe/internal/mutation"
	"github.com/mmcdole/wardrobe/internal/poll"
	"github.com/mmcdole/wardrobe/internal/store"
)

var errNotConfigured = errors.New("wardrobe is not configured; run 'wardrobe setup' first")

// env holds what every subcommand needs. Config and logger are loaded before
// any command runs; the client core is opened on first use.
type env struct {
	configDir string
	stdin     io.Reader

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error

	core *core
}

// core is the client-side stack wired to one server
type core struct {
	client  *api.Client
	pages   *store.PageStore
	catalog *catalog.Service
	coord   *mutation.Coordinator
	items   *mutation.Items
	sched   poll.Scheduler
}

func newEnv() *env {
	return &env{stdin: os.Stdin}
}

func (e *env) loader() *config.Loader {
	return config.NewLoader(e.configDir)
}

// load reads configuration and opens the log file
func (e *env) load() error {
	if e.cfg != nil {
		return nil
	}
	cfg, err := e.loader().Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	e.cfg = cfg

	logger, closeLog, err := logging.Setup(cfg.Logging)
	if err != nil {
		// File logging is best effort
		logger, closeLog = logging.Null(), func() error { return nil }
	}
	e.logger = logger
	e.closeLog = closeLog
	slog.SetDefault(logger)
	return nil
}

// open wires the API client, page store, catalog and coordinator
func (e *env) open() (*core, error) {
	if e.core != nil {
		return e.core, nil
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	if !e.cfg.IsConfigured() {
		return nil, errNotConfigured
	}

	client := api.NewClient(e.cfg.Server.URL, e.cfg.Server.Token, e.logger)

	pages, err := store.OpenPageStore(e.cfg.CacheDir(), e.cfg.Server.URL, e.logger)
	if err != nil {
		// A locked or corrupt cache must not block the client
		e.logger.Warn("page cache unavailable, using memory only", "error", err)
		pages = store.NewMemoryPageStore()
	}

	svc := catalog.NewService(client, pages, e.logger)
	coord := mutation.NewCoordinator(pages, svc, e.logger)
	svc.SetGuard(coord)

	e.core = &core{
		client:  client,
		pages:   pages,
		catalog: svc,
		coord:   coord,
		items:   mutation.NewItems(client),
		sched:   poll.NewScheduler(e.cfg.Poll.Fast, e.cfg.Poll.Slow),
	}
	return e.core, nil
}

func (e *env) close() {
	if e.core != nil {
		if err := e.core.pages.Close(); err != nil {
			e.logger.Warn("failed to close page cache", "error", err)
		}
		e.core = nil
	}
	if e.closeLog != nil {
		_ = e.closeLog()
		e.closeLog = nil
	}
}
