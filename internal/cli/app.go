// Package cli is the interactive front end: a prompt loop that drives
// the archive session, search, and the download and upload pipelines.
package cli

import (
	"bufio"
	"context"
	"io/fs"
	"os"

	"github.com/caretsuite/sumsync/internal/caretio"
	"github.com/caretsuite/sumsync/internal/config"
	"github.com/caretsuite/sumsync/internal/httpx"
	"github.com/caretsuite/sumsync/internal/logging"
	"github.com/caretsuite/sumsync/internal/prefs"
	"github.com/caretsuite/sumsync/internal/sums"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	session  *sums.Session
	store    *prefs.Store
	registry *caretio.Registry
	opts     caretio.Options
	reader   *bufio.Reader

	listing      *sums.Listing
	commonPrefix string
}

// NewApp wires the application from config: the HTTP client, the
// archive session, the file registry, and the preferences store.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop{}
	}

	encodings, err := caretio.ParseEncodings(cfg.Files.PreferredWriteEncodings)
	if err != nil {
		return nil, err
	}
	opts := caretio.Options{
		OverwriteAllowed:        cfg.Files.OverwriteAllowed,
		PreferredWriteEncodings: encodings,
		PermissionsMask:         fs.FileMode(cfg.Files.PermissionsMask),
	}

	store, err := prefs.Open(ctx, cfg.Prefs.Path, cfg.Prefs.RecentLimit)
	if err != nil {
		return nil, err
	}

	client := httpx.New(cfg.Sums.TimeoutSeconds)
	session := sums.NewSession(client, cfg.Sums.BaseURL, cfg.Sums.LoginBeforeOperation, logger)

	return &App{
		config:   cfg,
		logger:   logger,
		session:  session,
		store:    store,
		registry: caretio.NewRegistry(opts),
		opts:     opts,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// Run enters the prompt loop and tears the session down on exit.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)
	a.Root(ctx)
}

// Close logs out and releases the preferences store.
func (a *App) Close(ctx context.Context) {
	if a.session.LoggedIn() {
		a.session.Logout(ctx)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn(ctx, "close preferences store", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.LoggedIn()
}
