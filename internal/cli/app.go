package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/todo/internal/collection"
	"github.com/roach88/todo/internal/config"
	"github.com/roach88/todo/internal/engine"
	"github.com/roach88/todo/internal/notify"
	"github.com/roach88/todo/internal/session"
	"github.com/roach88/todo/internal/store"
)

// App is a running engine over the configured store.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    store.Adapter
	Engine   *engine.Engine
	Recorder *notify.Recorder

	closeStore func() error
	stop       context.CancelFunc
	done       chan error
	unfollow   func()
}

// newLogger builds the slog handler from the configured level; --verbose
// forces debug.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// openStore opens the backend selected by cfg.
func openStore(cfg *config.Config, logger *slog.Logger) (store.Adapter, func() error, error) {
	switch cfg.Backend {
	case config.BackendBlob:
		bs, err := store.OpenBlob(cfg.BlobDir, store.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return bs, func() error { return nil }, nil
	default:
		ds, err := store.Open(cfg.Database, store.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return ds, ds.Close, nil
	}
}

// openApp loads config, opens the store, starts the engine and waits for
// the initial load. src overrides the session; nil follows the configured
// owner.
func openApp(cmd *cobra.Command, opts *RootOptions, src session.Source) (*App, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Owner != "" {
		cfg.Owner = opts.Owner
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, opts.Verbose)
	slog.SetDefault(logger)

	logger.Debug("opening store", "backend", cfg.Backend, "database", cfg.Database, "blob_dir", cfg.BlobDir)
	adapter, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	recorder := notify.NewRecorder(100)
	manager := collection.New(adapter, collection.WithLogger(logger))
	eng := engine.New(manager,
		engine.WithNotifier(notify.Multi(recorder, notify.Log(logger))),
		engine.WithLogger(logger),
	)

	ctx, stop := context.WithCancel(commandContext(cmd))
	app := &App{
		Config:     cfg,
		Logger:     logger,
		Store:      adapter,
		Engine:     eng,
		Recorder:   recorder,
		closeStore: closeStore,
		stop:       stop,
		done:       make(chan error, 1),
	}
	go func() { app.done <- eng.Run(ctx) }()

	if src == nil {
		src = session.Static(cfg.Owner)
	}
	app.unfollow = eng.Follow(src)

	if err := eng.Wait(ctx); err != nil {
		app.Close()
		return nil, WrapExitError(ExitCommandError, "engine did not start", err)
	}
	if n, ok := recorder.Last(); ok && n.Failed() {
		app.Close()
		return nil, NewExitError(ExitCommandError, n.Message)
	}
	return app, nil
}

// Close stops the engine, waits for in-flight writes and closes the store.
func (a *App) Close() error {
	if a.unfollow != nil {
		a.unfollow()
	}
	a.Engine.Stop()
	<-a.done
	a.stop()
	if err := a.closeStore(); err != nil {
		a.Logger.Error("error closing store", "error", err)
		return err
	}
	return nil
}

// Do runs one command to completion and reports it.
func (a *App) Do(cmd *cobra.Command, out *OutputFormatter, c engine.Command) error {
	n, err := a.Engine.Do(commandContext(cmd), c)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("%s failed", c.Kind), err)
	}
	out.VerboseLog("#%d %s %s: %s", n.Seq, n.Level, n.Op, n.Message)
	return out.Notification(n)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
