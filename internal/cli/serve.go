package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/todo/internal/server"
	"github.com/roach88/todo/internal/session"
	"github.com/roach88/todo/internal/view"
)

// shutdownTimeout bounds how long in-flight requests may take after a stop signal.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// ready, when set, receives the bound address once the listener is up.
	ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task list over an HTTP JSON API",
		Long: `Start the HTTP API.

Mutations are accepted immediately (202) and applied in order on the
engine; their outcomes are published at GET /api/notifications.
The session starts as the configured owner and can be switched with
PUT /api/session.

Examples:
  todo serve
  todo serve --addr 127.0.0.1:9090 --owner alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	sess := session.NewManual()
	app, err := openApp(cmd, opts.RootOptions, sess)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Config.Owner != "" {
		sess.SignIn(app.Config.Owner)
		if err := app.Engine.Wait(commandContext(cmd)); err != nil {
			return WrapExitError(ExitFailure, "initial load failed", err)
		}
	}

	sortKey, err := view.ParseSortKey(app.Config.DefaultSort)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid default sort", err)
	}

	srv := server.New(app.Engine, app.Recorder, sess,
		server.WithCategories(app.Config.Categories),
		server.WithDefaultSort(sortKey),
		server.WithLogger(app.Logger),
	)

	addr := opts.Addr
	if addr == "" {
		addr = app.Config.Server.Addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.Serve(ln) }()

	bound := ln.Addr().String()
	slog.Info("server starting", "addr", bound, "backend", app.Config.Backend)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", bound)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.ready != nil {
		opts.ready <- bound
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
