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

	"github.com/roach88/peersync/internal/config"
	"github.com/roach88/peersync/internal/httpapi"
	"github.com/roach88/peersync/internal/identity"
	"github.com/roach88/peersync/internal/peer"
	"github.com/roach88/peersync/internal/replication"
	"github.com/roach88/peersync/internal/service"
	"github.com/roach88/peersync/internal/store"
)

// shutdownTimeout bounds how long in-flight requests may run after a stop
// signal.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath string
	Name       string
	Listen     string
	Database   string
	PeerURL    string

	// Ready, if set, is called with the bound address once the listener is
	// open. Used by tests that listen on port 0.
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a peer service",
		Long: `Run one peer: open its database, connect the outbound peer transport
and serve the REST API until SIGINT or SIGTERM.

Configuration is read from --config (YAML), then PEERSYNC_* environment
variables, then the flags below.

Example:
  peersync serve --config ./a.yaml
  PEERSYNC_AUTH_TOKEN=secret peersync serve --name b --listen :8081 \
      --db ./b.db --peer http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML configuration file")
	cmd.Flags().StringVar(&opts.Name, "name", "", "service name reported by /health")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (host:port)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.PeerURL, "peer", "", "base URL of the other peer")

	return cmd
}

// loadConfig merges file, environment and flags, then validates.
func loadConfig(path string, overrides func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if overrides != nil {
		overrides(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "configuration rejected", err)
	}
	return cfg, nil
}

func (o *ServeOptions) apply(cfg *config.Config) {
	if o.Name != "" {
		cfg.Service.Name = o.Name
	}
	if o.Listen != "" {
		cfg.Service.Listen = o.Listen
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if o.PeerURL != "" {
		cfg.Peer.BaseURL = o.PeerURL
	}
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := loadConfig(opts.ConfigPath, opts.apply)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log, opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	logger = logger.With("service", cfg.Service.Name)
	slog.SetDefault(logger)

	logger.Info("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	handler, err := buildHandler(cfg, st, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build service", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Service.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Info("peer service listening",
		"addr", ln.Addr().String(),
		"peer", cfg.Peer.BaseURL,
		"fault_threshold", cfg.Fault.Threshold,
	)
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown did not complete", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("peer service stopped")
	return nil
}

// buildHandler wires store, transport, replicators and services into the
// HTTP surface. The fault injector is shared by both replicators.
func buildHandler(cfg config.Config, st *store.Store, logger *slog.Logger) (http.Handler, error) {
	client, err := peer.NewClient(cfg.PeerTransport(), logger)
	if err != nil {
		return nil, fmt.Errorf("peer transport: %w", err)
	}

	faults := replication.NewFaultInjector(cfg.Fault.Threshold)
	ids := identity.UUIDv7Generator{}

	users := service.NewUserService(st, replication.NewUserReplicator(client, faults, logger), ids, logger)
	orders := service.NewOrderService(st, replication.NewOrderReplicator(client, faults, logger), ids, logger)
	deliveries := service.NewDeliveryService(st, ids, logger)

	return httpapi.New(httpapi.Options{
		ServiceName: cfg.Service.Name,
		Token:       cfg.Auth.StaticToken,
		Users:       users,
		Orders:      orders,
		Deliveries:  deliveries,
		Health:      st,
		Logger:      logger,
	}), nil
}
