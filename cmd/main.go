package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/nutrimon/internal/adapters/http/api"
	"github.com/okian/nutrimon/internal/adapters/remote"
	"github.com/okian/nutrimon/internal/adapters/remote/drive"
	"github.com/okian/nutrimon/internal/adapters/remote/localfs"
	"github.com/okian/nutrimon/internal/adapters/repository"
	"github.com/okian/nutrimon/internal/adapters/storage"
	service "github.com/okian/nutrimon/internal/app"
	"github.com/okian/nutrimon/internal/config"
	"github.com/okian/nutrimon/internal/domain/naming"
	"github.com/okian/nutrimon/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 5 * time.Minute
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

var (
	flagConfig      string
	flagLogLevel    string
	flagSyncOnStart bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nutrimon",
	Short: "Soil nutrient sync and dashboard API",
	Long: `nutrimon mirrors grower CSV files from a remote folder into a local data
directory and serves N/P/K analytics over HTTP.

Running without a subcommand starts the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (overrides NUTRIMON_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	serveCmd.Flags().BoolVar(&flagSyncOnStart, "sync-on-start", false, "run one data sync before serving")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd, syncCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and initializes logging for every command.
func setup(cmd *cobra.Command, _ []string) error {
	if flagConfig != "" {
		if err := os.Setenv("NUTRIMON_CONFIG", flagConfig); err != nil {
			return err
		}
	}
	loaded, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagLogLevel != "" {
		loaded.LogLevel = flagLogLevel
	}
	if err := logger.Init(logger.WithFormat(loaded.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(loaded.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", loaded.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	cfg = loaded
	return nil
}

// newSource builds the remote source selected by c.RemoteKind.
func newSource(ctx context.Context, c *config.Config) (remote.Source, error) {
	switch c.RemoteKind {
	case config.RemoteLocal:
		src, err := localfs.New(c.RemoteLocalPath)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.RemoteDrive:
		ts, err := drive.TokenSourceFromFile(ctx, c.TokenFile)
		if err != nil {
			return nil, err
		}
		src, err := drive.New(ctx, ts)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: unknown remote_kind %q", config.ErrInvalidConfig, c.RemoteKind)
	}
}

// newService wires the source, local store and history into a Service.
func newService(ctx context.Context, c *config.Config) (*service.Service, error) {
	src, err := newSource(ctx, c)
	if err != nil {
		return nil, err
	}
	store := storage.New(c.DataDir, c.AssetsDir, naming.UsersTarget(c.UsersName))

	opts := []service.Option{
		service.WithConfig(c),
		service.WithLogger(logger.Get().Named("service")),
	}
	if c.HistoryDB != "" {
		hist, err := repository.OpenSQLite(c.HistoryDB, repository.WithLogger(logger.Get().Named("history")))
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithHistory(hist))
	}
	return service.New(src, store, opts...), nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	log := logger.Get()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	if flagSyncOnStart {
		ok, msg := svc.SyncData(ctx)
		log.Info(ctx, "startup sync finished", logger.Bool("ok", ok), logger.String("message", msg))
	}

	apiServer := api.NewServer(svc,
		api.WithJWT(cfg.JWTSecret, cfg.JWTTTL()),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithLogger(log.Named("api")))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}
