package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/techviz/internal/config"
	vizerrors "github.com/conneroisu/techviz/internal/errors"
	"github.com/conneroisu/techviz/internal/logging"
	"github.com/conneroisu/techviz/internal/observability"
	"github.com/conneroisu/techviz/internal/server"
	"github.com/conneroisu/techviz/internal/version"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the live animation",
	Long: `Serve the animation page, the websocket frame stream and read-only
snapshots (/api/frame, /api/topology, /snapshot.svg).

Examples:
  techviz serve                          # Built-in layout on localhost:8080
  techviz serve -p 3000 --host 0.0.0.0   # Listen on all interfaces
  techviz serve --layout shop.yml --watch # Reload shop.yml when it changes`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().String("layout", "", "Layout file (YAML or TOML)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the layout file when it changes")
	serveCmd.Flags().StringSlice("allowed-origins", nil, "Extra websocket origins to accept")

	bindFlags(serveCmd.Flags(), map[string]string{
		"port":            "server.port",
		"host":            "server.host",
		"layout":          "layout.path",
		"watch":           "layout.watch",
		"allowed-origins": "server.allowed_origins",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var options []server.Option
	tp, err := observability.InitTracing(ctx, cfg.TracingOptions(version.GetShortVersion()))
	if err != nil {
		logger.Warn(ctx, err, "Tracing disabled")
	} else {
		options = append(options, server.WithTracer(tp.Tracer()))
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn(context.Background(), err, "Tracer shutdown failed")
			}
		}()
	}

	srv, err := server.New(cfg, logger, options...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving techviz at http://%s\n", cfg.Addr())

	select {
	case err := <-errCh:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, err, "Shutdown incomplete")
	}
	return <-errCh
}

// newLogger logs to stderr, and also to a daily file when logging.dir is set.
func newLogger(cfg *config.Config) (logging.Logger, func(), error) {
	console := logging.NewLogger(cfg.LoggerConfig())
	if cfg.Logging.Dir == "" {
		return console, func() {}, nil
	}
	file, err := logging.NewFileLogger(cfg.LoggerConfig(), cfg.Logging.Dir)
	if err != nil {
		return nil, nil, vizerrors.WrapIO(err, "ERR_LOG_FILE", "failed to open log file").
			WithContext("dir", cfg.Logging.Dir)
	}
	return logging.NewMultiLogger(console, file), func() { _ = file.Close() }, nil
}
