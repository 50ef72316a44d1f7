package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentify/finbench/internal/api"
	"github.com/agentify/finbench/internal/evaluator"
	"github.com/agentify/finbench/internal/infra/config"
	"github.com/agentify/finbench/internal/infra/objstore"
	"github.com/agentify/finbench/internal/infra/sqlite"
	"github.com/agentify/finbench/internal/participant"
	"github.com/agentify/finbench/internal/server"
	"github.com/agentify/finbench/internal/toolhub"
)

var serveCmd = &cobra.Command{
	Use:       "serve {tools|participant|evaluator}",
	Short:     "Start one of the harness services",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"tools", "participant", "evaluator"},
	Example: `  finbench serve tools
  TOOLS_BASE_URL=http://127.0.0.1:7001 finbench serve evaluator`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		switch args[0] {
		case "tools":
			hub := newToolHub(cfg)
			return serveService(api.NewToolHubRouter(hub), cfg.Host, cfg.ToolsPort)
		case "participant":
			return serveService(api.NewParticipantRouter(participant.NewSolver()), cfg.Host, cfg.ParticipantPort)
		case "evaluator":
			router, cleanup, err := newEvaluatorRouter(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return serveService(router, cfg.Host, cfg.EvaluatorPort)
		default:
			return fmt.Errorf("unknown service %q", args[0])
		}
	},
}

// newToolHub builds the tool hub with the configured search backend: SerpAPI
// when a key exists, the free DuckDuckGo scraper otherwise.
func newToolHub(cfg config.Config) *toolhub.Hub {
	var backend toolhub.SearchBackend
	if cfg.SerpAPIKey != "" {
		backend = toolhub.NewSerpAPIBackend(cfg.SerpAPIKey)
	} else {
		backend = toolhub.NewDuckDuckGoBackend()
	}
	return toolhub.New(cfg.ToolsBaseURL, backend)
}

// newEvaluatorRouter wires the evaluator with its optional run-history store
// and artifact uploader. The returned cleanup closes the database.
func newEvaluatorRouter(ctx context.Context, cfg config.Config) (http.Handler, func(), error) {
	var opts []evaluator.Option
	var history *evaluator.HistoryStore
	cleanup := func() {}

	if cfg.DBPath != "" {
		db, err := sqlite.NewDB(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open history db: %w", err)
		}
		if err := sqlite.MigrateUp(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate history db: %w", err)
		}
		history = evaluator.NewHistoryStore(db)
		opts = append(opts, evaluator.WithHistory(history))
		cleanup = func() { _ = db.Close() }
	}

	if cfg.UploadEnabled() {
		uploader, err := objstore.New(ctx, objstore.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Secure:    true,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect object store: %w", err)
		}
		opts = append(opts, evaluator.WithUploader(uploader))
	}

	runner := evaluator.NewRunner(cfg.OutputDir, cfg.ToolsBaseURL, opts...)
	return api.NewEvaluatorRouter(runner, history), cleanup, nil
}

// serveService runs one HTTP service until SIGINT/SIGTERM, then shuts it
// down gracefully.
func serveService(handler http.Handler, host string, port int) error {
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	srv := server.NewServer(handler, srvCfg)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(context.Background()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
