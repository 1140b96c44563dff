package main

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

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/export"
	"github.com/joseph-ayodele/doc-extractor/internal/ingest"
	"github.com/joseph-ayodele/doc-extractor/internal/llm"
	"github.com/joseph-ayodele/doc-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/doc-extractor/internal/pipeline"
	"github.com/joseph-ayodele/doc-extractor/internal/presets"
	"github.com/joseph-ayodele/doc-extractor/internal/server"
)

// Staged uploads older than this are left over from a previous run.
const staleUploadAge = time.Hour

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("docextractd stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	client, err := gemini.NewClient(ctx, gemini.ConfigFromApp(cfg.LLM), logger)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessor(logger, client, llm.InvokerFromConfig(cfg.LLM, logger), pipeline.OptionsFromConfig(cfg))

	stager := ingest.NewStager(cfg.Upload, logger)
	if n, err := stager.Sweep(staleUploadAge); err != nil {
		logger.Warn("ingest.sweep.failed", "dir", cfg.Upload.Dir, "error", err)
	} else if n > 0 {
		logger.Info("ingest.sweep.ok", "dir", cfg.Upload.Dir, "removed", n)
	}

	catalog, err := presets.Builtin()
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}

	api := server.NewAPI(server.Deps{
		Extractor:   processor,
		Stager:      stager,
		Presets:     catalog,
		Exporter:    export.NewService(logger),
		Backend:     client.Backend(),
		AllowOrigin: cfg.Server.CORSAllowOrigin,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("docextractd listening", "addr", httpServer.Addr, "backend", client.Backend())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	var grpcServer *grpc.Server
	if cfg.Server.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCHealthAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.GRPCHealthAddr, err)
		}
		grpcServer = grpc.NewServer()
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		// Empty service name means overall server health.
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

		g.Go(func() error {
			logger.Info("grpc health listening", "addr", cfg.Server.GRPCHealthAddr)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
