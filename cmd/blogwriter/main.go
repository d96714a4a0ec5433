package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/artifact"
	"google.golang.org/adk/cmd/launcher"
	"google.golang.org/adk/cmd/launcher/full"
	"google.golang.org/adk/session"

	"github.com/danishi/adk-blog-writer-agent/pkg/agent"
	"github.com/danishi/adk-blog-writer-agent/pkg/config"
	"github.com/danishi/adk-blog-writer-agent/pkg/goruntime"
	"github.com/danishi/adk-blog-writer-agent/pkg/logging"
	"github.com/danishi/adk-blog-writer-agent/pkg/mcp"
	"github.com/danishi/adk-blog-writer-agent/pkg/metrics"
	"github.com/danishi/adk-blog-writer-agent/pkg/version"
)

func serveMetrics(ctx context.Context, addr string, logger logr.Logger) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		logger.Error(err, "Failed to register metrics")
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Metrics server error")
		}
	}()
}

func main() {
	logLevel := flag.String("log-level", "info", "Set the logging level (debug, info, warn, error)")
	filepathFlag := flag.String("filepath", "", "Set the config directory path (overrides CONFIG_DIR environment variable)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), "Usage: blogwriter [flags] [launcher args]\n\nLauncher args pick console or web mode, e.g. web api webui.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, zapLogger := logging.Setup(*logLevel)
	defer func() {
		_ = zapLogger.Sync()
	}()
	logger.Info("Starting blogwriter", "version", version.Get().Short())
	goruntime.SetMaxProcs(logger)

	configDir := *filepathFlag
	if configDir == "" {
		configDir = os.Getenv("CONFIG_DIR")
	}
	if configDir == "" {
		configDir = config.DefaultConfigDir
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		logger.Error(err, "Failed to load config", "configDir", configDir)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(err, "Invalid config", "configDir", configDir)
		os.Exit(1)
	}
	logger.Info("Loaded config", "configDir", configDir, "summary", cfg.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logr.NewContext(ctx, logger)

	if *metricsAddr != "" {
		serveMetrics(ctx, *metricsAddr, logger.WithName("metrics"))
	}

	toolsets := mcp.CreateToolsets(ctx, cfg.HttpTools, cfg.SseTools)

	root, err := agent.NewCoordinator(ctx, cfg, agent.Deps{Toolsets: toolsets})
	if err != nil {
		logger.Error(err, "Failed to create blog coordinator")
		os.Exit(1)
	}

	launcherConfig := &launcher.Config{
		ArtifactService: artifact.InMemoryService(),
		SessionService:  session.InMemoryService(),
		AgentLoader:     adkagent.NewSingleLoader(root),
	}

	l := full.NewLauncher()
	if err := l.Execute(ctx, launcherConfig, flag.Args()); err != nil {
		logger.Error(err, "Run failed", "usage", l.CommandLineSyntax())
		os.Exit(1)
	}
}
