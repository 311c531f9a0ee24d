// Command veritas runs the research-orchestrator MCP server: it wires the
// scheduler, store, and external model-runtime/fetch clients, then serves
// create_task/queue_searches/stop_task/get_status/get_materials/
// resolve_auth over stdio for a calling LLM agent.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/joho/godotenv"

	"github.com/openveritas/veritas/pkg/cleanup"
	"github.com/openveritas/veritas/pkg/config"
	"github.com/openveritas/veritas/pkg/database"
	"github.com/openveritas/veritas/pkg/embedding"
	"github.com/openveritas/veritas/pkg/events"
	"github.com/openveritas/veritas/pkg/extraction"
	"github.com/openveritas/veritas/pkg/mcpserver"
	"github.com/openveritas/veritas/pkg/orchestrator"
	"github.com/openveritas/veritas/pkg/providers"
	"github.com/openveritas/veritas/pkg/ranking"
	"github.com/openveritas/veritas/pkg/rpc"
	"github.com/openveritas/veritas/pkg/scheduler"
	"github.com/openveritas/veritas/pkg/store"
	"github.com/openveritas/veritas/pkg/verification"
	"github.com/openveritas/veritas/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	podID := flag.String("pod-id", getEnv("POD_ID", "veritas-0"), "Identity this process claims jobs under")
	httpPort := flag.String("http-port", getEnv("HTTP_PORT", "8080"), "Port for the /health endpoint")
	flag.Parse()

	gin.SetMode(getEnv("GIN_MODE", "release"))

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	slog.Info("connected to postgres", "database", dbConfig.Database)

	db := store.New(dbClient.Pool())

	modelAddr := getEnv("MODEL_RUNTIME_ADDR", cfg.RPC.Embed.Address)
	model, err := rpc.NewModelClient(modelAddr)
	if err != nil {
		slog.Error("failed to dial model runtime", "address", modelAddr, "error", err)
		os.Exit(1)
	}
	defer model.Close()

	fetchClient := rpc.NewFetchClient(cfg.Providers.UserAgent)

	rankEngine := ranking.New(db, model, cfg.Ranking)
	embedIndex := embedding.New(db, model, "default")
	sanitizer := extraction.NewSanitizer(cfg.Defaults.Sanitization)
	extractionEngine := extraction.New(db, rankEngine, embedIndex, model, sanitizer, cfg.Extraction)
	verifier := verification.New(db, model, cfg.Calibration)

	broadcaster := events.NewBroadcaster()
	registry := providers.NewRegistry(cfg.Providers)
	cancels := scheduler.NewTaskCancelRegistry()

	orch := orchestrator.New(db, registry, fetchClient, extractionEngine, verifier, cfg.Defaults, broadcaster, cancels)

	pool := scheduler.NewPool(*podID, db, cfg.Scheduler, orch, cancels)
	pool.Start(ctx)
	defer pool.Stop()
	slog.Info("scheduler started", "pod_id", *podID, "workers", cfg.Scheduler.WorkerCount)

	retention := cleanup.NewService(cfg.Retention, db)
	retention.Start(ctx)
	defer retention.Stop()

	stats := cfg.Stats()
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := database.Health(reqCtx, dbClient.Pool())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbHealth,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  dbHealth,
			"scheduler": pool.Health(),
			"configuration": gin.H{
				"scheduler_workers": stats.SchedulerWorkers,
				"network_slots":     stats.NetworkSlots,
				"providers":         stats.Providers,
				"rpc_endpoints":     stats.RPCEndpoints,
			},
		})
	})

	httpServer := &http.Server{Addr: ":" + *httpPort, Handler: router}
	go func() {
		slog.Info("health endpoint listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server exited with error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	server := mcpserver.New(orch, version.AppName, version.GitCommit)
	slog.Info("mcp server ready, serving over stdio", "version", version.Full())

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		slog.Error("mcp server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("shutting down")
}
