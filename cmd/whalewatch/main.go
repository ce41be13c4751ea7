package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valshi/whalewatch/internal/api"
	"github.com/valshi/whalewatch/internal/bot"
	"github.com/valshi/whalewatch/internal/config"
	"github.com/valshi/whalewatch/internal/database"
	"github.com/valshi/whalewatch/internal/detect"
	"github.com/valshi/whalewatch/internal/dispatch"
	"github.com/valshi/whalewatch/internal/ingest"
	"github.com/valshi/whalewatch/internal/metrics"
	"github.com/valshi/whalewatch/internal/normalize"
	"github.com/valshi/whalewatch/internal/notify"
	"github.com/valshi/whalewatch/internal/store"
	"github.com/valshi/whalewatch/internal/title"
	"github.com/valshi/whalewatch/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/whalewatch.local.yaml", "path to config file")
	flag.Parse()

	// Optional .env for local runs; config expands ${VARS} from the env.
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting whalewatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool)
	if err := st.Init(ctx); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready")

	// Create upstream client
	client := api.NewClient(cfg.Upstream.Hosts(),
		api.WithAPIKey(cfg.Upstream.APIKey),
		api.WithTimeout(cfg.Upstream.Timeout),
		api.WithLogger(logger),
	)

	// Connect to Telegram
	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Error("failed to connect to telegram", "error", err)
		os.Exit(1)
	}
	logger.Info("telegram connected", "username", tg.Self.UserName)

	// Assemble the engine
	mets := metrics.New(prometheus.DefaultRegisterer)
	titles := title.New(client, logger)
	notifier := notify.NewTelegram(tg, logger)
	detector := detect.New(st, cfg.Alerts.DefaultThresholdUSD, detect.WithLogger(logger))
	dispatcher := dispatch.New(st, notifier, titles, logger)

	loop := ingest.New(
		ingest.Config{
			Interval:   cfg.Poller.Interval,
			FetchLimit: cfg.Poller.FetchLimit,
			Lookback:   cfg.Poller.Lookback,
		},
		client, normalize.New(), st, detector, dispatcher, mets,
		ingest.WithLogger(logger),
	)

	commandBot := bot.New(tg, st, titles, client, bot.Config{
		DefaultThresholdUSD: cfg.Alerts.DefaultThresholdUSD,
		MinThresholdUSD:     cfg.Alerts.MinThresholdUSD,
		PollInterval:        cfg.Poller.Interval,
	}, logger)

	// Start health and metrics server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(pool, loop, client, cfg.Metrics.Path, logger),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	// Start the ingestion loop
	if err := loop.Start(ctx); err != nil {
		logger.Error("failed to start ingestion loop", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		loop.Stop(shutdownCtx)
	}()

	// Start the command bot
	go commandBot.Run(ctx)

	logger.Info("whalewatch running",
		"poll_interval", cfg.Poller.Interval,
		"default_threshold_usd", cfg.Alerts.DefaultThresholdUSD,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("whalewatch stopped")
}

// createHealthHandler creates the HTTP handler for health checks and
// Prometheus metrics.
func createHealthHandler(pool *pgxpool.Pool, loop *ingest.Loop, client *api.Client, metricsPath string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Ingestion  ingest.Status  `json:"ingestion"`
			Upstream   api.Status     `json:"upstream"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Ingestion:  loop.Status(),
			Upstream:   client.Status(),
			Components: make(map[string]any),
		}

		// Check database
		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		if health.Ingestion.LastError != "" && health.Ingestion.LastSuccess == "" {
			health.Status = "degraded"
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.Handle(metricsPath, promhttp.Handler())

	return mux
}
