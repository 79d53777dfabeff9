// Command backend is the main entrypoint for the hatewatch bot and its HTTP API.
// It:
//   - Loads configuration and initializes structured logging.
//   - Optionally connects to Postgres and runs idempotent migrations for the
//     battle archive.
//   - Opens the JSON player state store.
//   - Starts the Discord bot and the background battle watcher.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/hatewatch/backend/clashapi"
	"github.com/onnwee/hatewatch/backend/config"
	"github.com/onnwee/hatewatch/backend/db"
	"github.com/onnwee/hatewatch/backend/discord"
	"github.com/onnwee/hatewatch/backend/server"
	"github.com/onnwee/hatewatch/backend/store"
	"github.com/onnwee/hatewatch/backend/telemetry"
	"github.com/onnwee/hatewatch/backend/watcher"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load("backend/.env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateClashReady(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateDiscordReady(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("hatewatch", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Battle archive (optional). An empty DB_DSN runs the bot on the JSON
	// state file alone.
	var database *sql.DB
	if cfg.DBDsn != "" {
		database, err = db.Connect(cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	} else {
		slog.Info("battle archive disabled (DB_DSN empty)")
	}

	// Player state store
	st, err := store.Open(cfg.StatePath)
	if err != nil {
		slog.Error("failed to open state store", slog.Any("err", err), slog.String("path", cfg.StatePath))
		os.Exit(1)
	}

	// Clash Royale API client
	api := clashapi.NewClient(cfg.ClashAPIBase, cfg.ClashAPIKey, cfg.RequestsPerMinute)

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Discord bot
	bot, err := discord.NewBot(cfg.DiscordToken, api, st, database, cfg.ClanTag, cfg.TrackedPlayers)
	if err != nil {
		slog.Error("failed to create discord bot", slog.Any("err", err))
		os.Exit(1)
	}
	if err := bot.Start(); err != nil {
		slog.Error("failed to start discord bot", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := bot.Close(); err != nil {
			slog.Error("failed to close discord session", slog.Any("err", err))
		}
	}()

	// Battle watcher
	tracked := make([]watcher.TrackedTag, 0, len(cfg.TrackedPlayers))
	for tag, name := range cfg.TrackedPlayers {
		tracked = append(tracked, watcher.TrackedTag{Tag: tag, Name: name})
	}
	sort.Slice(tracked, func(a, b int) bool { return tracked[a].Tag < tracked[b].Tag })
	slog.Info("starting battle watcher", slog.Int("tracked", len(tracked)))
	w := &watcher.Watcher{
		Fetcher:        api,
		Store:          st,
		Sink:           discord.NewAnnouncer(bot.Session(), cfg.AnnounceChannelID),
		Tracked:        tracked,
		DB:             database,
		TagDelay:       cfg.TagDelay,
		CycleDelay:     cfg.CycleDelay,
		ErrorBackoff:   cfg.ErrorBackoff,
		NotifyCooldown: cfg.NotifyCooldown,
	}
	go w.Start(ctx)

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics)
	go func() {
		handlers := server.NewHandlers(database, st, len(tracked))
		if err := server.Start(ctx, handlers, cfg.ServerAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
