package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/geozone/internal/config"
	"github.com/udisondev/geozone/internal/db"
	"github.com/udisondev/geozone/internal/engine"
	"github.com/udisondev/geozone/internal/httpapi"
	"github.com/udisondev/geozone/internal/replay"
	"github.com/udisondev/geozone/internal/tracker"
	"github.com/udisondev/geozone/internal/zone"
	"github.com/udisondev/geozone/internal/zonefile"
)

const ConfigPath = "config/geozone.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env необязателен
	_ = godotenv.Load()

	cfgPath := ConfigPath
	if p := os.Getenv("GEOZONE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if u := os.Getenv("GEOZONE_DATABASE_URL"); u != "" {
		cfg.Database.URL = u
		cfg.UseDB = true
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("geozone starting", "config", cfgPath, "log_level", cfg.LogLevel)

	eng, err := engine.New(cfg.Engine, slog.Default())
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	if err := loadZones(ctx, cfg, eng); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           httpapi.NewHandler(eng, slog.Default()),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			slog.Info("starting http server", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.TraceFile != "" {
		src, err := replay.Open(cfg.TraceFile, replay.Options{})
		if err != nil {
			return err
		}
		defer src.Close()

		g.Go(func() error {
			slog.Info("starting trace replay", "file", cfg.TraceFile, "interval", cfg.TickInterval)
			if err := eng.Run(gctx, src, cfg.TickInterval, logEvents); err != nil {
				return fmt.Errorf("trace replay: %w", err)
			}
			slog.Info("trace replay finished", "report", eng.Report())
			return nil
		})
	}

	if cfg.MetricsAddr == "" && cfg.TraceFile == "" {
		slog.Warn("neither metrics_addr nor trace_file configured, nothing to run")
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// loadZones синхронизирует зоны из файла и/или БД. Если заданы оба
// источника, валидные зоны из файла сначала записываются в БД; невалидные
// туда не попадают.
func loadZones(ctx context.Context, cfg config.Server, eng *engine.Engine) error {
	var defs []zone.Definition

	if cfg.ZonesFile != "" {
		fileDefs, err := zonefile.Load(cfg.ZonesFile)
		if err != nil {
			return fmt.Errorf("loading zones: %w", err)
		}
		defs = fileDefs
		slog.Info("zone file loaded", "file", cfg.ZonesFile, "zones", len(defs))
	}

	if cfg.UseDB {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		version, err := db.RunMigrations(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied", "version", version)

		repo := database.Zones()
		if defs != nil {
			valid, rejected := zone.FilterValid(defs)
			if rejected != nil {
				slog.Warn("invalid file zones not stored", "rejected", len(defs)-len(valid), "err", rejected)
			}
			changed, err := repo.SaveAll(ctx, valid)
			if err != nil {
				return fmt.Errorf("storing zones: %w", err)
			}
			slog.Info("zones stored", "changed", changed)
		}

		if defs, err = repo.LoadAll(ctx); err != nil {
			return fmt.Errorf("loading zones from database: %w", err)
		}
	}

	res, err := eng.SyncZones(defs)
	if err != nil {
		// Невалидные зоны пропущены, остальные зарегистрированы.
		slog.Warn("some zones rejected", "rejected", res.Rejected, "err", err)
	}
	slog.Info("zones registered", "zones", len(eng.Zones()))

	return nil
}

func logEvents(events []tracker.Event) {
	for _, ev := range events {
		slog.Debug("zone event",
			"kind", ev.Kind,
			"entity", ev.EntityID,
			"zone", ev.ZoneID,
			"at", ev.Timestamp)
	}
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
