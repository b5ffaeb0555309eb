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

	"github.com/sydlexius/aurral/internal/api"
	"github.com/sydlexius/aurral/internal/api/middleware"
	"github.com/sydlexius/aurral/internal/config"
	"github.com/sydlexius/aurral/internal/connection/lidarr"
	"github.com/sydlexius/aurral/internal/discovery"
	"github.com/sydlexius/aurral/internal/gateway"
	"github.com/sydlexius/aurral/internal/image"
	"github.com/sydlexius/aurral/internal/library"
	"github.com/sydlexius/aurral/internal/logging"
	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/provider/coverart"
	"github.com/sydlexius/aurral/internal/provider/lastfm"
	"github.com/sydlexius/aurral/internal/provider/musicbrainz"
	"github.com/sydlexius/aurral/internal/roster"
	"github.com/sydlexius/aurral/internal/store"
	"github.com/sydlexius/aurral/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("AURRAL_CONFIG_PATH")
	if configPath == "" {
		configPath = "data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	logger.Info("starting aurral",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("logging", cfg.Logging.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistent store
	backend, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, backend, logger)
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("closing store", "error", err)
		}
	}()
	logger.Info("store ready", slog.String("driver", cfg.Store.Driver), slog.String("path", cfg.Store.Path))

	// Providers
	limits := provider.DefaultLimits()
	limits[provider.NameMusicBrainz] = provider.Limit{Interval: cfg.MusicBrainz.MinInterval, MaxConcurrent: 1}
	limiter := provider.NewRateLimiterMapWith(limits)

	if !cfg.HasContact() {
		logger.Warn("no registry contact configured; set CONTACT_EMAIL so MusicBrainz can reach you about your traffic")
	}
	contact := cfg.MusicBrainz.Contact
	if !cfg.HasContact() {
		contact = ""
	}

	gw := gateway.New(gateway.Clients{
		Lidarr:      lidarr.New(cfg.Lidarr.URL, cfg.Lidarr.APIKey, logger),
		MusicBrainz: musicbrainz.NewWithBaseURL(limiter, contact, logger, cfg.MusicBrainz.BaseURL),
		CoverArt:    coverart.NewWithBaseURL(logger, cfg.CoverArt.BaseURL),
		LastFM:      lastfm.NewWithBaseURL(limiter, cfg.LastFM.APIKey, logger, cfg.LastFM.BaseURL),
	}, gateway.DefaultBreakerConfig(), logger)

	if gw.LibraryConfigured() {
		gw.DetectLibraryBasePath(ctx)
	} else {
		logger.Warn("lidarr API key not set; library features are disabled")
	}
	if !gw.StatsConfigured() {
		logger.Info("last.fm API key not set; using MusicBrainz for tags and similar artists")
	}

	// Caches and background work
	rosterCache := roster.New(gw, logger)
	resolver := image.New(gw, st, logger)
	builder := discovery.New(gw, rosterCache, resolver, st, logger,
		discovery.WithHydrateDelay(cfg.Discovery.HydrateDelay))
	libraryService := library.NewService(gw, rosterCache, st, logger)

	go builder.StartScheduler(ctx, discovery.Schedule{
		Interval:     cfg.Discovery.Interval,
		StartupDelay: cfg.Discovery.StartupDelay,
	})

	if _, err := os.Stat(configPath); err == nil {
		w := config.NewWatcher(configPath, func(next *config.Config) {
			logManager.Reconfigure(next.Logging)
			logger.Info("logging reconfigured", slog.String("logging", next.Logging.String()))
		}, logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	clientLimiter := middleware.NewClientLimiter(500*time.Millisecond, 10, 15*time.Minute)
	go clientLimiter.Run(ctx)

	router := api.NewRouter(api.RouterDeps{
		Providers: gw,
		Roster:    rosterCache,
		Images:    resolver,
		Discovery: builder,
		Library:   libraryService,
		Settings:  st,
		Limiter:   clientLimiter,
		Logger:    logger,
		BasePath:  cfg.Server.BasePath,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("serving http: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Let an in-flight build persist its results before the store closes.
	done := make(chan struct{})
	go func() {
		builder.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("discovery build still running at shutdown")
	}
	return nil
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (store.Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		b, err := store.OpenSQLiteBackend(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return b, nil
	default:
		return store.NewFileBackend(cfg.Path), nil
	}
}
