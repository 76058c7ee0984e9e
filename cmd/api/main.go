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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ewilliams-labs/vibecheck/internal/adapters/camera"
	"github.com/ewilliams-labs/vibecheck/internal/adapters/eventbus"
	"github.com/ewilliams-labs/vibecheck/internal/adapters/gemini"
	"github.com/ewilliams-labs/vibecheck/internal/adapters/memory"
	"github.com/ewilliams-labs/vibecheck/internal/adapters/ollama"
	"github.com/ewilliams-labs/vibecheck/internal/adapters/rest"
	"github.com/ewilliams-labs/vibecheck/internal/adapters/spotify"
	"github.com/ewilliams-labs/vibecheck/internal/capture"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
	"github.com/ewilliams-labs/vibecheck/internal/core/services"
	"github.com/ewilliams-labs/vibecheck/internal/platform/config"
	"github.com/ewilliams-labs/vibecheck/internal/platform/logger"
	"github.com/ewilliams-labs/vibecheck/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.App.LogFilePath, cfg.IsProduction())
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Driven adapters
	analyzer, err := newAnalyzer(cfg, log)
	if err != nil {
		return err
	}

	pool := worker.NewPool(analyzer, cfg.Analyzer.QueueSize, cfg.Analyzer.Timeout, log.Named("worker"))
	pool.Start(cfg.Analyzer.Workers)
	defer pool.Stop()

	bus := eventbus.New(8, log.Named("events"))
	store := memory.NewSessionStore(cfg.Session.TTL, cfg.Session.TTL/4, log.Named("sessions"))
	defer store.Close()

	var artwork ports.ArtworkFinder
	if cfg.Spotify.Enabled() {
		client, err := spotify.NewClientCredentials(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret,
			spotify.WithLogger(log.Named("spotify")))
		if err != nil {
			return fmt.Errorf("spotify: %w", err)
		}
		artwork = client
	} else {
		log.Info("spotify credentials not set, album art uses search thumbnails")
	}

	// 3. Core
	manager := services.NewManager(services.ManagerConfig{
		Store:     store,
		Queue:     pool,
		Notifier:  bus,
		NewCamera: func() ports.RemoteCamera { return camera.NewFeed() },
		Capture:   capture.Options{Constraints: ports.DefaultConstraints()},
		Logger:    log.Named("sessions"),
	})

	// 4. Driving adapter
	handler := rest.NewHandler(rest.Config{
		Sessions:      manager,
		Events:        bus,
		Artwork:       artwork,
		MaxFrameBytes: cfg.App.MaxFrameBytes,
		Logger:        log.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	// 5. Serve until signalled
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("🎶 VibeCheck is running", zap.String("addr", cfg.App.Addr), zap.String("analyzer", cfg.Analyzer.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newAnalyzer(cfg *config.Config, log *zap.Logger) (ports.MoodAnalyzer, error) {
	switch cfg.Analyzer.Provider {
	case config.ProviderOllama:
		return ollama.NewClient(cfg.Analyzer.OllamaHost,
			ollama.WithModel(cfg.Analyzer.OllamaModel),
			ollama.WithTemperature(cfg.Analyzer.Temperature),
			ollama.WithLogger(log.Named("ollama")),
		), nil
	default:
		client, err := gemini.NewClient(gemini.Config{
			APIKey:      cfg.Analyzer.GeminiAPIKey,
			BaseURL:     cfg.Analyzer.GeminiBaseURL,
			Model:       cfg.Analyzer.GeminiModel,
			Temperature: float32(cfg.Analyzer.Temperature),
			Logger:      log.Named("gemini"),
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return client, nil
	}
}
