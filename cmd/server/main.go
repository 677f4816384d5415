package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/gera1311/foodgram/internal/auth"
	"github.com/gera1311/foodgram/internal/config"
	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/handlers"
	"github.com/gera1311/foodgram/internal/logger"
	"github.com/gera1311/foodgram/internal/media"
	"github.com/gera1311/foodgram/internal/observability"
	"github.com/gera1311/foodgram/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitOTel(ctx, log, cfg.Otel)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}()

	// Initialize database
	db, err := database.Open(database.Options{
		Driver:  cfg.Database.Driver,
		DataDir: cfg.Database.DataDir,
		URL:     cfg.Database.URL,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database ready", "driver", cfg.Database.Driver)

	store, closeStore, err := openMedia(ctx, cfg.Media)
	if err != nil {
		return err
	}
	defer closeStore()

	repo := repository.New(db, repository.WithLogger(log.With("component", "repository")))

	if cfg.LogMode == "production" || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	routerCfg := handlers.RouterConfig{
		Log:         log,
		Repo:        repo,
		Media:       store,
		Tokens:      auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL),
		CORSOrigins: cfg.CORSOrigins,
	}
	if cfg.Otel.Enabled {
		routerCfg.ServiceName = cfg.Otel.ServiceName
	}
	if cfg.Media.Backend == "local" {
		routerCfg.MediaPrefix = cfg.Media.BaseURL
		routerCfg.MediaDir = cfg.Media.Dir
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func openMedia(ctx context.Context, cfg config.Media) (media.Store, func(), error) {
	if cfg.Backend == "gcs" {
		s, err := media.NewGCSStore(ctx, cfg.GCSBucket, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	s, err := media.NewLocalStore(cfg.Dir, cfg.BaseURL)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}
