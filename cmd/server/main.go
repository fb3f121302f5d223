package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/api"
	"github.com/Harshitk-cp/mashaaer/internal/buildconfig"
	"github.com/Harshitk-cp/mashaaer/internal/config"
	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/Harshitk-cp/mashaaer/internal/effects"
	"github.com/Harshitk-cp/mashaaer/internal/service"
	"github.com/Harshitk-cp/mashaaer/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	bootLogger, _ := zap.NewProduction()
	if err := config.Load(); err != nil {
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := newLogger(config.LogLevel())
	if err != nil {
		bootLogger.Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting", zap.String("build", buildconfig.Current().String()))

	ctx := context.Background()

	st, closeStore, err := openStateStore(ctx, logger)
	if err != nil {
		logger.Fatal("failed to open state store", zap.String("backend", config.StateBackend()), zap.Error(err))
	}
	defer closeStore()

	saver := store.NewAsyncSaver(st, logger)

	var catalog []domain.Ritual
	if path := config.RitualsFile(); path != "" {
		catalog, err = service.LoadRitualCatalog(path)
		if err != nil {
			logger.Fatal("failed to load ritual catalog", zap.String("path", path), zap.Error(err))
		}
	}

	sink := effects.NewLogSink(config.EffectsFeedSize(), logger)
	engine := service.NewEngine(service.EngineConfig{
		EpisodicCap:        config.EpisodicCap(),
		RitualCooldown:     config.RitualCooldown(),
		LoadDefaultRituals: config.LoadDefaultRituals(),
		Catalog:            catalog,
		Store:              st,
		Saver:              saver,
		Effects:            sink,
	}, logger)

	loadCtx, cancelLoad := context.WithTimeout(ctx, 30*time.Second)
	err = engine.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Fatal("failed to load engine state", zap.Error(err))
	}

	distill := service.NewDistillService(engine.Memory(), engine.Narratives(), logger)
	distill.SetInterval(config.DistillInterval())
	distill.SetMinIntensity(config.DistillMinIntensity())

	reflection := service.NewReflectionService(engine.Behavior(), logger)
	reflection.SetInterval(config.ReflectInterval())

	app := api.NewApp(api.Deps{
		Engine:         engine,
		Distill:        distill,
		Effects:        sink,
		Store:          st,
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}, logger)

	distill.Start()
	reflection.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("backend", config.StateBackend()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	distill.Stop()
	reflection.Stop()
	engine.Close()
	saver.Close()

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	return cfg.Build()
}

// openStateStore returns the configured backend and a function releasing it.
func openStateStore(ctx context.Context, logger *zap.Logger) (domain.StateStore, func(), error) {
	switch config.StateBackend() {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, config.DatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping: %w", err)
		}
		pg := store.NewPostgresStateStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("connected to postgres")
		return pg, pool.Close, nil

	case config.BackendSQLite:
		lite, err := store.NewSQLiteStateStore(config.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		logger.Info("opened sqlite state", zap.String("path", config.SQLitePath()))
		return lite, func() { _ = lite.Close() }, nil
	}

	logger.Warn("using in-memory state; nothing survives a restart")
	return store.NewMemoryStateStore(), func() {}, nil
}
