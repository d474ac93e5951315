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

	"Scribe/internal/cache"
	"Scribe/internal/chatservice"
	"Scribe/internal/config"
	"Scribe/internal/grpcserver"
	"Scribe/internal/handlers"
	"Scribe/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	logger := slog.With("component", "main")
	logger.Info("Starting Scribe chat server",
		"http_addr", cfg.HTTPAddr,
		"grpc_addr", cfg.GRPCAddr,
		"db_driver", cfg.DBDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// health поднимается раньше загрузки кэша и до нее отвечает NOT_SERVING
	admin := grpcserver.New()
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	store, err := storage.NewStorage(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := admin.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	srv, err := bootstrap(gctx, cfg, store)
	if err != nil {
		admin.Stop(cfg.ShutdownTimeout)
		_ = g.Wait()
		return err
	}

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		logger.Info("HTTP server is listening", "address", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	admin.SetServing(true)
	logger.Info("Scribe is ready")

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		admin.SetServing(false)
		err := httpSrv.Shutdown(shutdownCtx)
		admin.Stop(cfg.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// bootstrap создает служебные комнаты, загружает кэш и собирает HTTP роутер
func bootstrap(ctx context.Context, cfg config.Config, store *storage.Storage) (http.Handler, error) {
	logger := slog.With("component", "bootstrap")

	if err := store.EnsureRooms(ctx, cfg.SeedRooms...); err != nil {
		return nil, fmt.Errorf("seed rooms: %w", err)
	}

	start := time.Now()
	c, err := cache.Load(ctx, store, cfg.LoadConcurrency)
	if err != nil {
		if errors.Is(err, cache.ErrIntegrity) {
			logger.Error("Stored data is inconsistent, refusing to start", "error", err)
		}
		return nil, fmt.Errorf("load cache: %w", err)
	}
	logger.Info("Cache loaded",
		"users", len(c.Users()),
		"rooms", len(c.Rooms()),
		"duration", time.Since(start))

	svc := chatservice.NewChatService(store, c, cfg.DefaultRoom)
	return handlers.NewRouter(handlers.NewChatHandler(svc), store), nil
}
