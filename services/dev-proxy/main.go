package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixforge-client/pkg/config"
	"fixforge-client/pkg/logger"
	"fixforge-client/pkg/proxy"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERROR] Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("[ERROR] Failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("dev proxy stopped", zap.Error(err))
	}
}

func run(cfg config.Config, lg *zap.Logger) error {
	handler, err := proxy.New(proxy.Options{
		Target:    cfg.Proxy.Target,
		Prefix:    cfg.Proxy.Prefix,
		Insecure:  cfg.Proxy.Insecure,
		StaticDir: cfg.Proxy.StaticDir,
	}, lg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Proxy.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("dev proxy listening",
			zap.String("addr", srv.Addr),
			zap.String("prefix", cfg.Proxy.Prefix),
			zap.String("target", cfg.Proxy.Target))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		lg.Info("shutting down dev proxy")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
