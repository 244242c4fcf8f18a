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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/layertree/internal/api"
	"github.com/dgallion1/layertree/internal/config"
	"github.com/dgallion1/layertree/internal/doctree"
	"github.com/dgallion1/layertree/internal/logging"
	"github.com/dgallion1/layertree/internal/optstore"
	"github.com/dgallion1/layertree/internal/optstore/redis"
	"github.com/dgallion1/layertree/internal/pipeline"
	"github.com/dgallion1/layertree/internal/present"
	"github.com/dgallion1/layertree/internal/selection"
	"github.com/dgallion1/layertree/internal/walker"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP, SSE and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetString("port"); port != "" {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serve(parent context.Context, cfg config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logging.New(level, cfg.LogFormat, os.Stdout)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Option cache.
	var store optstore.Store = optstore.NewMemory()
	if cfg.RedisAddr != "" {
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey)
		defer rs.Close()
		if err := rs.Ping(ctx); err != nil {
			log.Warn("redis unreachable, option cache changes may not persist", "addr", cfg.RedisAddr, "error", err)
		}
		store = rs
	}

	events := present.NewBroadcaster(cfg.EventBuffer)
	orch := pipeline.NewOrchestrator(pipeline.Config{
		Defaults:  cfg.Defaults,
		BatchSize: cfg.BatchSize,
		Yielder:   walker.Gosched,
		RunTTL:    cfg.RunTTL,
	}, store, events, log)
	orch.Start(ctx)
	defer orch.Stop()

	ws := selection.NewWorkspace()
	ws.OnChange(func(nodes []doctree.Node) string { return orch.SelectionChanged(nodes).ID })

	srv := api.NewServer(ws, orch, events, log, cfg)
	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: event streams stay open.
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting layertree", "port", cfg.Port, "option_cache", storeKind(cfg))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		return err
	}
	return nil
}

func storeKind(cfg config.Config) string {
	if cfg.RedisAddr != "" {
		return "redis"
	}
	return "memory"
}
