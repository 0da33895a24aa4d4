package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	router "github.com/dkeye/Chorus/internal/adapters/http"
	wssignal "github.com/dkeye/Chorus/internal/adapters/signal"
	"github.com/dkeye/Chorus/internal/adapters/store"
	"github.com/dkeye/Chorus/internal/app"
	"github.com/dkeye/Chorus/internal/app/orch"
	"github.com/dkeye/Chorus/internal/app/sched"
	"github.com/dkeye/Chorus/internal/config"
)

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "chorus",
		Short:        "Chorus room server: pairs connected members and drives them through randomized exchanges",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default config/config.$CONFIG_ENV.yaml)")

	rootCmd.AddCommand(newRoomsCmd(&configFile))
	return rootCmd
}

func loadConfig(file string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if file != "" {
		cfg, err = config.LoadFile(file)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}
	return cfg, nil
}

func schedulerConfig(cfg *config.Config) sched.Config {
	return sched.Config{
		Mode:        sched.Mode(cfg.Scheduler.Mode),
		MinDelay:    cfg.Scheduler.MinDelay,
		MaxDelay:    cfg.Scheduler.MaxDelay,
		IdleBackoff: cfg.Scheduler.IdleBackoff,
		StartDelay:  cfg.Scheduler.StartDelay,
		SettleDelay: cfg.Scheduler.SettleDelay,
		Freshness:   cfg.Scheduler.Freshness,
		PairRetries: cfg.Scheduler.PairRetries,
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	schedCfg := schedulerConfig(cfg)
	if err := schedCfg.Validate(); err != nil {
		return err
	}

	roomStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := roomStore.Close(); err != nil {
			log.Error().Err(err).Msg("close room store")
		}
	}()

	registry := app.NewRoomRegistry(roomStore)
	if err := registry.Load(ctx); err != nil {
		return err
	}
	sessions := app.NewSessionTable(registry, nil)
	hub := wssignal.NewHub(app.SimplePolicy{})

	auth, err := app.NewAuthenticator(cfg.Admin.Password, cfg.Admin.PasswordHash)
	if err != nil {
		return err
	}

	o := &orch.Orchestrator{
		Registry: registry,
		Sessions: sessions,
		Notifier: hub,
		Auth:     auth,
	}
	loops := sched.NewManager(ctx, schedCfg, registry, sessions, hub, sched.WithTrace(o.Trace))
	o.Loops = loops

	reaper := app.NewReaper(sessions, cfg.Reaper.Period, cfg.Reaper.Staleness, nil, o.OnEvict)
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		reaper.Run(ctx)
	}()

	ctl := wssignal.NewSignalWSController(o, hub,
		wssignal.NewJoinRateLimiter(cfg.JoinLimit.Count, cfg.JoinLimit.Interval),
		wssignal.Options{
			ReadLimit:       cfg.ReadLimit,
			PingPeriod:      cfg.PingPeriod,
			HeartbeatPeriod: cfg.HeartbeatPeriod,
		})

	r := router.SetupRouter(ctx, cfg, o, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Chorus server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("server error")
		cancel()
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	cancel()
	<-reaperDone
	loops.Wait()
	if serveErr != nil {
		return fmt.Errorf("listen on %s: %w", addr, serveErr)
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
