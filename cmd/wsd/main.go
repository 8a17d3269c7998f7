package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hostbench/wsd/internal/api"
	"github.com/hostbench/wsd/internal/core"
	"github.com/hostbench/wsd/internal/janitor"
	"github.com/hostbench/wsd/internal/observability"
	"github.com/hostbench/wsd/internal/provider"
	"github.com/hostbench/wsd/internal/provisioner"
	"github.com/hostbench/wsd/internal/store"
)

func main() {
	var cfg api.Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}

	log, _ := observability.NewLogger(cfg.LogLevel)
	defer log.Sync()
	zap.ReplaceGlobals(log)

	observability.RegisterAll(prometheus.DefaultRegisterer)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("opening workspace store", zap.String("path", cfg.DBPath))
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("store open failed", zap.Error(err))
	}
	defer st.Close()

	providers := provider.NewRegistry(provider.NewDocker())
	if cfg.HetznerToken != "" {
		hetzner, err := provider.NewHetzner(provider.HetznerConfig{
			Token:      cfg.HetznerToken,
			ServerType: cfg.HetznerServerType,
			Location:   cfg.HetznerLocation,
		})
		if err != nil {
			log.Fatal("hetzner provider init failed", zap.Error(err))
		}
		providers.Register(hetzner)
	}

	inFlight := core.NewInFlight()

	prov := provisioner.New(st, providers, inFlight, provisioner.Config{
		Interval:       cfg.ProvisionerInterval,
		AttemptTimeout: cfg.ProvisionTimeout,
		MaxConcurrent:  cfg.ProvisionFanout,
	}, log.Named("provisioner"))
	go prov.Run(ctx)

	jan := janitor.New(st, providers, inFlight, janitor.Config{
		Interval: cfg.JanitorInterval,
	}, log.Named("janitor"))
	go jan.Run(ctx)

	apiHandler := api.NewAPI(st, providers, log)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      apiHandler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		log.Info("metrics server starting", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		log.Info("API server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("API server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("stopped")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".wsd", "wsd.db")
}
