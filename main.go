package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cepro/campuswatch/alerting"
	"github.com/cepro/campuswatch/anomaly"
	"github.com/cepro/campuswatch/automation"
	"github.com/cepro/campuswatch/config"
	dataplatform "github.com/cepro/campuswatch/data_platform"
	"github.com/cepro/campuswatch/forecast"
	"github.com/cepro/campuswatch/httpapi"
	"github.com/cepro/campuswatch/ingest"
	"github.com/cepro/campuswatch/repository"
	"github.com/cepro/campuswatch/supabase"
	"github.com/cepro/campuswatch/tariff"
)

func main() {

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	slog.Info("Starting campuswatch...")

	configPath := os.Getenv("CAMPUSWATCH_CONFIG")
	if configPath == "" {
		configPath = "campuswatch.json"
	}
	cfg, err := config.Read(configPath)
	if err != nil {
		slog.Error("Failed to read config", "path", configPath, "error", err)
		return
	}

	location, err := time.LoadLocation(cfg.Campus.Timezone)
	if err != nil {
		slog.Error("Failed to load campus time location", "error", err)
		return
	}

	repo, err := repository.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to create repository", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	var detector anomaly.Detector
	switch cfg.Detector.Kind {
	case config.DetectorHybrid:
		detector = anomaly.NewHybrid()
	default:
		detector = anomaly.NewStatistical(repo)
	}
	slog.Info("Using anomaly detector", "kind", cfg.Detector.Kind)

	alertManager := alerting.New(repo)
	if cfg.Detector.AnomalyCooldownSecs > 0 {
		alertManager.SetAnomalyCooldown(time.Duration(cfg.Detector.AnomalyCooldownSecs) * time.Second)
	}

	scheduler := automation.New(automation.Config{
		Rooms:          repo,
		Timetable:      repo,
		Readings:       repo,
		Logs:           repo,
		Alerts:         alertManager,
		Location:       location,
		IdleThresholdW: cfg.Campus.IdleThresholdW,
		StaleAfter:     time.Duration(cfg.Automation.StaleAfterSecs) * time.Second,
		PreCoolLead:    time.Duration(cfg.Automation.PreCoolLeadSecs) * time.Second,
	})

	interval := automation.DefaultInterval
	if cfg.Automation.IntervalSecs > 0 {
		interval = time.Duration(cfg.Automation.IntervalSecs) * time.Second
	}
	reconcileTicker := time.NewTicker(interval)
	go scheduler.Run(ctx, reconcileTicker.C)

	pipeline := ingest.New(repo, scheduler, detector, repo, alertManager, tariff.Rates{
		CostPerKWH:     cfg.Campus.TariffPerKWH,
		CO2PerKWH:      cfg.Campus.CO2PerKWH,
		IdleThresholdW: cfg.Campus.IdleThresholdW,
	})

	supaClient := supabase.New(cfg.DataPlatform.Supabase.Url, os.Getenv("CAMPUSWATCH_SUPABASE_KEY"), cfg.DataPlatform.Supabase.Schema)
	dataPlatform := dataplatform.New(supaClient, repo)
	uploadInterval := 5 * time.Second
	if cfg.DataPlatform.UploadIntervalSecs > 0 {
		uploadInterval = time.Duration(cfg.DataPlatform.UploadIntervalSecs) * time.Second
	}
	go dataPlatform.Run(ctx, uploadInterval)

	forecasts := forecast.New(http.Client{Timeout: 10 * time.Second}, cfg.Forecast.BaseUrl)
	if _, err := forecasts.Health(ctx); err != nil {
		// the forecast surface degrades gracefully, the core loop doesn't need it
		slog.Warn("Forecast service is not reachable", "error", err)
	}

	listenAddr := os.Getenv("CAMPUSWATCH_LISTEN")
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	server := httpapi.NewServer(listenAddr, pipeline, scheduler, forecasts)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
		}
	}()

	// wait for a ctrl-c interrupt before exiting
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	<-signalChan

	// cancel any open go-routines and give them up to a second to gracefully shutdown
	cancel()
	reconcileTicker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	server.Stop(shutdownCtx)

	slog.Info("Exiting")
}
