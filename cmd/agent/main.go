package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cutroom/cutroom-agent/internal/api"
	"github.com/cutroom/cutroom-agent/internal/authority"
	"github.com/cutroom/cutroom-agent/internal/config"
	"github.com/cutroom/cutroom-agent/internal/db"
	"github.com/cutroom/cutroom-agent/internal/editor"
	"github.com/cutroom/cutroom-agent/internal/events"
	"github.com/cutroom/cutroom-agent/internal/logging"
	"github.com/cutroom/cutroom-agent/internal/persistence"
	"github.com/cutroom/cutroom-agent/internal/service"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting cutroom agent",
		"version", Version, "data_dir", cfg.DataDir(), "project", cfg.Project())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := persistence.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   CUTROOM AGENT v0.1.0                    ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	bus := events.NewBus()
	auth := authority.New(bus, logging.WithComponent(logger, "authority"), authority.Options{
		AllowOverlap: cfg.AllowOverlap(),
	})

	svc := service.New(bus, service.NewFrameCache(), logging.WithComponent(logger, "service"))
	ed := editor.New(auth, bus, repo, logging.WithComponent(logger, "editor"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playhead := editor.NewPlayhead(auth, 0, logging.WithComponent(logger, "playhead"))

	go svc.Run(ctx)
	go ed.Run(ctx)
	go playhead.Run(ctx)

	if latest, err := repo.LatestSnapshot(ctx, cfg.Project()); err != nil {
		logger.Warn("failed to look up latest autosave", "error", err)
	} else if latest != nil {
		if err := ed.Restore(latest.Snapshot); err != nil {
			logger.Warn("failed to restore latest autosave", "save_id", latest.ID, "error", err)
		} else {
			logger.Info("restored autosave",
				"save_id", latest.ID, "clips", len(latest.Snapshot.Clips), "saved_at", latest.CreatedAt)
		}
	}

	autosaver := persistence.NewAutosaver(repo, ed, cfg.Project(), cfg.AutosaveInterval(),
		logging.WithComponent(logger, "autosaver"))
	go autosaver.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Project:    cfg.Project(),
		Editor:     ed,
		Repository: repo,
		Autosaver:  autosaver,
		Logger:     logger,
		StartTime:  startTime,
		DeviceID:   deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	logger.Info("initiating graceful shutdown")

	// Final save before the pumps stop so an edit made moments before
	// shutdown is not lost.
	if _, err := autosaver.SaveNow(ctx); err != nil {
		logger.Warn("final save failed", "error", err)
	}

	cancel()
	bus.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo persistence.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo persistence.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
