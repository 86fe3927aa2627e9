package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	internalhttp "github.com/picokeys/pico-bridge/internal/api/http"
	"github.com/picokeys/pico-bridge/internal/auth"
	"github.com/picokeys/pico-bridge/internal/backend"
	"github.com/picokeys/pico-bridge/internal/devices"
	"github.com/picokeys/pico-bridge/internal/fido"
	"github.com/picokeys/pico-bridge/internal/hsm"
	"github.com/picokeys/pico-bridge/internal/prefs"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Pico Bridge", "version", AppVersion)

	deviceBackend := backend.Unavailable{}

	enumerator := devices.CompositeEnumerator{
		Fido: devices.HIDEnumerator{},
		HSM:  deviceBackend,
	}
	registry := devices.NewRegistry(enumerator, deviceBackend)

	fidoManager := fido.NewManager(deviceBackend, registry)
	hsmManager := hsm.NewManager(deviceBackend, registry)
	prefsStore := prefs.NewStore(config.Prefs.Path)

	confirmConfig, err := auth.NewConfig(config.Confirm.TokenTTL)
	if err != nil {
		slog.Error("Failed to initialize confirmation tokens", "error", err)
		os.Exit(1)
	}

	events := devices.NewEventHub()
	poller := devices.NewPoller(registry, config.Devices.PollInterval, events.Publish)

	services := &internalhttp.Services{
		Registry: registry,
		Fido:     fidoManager,
		Hsm:      hsmManager,
		Prefs:    prefsStore,
		Confirm:  confirmConfig,
		Events:   events,
		Readers:  deviceBackend,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "X-Confirm-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	// loopback only: the bridge serves the local desktop client, nothing else
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", config.Http.Port),
		Handler: engine,
	}

	pollCtx, stopPoller := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	go poller.Run(pollCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down...")
	stopPoller()

	var wg sync.WaitGroup
	shutdownTimeout := 10 * time.Second

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		registry.Deselect(ctx)
	}()

	wg.Wait()
	slog.Info("Shutdown complete")
}
