package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/bionic/internal/api"
	"github.com/dgallion1/bionic/internal/bootstrap"
	"github.com/dgallion1/bionic/internal/config"
	"github.com/dgallion1/bionic/internal/page"
	"github.com/dgallion1/bionic/internal/settings"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openSettings(cfg, log)
	if err != nil {
		log.Error("open settings store", "error", err)
		os.Exit(1)
	}

	pages := page.NewStore(cfg.PageTTL, time.Minute)
	boot := bootstrap.New(store, cfg.BootstrapDelay, log)

	// Edits to the settings file reach open pages like a storage change event.
	if fs, ok := store.(*settings.FileStore); ok {
		go func() {
			err := fs.Watch(ctx, func(s settings.Settings) {
				n := pages.Broadcast(ctx, s, log)
				log.Info("settings file changed", "enabled", s.Enabled, "ratio", s.BoldRatio, "pages", n)
			})
			if err != nil {
				log.Error("settings watch stopped", "error", err)
			}
		}()
	}

	srv := api.NewServer(pages, store, boot, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		cancel()
		pages.Close()
		closeStore()
	}()

	log.Info("starting bionic", "port", cfg.Port, "settings_backend", cfg.SettingsBackend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openSettings builds the configured settings backend and its cleanup.
func openSettings(cfg config.Config, log *slog.Logger) (settings.Store, func(), error) {
	noop := func() {}
	switch cfg.SettingsBackend {
	case config.BackendFile:
		return settings.NewFileStore(cfg.SettingsPath, log), noop, nil
	case config.BackendMemory:
		return settings.NewMemoryStore(), noop, nil
	case config.BackendRemote:
		rs := settings.NewRemoteStore(cfg.SettingsURL, cfg.SettingsAPIKey, cfg.SettingsKey)
		return rs, rs.Close, nil
	case config.BackendRedis:
		rs, err := settings.NewRedisStore(cfg.RedisURL, cfg.SettingsKey)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown settings backend %q", cfg.SettingsBackend)
}
