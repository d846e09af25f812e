package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gorilla/mux"

	"Mediarr/config"
	"Mediarr/handlers"
	"Mediarr/middleware"
	"Mediarr/services"
	"Mediarr/shared/logger"
	"Mediarr/store"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Environment, cfg.Debug)
	cfg.Validate()

	requests, err := store.OpenRequestStore(filepath.Join(cfg.DataDir, "requests.json"))
	if err != nil {
		slog.Error("Failed to open request store", "error", err)
		os.Exit(1)
	}
	ledger, err := store.OpenNotifiedStore(filepath.Join(cfg.DataDir, "notified_items.json"))
	if err != nil {
		slog.Error("Failed to open notified-items ledger", "error", err)
		os.Exit(1)
	}
	slog.Info("Stores opened", "data_dir", cfg.DataDir, "tracked_requests", requests.Len())

	movies := services.NewRadarrClient(cfg)
	series := services.NewSonarrClient(cfg)
	library := services.NewTautulliClient(cfg)
	catalog := services.NewTMDBClient(cfg)

	var messenger services.Messenger
	if tg, err := services.NewTelegramMessenger(cfg); err == nil {
		messenger = tg
	} else if errors.Is(err, services.ErrNotConfigured) {
		slog.Warn("Telegram not configured, notifications will be logged only")
	} else {
		slog.Error("Failed to initialize Telegram messenger", "error", err)
		os.Exit(1)
	}

	tracker := services.NewRequestTracker(requests, movies, series, messenger)
	submitter := services.NewSubmitter(tracker, movies, series, library, catalog)
	recent := services.NewRecentlyAddedNotifier(ledger, requests, library, messenger)
	automation := services.NewAutomationService(cfg, tracker, recent)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go automation.Start(ctx)

	r := mux.NewRouter()
	r.Use(middleware.Logging)
	r.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}).Methods(http.MethodGet)

	api := &handlers.RequestHandlers{Store: requests, Tracker: tracker, Submitter: submitter, Automation: automation}
	api.Routes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		srv.Shutdown(context.Background())
	}()

	slog.Info("Server starting", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
