package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/news-sieve/app/api"
	"github.com/lysyi3m/news-sieve/app/cfg"
	"github.com/lysyi3m/news-sieve/app/tasks"
)

func main() {
	commands := []cfg.Command{
		{
			Name:  "fetch",
			Short: "Fetch, classify and store articles",
			Long:  "Fetches every active feed (or one source), classifies the entries and stores new articles in a single transaction.",
			Data:  &fetchCommand{},
		},
		{
			Name:  "query",
			Short: "Query stored articles",
			Long:  "Lists, searches and browses stored articles, or prints database statistics.",
			Data:  &queryCommand{},
		},
		{
			Name:  "sync",
			Short: "Copy new articles into the review store",
			Data:  &syncCommand{},
		},
		{
			Name:  "feeds",
			Short: "List, enable or disable feed sources",
			Data:  &feedsCommand{},
		},
		{
			Name:  "serve",
			Short: "Run the scheduler and the HTTP API",
			Data:  &serveCommand{},
		},
	}

	// go-flags prints parse and command errors itself.
	if _, err := cfg.Load(os.Args[1:], commands...); err != nil {
		os.Exit(1)
	}
}

func setupLogging(c *cfg.Cfg) {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

type serveCommand struct{}

func (s *serveCommand) Execute(args []string) error {
	appCfg := cfg.Get()
	setupLogging(appCfg)

	slog.Info("Starting news-sieve server", "version", appCfg.Version)

	a, err := openApp(appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := a.runner()
	if err != nil {
		return err
	}

	slog.Info("Starting background scheduler",
		"workers", appCfg.WorkerCount,
		"interval", time.Duration(appCfg.SchedulerInterval)*time.Second)
	scheduler := tasks.NewScheduler(runner, a.reviews, a.feeds, a.registry,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(a.articles, a.reviews, a.feeds, scheduler, appCfg.BaseUrl, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case serveErr = <-serverErrChan:
		slog.Error("Server error", "error", serveErr)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
