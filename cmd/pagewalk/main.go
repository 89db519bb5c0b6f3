// Command pagewalk walks paginated listings and extracts their items.
//
// Usage:
//
//	pagewalk -url https://example.com/shop/page/1/   # walk one listing, items to stdout
//	pagewalk -serve                                  # run the session API
//	pagewalk -config pagewalk.yaml -serve            # run with a config file
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pagewalk"
	"github.com/hazyhaar/pagewalk/paginate"
)

func main() {
	configPath := flag.String("config", "", "path to pagewalk.yaml config file")
	singleURL := flag.String("url", "", "walk a single listing URL and exit")
	serve := flag.Bool("serve", false, "run the HTTP session API")
	strategy := flag.String("strategy", "", "pagination strategy: auto, url, click, scroll")
	maxPages := flag.Int("max-pages", 0, "page limit for -url walks")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *singleURL, *strategy, *maxPages, *serve); err != nil {
		logger.Error("pagewalk: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, singleURL, strategy string, maxPages int, serve bool) error {
	var cfg *pagewalk.Config
	if configPath != "" {
		loaded, err := pagewalk.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	svc, err := pagewalk.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer svc.Close()

	if singleURL != "" {
		return runSingle(ctx, svc, singleURL, strategy, maxPages)
	}
	if serve {
		return runServe(ctx, logger, svc, cfg)
	}

	return errors.New("usage: pagewalk -url <url> | -serve [-config <file>]")
}

// runSingle walks one listing to completion and prints the extracted items.
func runSingle(ctx context.Context, svc *pagewalk.Service, url, strategy string, maxPages int) error {
	var pcfg *paginate.Config
	if strategy != "" || maxPages > 0 {
		pcfg = &paginate.Config{Strategy: strategy}
		pcfg.Limits.MaxPages = maxPages
	}

	id, err := svc.StartSession(ctx, url, pcfg)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	go func() {
		<-ctx.Done()
		svc.Stop(id)
	}()
	svc.Wait(id)

	p, err := svc.Status(ctx, id)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if p.Status == paginate.StatusFailed {
		return fmt.Errorf("walk failed after %d pages", p.PagesVisited)
	}

	items, err := svc.Items(ctx, id)
	if err != nil {
		return fmt.Errorf("items: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func runServe(ctx context.Context, logger *slog.Logger, svc *pagewalk.Service, cfg *pagewalk.Config) error {
	addr := ":8087"
	if cfg != nil && cfg.Listen != "" {
		addr = cfg.Listen
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           svc.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("pagewalk: server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("pagewalk: server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("pagewalk: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("pagewalk: shutdown", "error", err)
	}
	return nil
}
