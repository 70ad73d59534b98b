package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"hn_cleanser/internal/cleanser"
	"hn_cleanser/internal/config"
	"hn_cleanser/internal/notify"
	"hn_cleanser/internal/report"
	"hn_cleanser/internal/session"
	"hn_cleanser/internal/store"
)

// forceExitAfter bounds a stalled graceful shutdown.
const forceExitAfter = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("HNC_CONFIG"), "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	catalog := store.NewCatalog(st, cfg.Collections)

	sess, err := session.New(cfg.BaseURL, cfg.Username, cfg.Password, cfg.UserAgent, log)
	if err != nil {
		log.Error("create session", "error", err)
		os.Exit(1)
	}

	cl := cleanser.New(sess, catalog, cfg.Frequency, log)

	var notifier report.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Error("create telegram notifier", "error", err)
		} else {
			notifier = tg
		}
	}
	mailman := report.New(catalog, report.NewSMTPMailer(cfg.Report), notifier, cfg.Report, cfg.Username, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cl.Start(ctx); err != nil {
		log.Error("start cleanser", "error", err)
		_ = st.Close()
		os.Exit(1)
	}
	mailman.Start(ctx)

	<-ctx.Done()
	log.Info("shutting down")

	forceTimer := time.AfterFunc(forceExitAfter, func() {
		slog.Warn("shutdown still not complete, forcing exit NOW")
		os.Exit(1)
	})
	defer forceTimer.Stop()

	cl.Stop()
	mailman.Stop()
	if err := st.Close(); err != nil {
		log.Error("close database", "error", err)
	}
	log.Info("completed shutdown")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
