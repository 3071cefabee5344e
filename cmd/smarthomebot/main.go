package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jehaby/smarthomebot/internal/config"
	sqldb "github.com/jehaby/smarthomebot/internal/db"
	"github.com/jehaby/smarthomebot/internal/ingest"
	"github.com/jehaby/smarthomebot/internal/scheduler"
	"github.com/jehaby/smarthomebot/internal/session"
	"github.com/jehaby/smarthomebot/internal/settings"
	"github.com/jehaby/smarthomebot/internal/state"
	"github.com/jehaby/smarthomebot/internal/telegram"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	initLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("error loading config", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite3", cfg.DBConnString)
	if err != nil {
		slog.Error("open sqlite failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		slog.Error("ping sqlite failed", "err", err)
		os.Exit(1)
	}
	if err := sqldb.Migrate(db); err != nil {
		slog.Error("error applying migrations", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store settings.Store = settings.NewSQLStore(db)
	persisted, err := store.Load(ctx)
	if err != nil {
		slog.Error("load chat settings failed", "err", err)
		os.Exit(1)
	}
	chatSettings := settings.NewMap(persisted)
	slog.Info("chat settings loaded", "chats", len(persisted))

	tg, err := telegram.NewClient(cfg.TelegramToken, telegram.Options{
		HTTPTimeout: cfg.HTTPTimeout,
		Debug:       cfg.TGBotDebugEnabled,
	})
	if err != nil {
		slog.Error("telegram client init failed", "err", err)
		os.Exit(1)
	}

	shared := state.New(cfg.AlertingOnStart)

	// Workers outlive the signal so queued tasks still get delivered.
	workCtx := context.WithoutCancel(ctx)
	pool, err := newPool(cfg, tg, shared)
	if err != nil {
		slog.Error("worker setup failed", "err", err)
		os.Exit(1)
	}
	pool.Start(workCtx)

	sched := scheduler.New(workCtx, pool)
	sched.StartRetention(cfg.Retention)

	manager := session.NewManager(session.Options{
		Authorized:   cfg.AuthorizedUsers,
		Cameras:      cfg.Cameras,
		AudioEnabled: cfg.AudioEnabled,
		IdleTimeout:  cfg.SessionTimeout,
	}, session.Deps{
		Sender:    tg,
		State:     shared,
		Queue:     pool,
		Scheduler: sched,
		Settings:  chatSettings,
	})
	tg.OnInbound(manager.Dispatch)

	watcher, err := ingest.NewWatcher(ingest.WatcherOptions{
		Root:      cfg.UploadDir,
		BackupDir: cfg.BackupDir,
		Guard:     ingest.NewSettleGuard(cfg.SettleInterval, cfg.SettleCycles),
	}, pool)
	if err != nil {
		slog.Error("watcher init failed", "err", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		tg.Start(gctx)
		return nil
	})
	slog.Info("smarthomebot started",
		"upload_dir", cfg.UploadDir,
		"recipients", len(cfg.AuthorizedUsers),
		"cameras", len(cfg.Cameras),
		"alerting", shared.Alerting(),
	)

	if err := g.Wait(); err != nil {
		slog.Error("stopped with error", "err", err)
	}
	slog.Info("shutting down")

	// Producers first, then drain the queues.
	manager.CloseAll()
	sched.Stop()
	pool.Shutdown()

	if err := store.Save(workCtx, chatSettings.Snapshot()); err != nil {
		slog.Error("save chat settings failed", "err", err)
		os.Exit(1)
	}
	slog.Info("chat settings saved")
}

func initLogger(level slog.Level, format string) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar})
	}
	slog.SetDefault(slog.New(handler))
}
