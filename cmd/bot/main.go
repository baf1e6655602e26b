package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/maaaruch/tg-win-bot/internal/app"
	"github.com/maaaruch/tg-win-bot/internal/config"
	"github.com/maaaruch/tg-win-bot/internal/logger"
	"github.com/maaaruch/tg-win-bot/internal/pipeline"
	"github.com/maaaruch/tg-win-bot/internal/session"
	"github.com/maaaruch/tg-win-bot/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logg.Fatal("create data dir", "dir", dir, "error", err)
		}
	}

	db, err := sql.Open("sqlite3", storage.DSN(cfg.DBPath, cfg.BusyTimeout))
	if err != nil {
		logg.Fatal("open db", "path", cfg.DBPath, "error", err)
	}
	defer db.Close()

	store := storage.New(db, storage.WithMaxAttempts(cfg.TxMaxAttempts))
	if err := store.InitSchema(); err != nil {
		logg.Fatal("init schema", "error", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logg.Fatal("create bot", "error", err)
	}
	bot.Debug = cfg.Debug
	logg.Info("bot started", "username", bot.Self.UserName, "language", cfg.Language)

	sessions := session.NewStore()
	p := pipeline.New(sessions, store, logg.With("component", "pipeline"))
	application := app.New(bot, store, p, logg.With("component", "app"), cfg.Language)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return application.Run(gctx)
	})
	g.Go(func() error {
		return sessions.Run(gctx, cfg.SweepInterval, func(n int) {
			logg.Debug("expired sessions evicted", "count", n)
		})
	})

	if err := g.Wait(); err != nil {
		logg.Error("shutdown with error", "error", err)
	}
	logg.Info("shutting down")
}
