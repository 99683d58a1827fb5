package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/joho/godotenv"

	"slip-bot/api/internal/clock"
	"slip-bot/api/internal/config"
	"slip-bot/api/internal/engine"
	"slip-bot/api/internal/extract"
	"slip-bot/api/internal/httpserver"
	"slip-bot/api/internal/ledger"
	"slip-bot/api/internal/session"
	"slip-bot/api/internal/store"
	"slip-bot/api/internal/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bot stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// --- Postgres (optional audit log) ---
	var (
		db        *sql.DB
		commitLog *store.CommitLog
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("db connected", "dsn", safeDSNSummary(cfg.DatabaseURL))

		commitLog = store.NewCommitLog(db)
		if err := commitLog.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	var ex extract.Extractor
	switch cfg.Extractor {
	case config.ExtractorGemini:
		ex = extract.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		ex = extract.NewHTTP(cfg.ExtractorURL, cfg.ExtractorToken)
	}
	led := ledger.New(cfg.LedgerURL, cfg.LedgerToken)

	clk := clock.Real()
	sessions := session.NewStore(clk, cfg.BatchTTL, cfg.EditTTL)
	go sessions.Janitor(ctx, clk, cfg.SweepEvery, log)

	chat := telegram.NewChannel(bot, log)
	deps := engine.Deps{
		Clock:     clk,
		Store:     sessions,
		Chat:      chat,
		Extractor: ex,
		Ledger:    led,
		Logger:    log,
	}
	if commitLog != nil {
		deps.Audit = commitLog
	}
	eng := engine.New(engine.Config{
		Debounce:       cfg.Debounce,
		ExtractTimeout: cfg.ExtractTimeout,
		PageSize:       cfg.PageSize,
		LowConfidence:  cfg.LowConfidence,
		HighConfidence: cfg.HighConfidence,
		LinkURL:        cfg.LinkURL,
	}, deps)

	r := telegram.NewRouter(bot, eng, led, log)
	r.Chat = chat
	if commitLog != nil {
		r.History = commitLog
	}

	// Updates from either mode are handled by one goroutine, in order.
	updates := make(chan tgbotapi.Update, 64)
	go func() {
		for upd := range updates {
			r.HandleUpdate(ctx, upd)
		}
	}()

	srv := &httpserver.Server{Parser: bot, Updates: updates, Log: log}
	if db != nil {
		srv.DB = db
	}
	addr := "0.0.0.0:" + cfg.Port

	// --- Choose mode: Webhook vs Polling ---
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL != "" {
		srv.Secret = shortHash(bot.Token)
		public := strings.TrimRight(webhookURL, "/") + httpserver.WebhookPath(srv.Secret)
		wh, err := tgbotapi.NewWebhook(public)
		if err != nil {
			return err
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		log.Info("webhook mode")
		return httpserver.Run(ctx, addr, srv.Handler(), log)
	}

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn("delete webhook", "err", err)
	}
	go func() {
		if err := httpserver.Run(ctx, addr, srv.Handler(), log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server", "err", err)
		}
	}()
	log.Info("polling mode")
	runPolling(ctx, bot, log, func(upd tgbotapi.Update) {
		select {
		case updates <- upd:
		case <-ctx.Done():
		}
	})
	return nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// ---------------- Helpers -----------------

func shortHash(s string) string {
	// FNV-1a of the token: stable, not secret-revealing.
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}

func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
