package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"skillpulse/internal/api"
	"skillpulse/internal/batch"
	"skillpulse/internal/cache"
	"skillpulse/internal/config"
	"skillpulse/internal/notify"
	"skillpulse/internal/store"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "YAML config path (optional)")
		addr      = flag.String("addr", "", "HTTP bind address (overrides config)")
		dbPath    = flag.String("db", "", "SQLite DB path (overrides config)")
		autostart = flag.Bool("autostart", true, "start the batch scheduler on boot (overrides config when set)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "autostart" {
			cfg.Autostart = *autostart
		}
	})

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := store.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	repo := store.NewSQLite(db)
	kv := cache.NewLRU(cfg.CacheSize)
	notifier := notify.NewService(repo)

	jobs := batch.NewJobs(repo, repo, repo, kv, notifier, batch.Options{
		EngagementWindow:   cfg.EngagementWindow,
		ActivityWindow:     cfg.ActivityWindow,
		TrendingWindowDays: cfg.TrendingWindowDays,
		TrendingLimit:      cfg.TrendingLimit,
		LeaderboardLimit:   cfg.LeaderboardLimit,
		DigestMinUnread:    cfg.DigestMinUnread,
		WarmHitRatePct:     cfg.WarmHitRatePct,
	})

	processor := batch.NewProcessor(cfg.JoinTimeout)
	for _, t := range jobs.Tasks(cfg.Cadences) {
		if err := processor.Register(t); err != nil {
			log.Fatal().Err(err).Msg("register task")
		}
	}
	if cfg.Autostart {
		processor.Start()
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.NewServer(processor, jobs, kv)}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")
	processor.Stop()
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
}
