package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cardapio-digital/print-worker/internal/config"
	"github.com/cardapio-digital/print-worker/internal/printing/application"
	"github.com/cardapio-digital/print-worker/internal/printing/domain"
	"github.com/cardapio-digital/print-worker/internal/printing/infrastructure/escpos"
	workerhttp "github.com/cardapio-digital/print-worker/internal/printing/infrastructure/http"
	workerkafka "github.com/cardapio-digital/print-worker/internal/printing/infrastructure/kafka"
	"github.com/cardapio-digital/print-worker/internal/printing/infrastructure/pdf"
	"github.com/cardapio-digital/print-worker/internal/printing/infrastructure/postgres"
	"github.com/cardapio-digital/print-worker/pkg/idempotency"
	"github.com/cardapio-digital/print-worker/pkg/logging"
	"github.com/cardapio-digital/print-worker/pkg/outbox"
	"github.com/cardapio-digital/print-worker/pkg/shutdown"
	"github.com/cardapio-digital/print-worker/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "print-worker", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The pool dials lazily; fail fast on bad credentials or an
	// unreachable host instead of limping until the first query.
	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := pool.Ping(pingCtx); err != nil {
		pingCancel()
		log.Error("pg ping failed", "err", err)
		os.Exit(1)
	}
	pingCancel()

	store := postgres.NewStore(log, pool)
	var feed application.OrderFeed = postgres.NewFeed(log, pool, cfg.OrdersChannel)
	transport := escpos.NewPrinter(log)
	renderer := pdf.NewRenderer(log)

	var dedupe application.Deduper
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		dedupe = idempotency.NewStore(rdb, 24*time.Hour)
	} else {
		log.Warn("REDIS_ADDR unset, duplicate feed deliveries are not deduplicated")
	}

	fallback := domain.PrinterConfig{
		Host:    cfg.Printer.IP,
		Port:    cfg.Printer.Port,
		SavePDF: cfg.Printer.SavePDF,
		PDFDir:  cfg.Printer.PDFOutputDir,
		Retries: cfg.Printer.Retries,
		Timeout: time.Duration(cfg.Printer.TimeoutMs) * time.Millisecond,
	}

	svc := application.NewService(log, store, transport, renderer, dedupe, fallback)

	// Result event relay
	if cfg.KafkaAddr != "" {
		writer := workerkafka.NewWriter([]string{cfg.KafkaAddr})
		defer writer.Close()
		dispatch := outbox.NewDispatcher(log, writer, cfg.ResultTopic)
		relay := outbox.NewRelay(log, postgres.NewOutboxStore(log, pool), dispatch, "print-worker-"+uuid.NewString()[:8])
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("relay stopped with error", "err", err)
			}
		}()
	}

	// Change feed. A terminal feed error must take the process down
	// with a non-zero status, unlike a signal-driven stop.
	events := make(chan domain.OrderEvent, 64)
	feedErr := make(chan error, 1)
	go func() {
		defer close(events)
		if err := feed.Run(ctx, events); err != nil {
			log.Error("order feed error", "err", err)
			feedErr <- err
			cancel()
		}
	}()

	// Health + metrics
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      workerhttp.NewHandler(log, pool.Ping),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	if err := svc.Consume(ctx, events); err != nil {
		log.Error("consumer stopped with error", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	select {
	case <-feedErr:
		log.Error("print-worker exiting after feed failure")
		pool.Close()
		os.Exit(1)
	default:
	}
	log.Info("print-worker shutdown complete")
}
