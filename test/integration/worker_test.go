package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cardapio-digital/print-worker/internal/printing/domain"
	"github.com/cardapio-digital/print-worker/internal/printing/infrastructure/postgres"
	"github.com/cardapio-digital/print-worker/pkg/idempotency"
	"github.com/cardapio-digital/print-worker/pkg/logging"
)

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run container tests")
	}
}

func setupDB(t *testing.T, ctx context.Context, pgURL string) *pgxpool.Pool {
	t.Helper()

	schema, err := os.ReadFile("../../deploy/schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	// Simple protocol so the multi-statement schema file applies in
	// one round trip.
	cfg, err := pgxpool.ParseConfig(pgURL)
	if err != nil {
		t.Fatalf("parse pg url: %v", err)
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pg connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return pool
}

func seed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	stmts := []string{
		`INSERT INTO restaurants (id, name, address, phone) VALUES ('r1', 'Cantina da Praça', 'Rua A, 123', '11 5555-0000')`,
		`INSERT INTO products (id, restaurant_id, name) VALUES ('p1', 'r1', 'X-Burger'), ('p2', 'r1', 'Coke')`,
		`INSERT INTO printer_configs (restaurant_id, printer_ip, printer_port, save_pdf, pdf_output_dir, print_retries, print_timeout_ms, active)
		 VALUES ('r1', '10.0.0.5', 9100, TRUE, '/tmp/pdfs', 2, 500, TRUE)`,
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestStoreRoundTrip(t *testing.T) {
	requireIntegration(t)

	ctx := context.Background()
	env, err := Setup(ctx)
	if err != nil {
		t.Fatalf("setup containers: %v", err)
	}
	defer env.Cancel()

	pool := setupDB(t, ctx, env.PGURL)
	seed(t, ctx, pool)

	log := logging.New("error")
	store := postgres.NewStore(log, pool)

	profile, err := store.Restaurant(ctx, "r1")
	if err != nil {
		t.Fatalf("restaurant: %v", err)
	}
	if profile.Name != "Cantina da Praça" {
		t.Errorf("profile = %+v", profile)
	}

	cfg, ok, err := store.ActivePrinterConfig(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("printer config: ok=%v err=%v", ok, err)
	}
	if cfg.Host != "10.0.0.5" || cfg.Retries != 2 || cfg.Timeout != 500*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, ok, err := store.ActivePrinterConfig(ctx, "missing"); err != nil || ok {
		t.Errorf("missing restaurant should yield ok=false, got ok=%v err=%v", ok, err)
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO orders (id, restaurant_id, customer_name, total_amount) VALUES ('o1', 'r1', 'Maria', 37.5)`); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price, observation)
		 VALUES ('o1', 'p1', 2, 15.0, NULL), ('o1', 'p2', 1, 7.5, 'gelada')`); err != nil {
		t.Fatalf("insert items: %v", err)
	}

	items, err := store.OrderItems(ctx, "o1")
	if err != nil {
		t.Fatalf("order items: %v", err)
	}
	if len(items) != 2 || items[0].Name != "X-Burger" || items[1].Observation != "gelada" {
		t.Errorf("items = %+v", items)
	}

	if err := store.MarkPrinted(ctx, "o1", time.Now().UTC(), []byte(`{"order_id":"o1","print_status":"succeeded"}`), ""); err != nil {
		t.Fatalf("mark printed: %v", err)
	}

	var printed bool
	if err := pool.QueryRow(ctx, `SELECT printed FROM orders WHERE id='o1'`).Scan(&printed); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !printed {
		t.Error("order should be printed")
	}

	outboxStore := postgres.NewOutboxStore(log, pool)
	events, err := outboxStore.LockBatch(ctx, "relay-test", 10, 5*time.Second)
	if err != nil {
		t.Fatalf("lock batch: %v", err)
	}
	if len(events) != 1 || events[0].Type != "OrderPrinted" {
		t.Fatalf("events = %+v", events)
	}
	if err := outboxStore.MarkSent(ctx, []int64{events[0].ID}); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	// A row stranded in_progress by a crashed relay is reclaimed once
	// its lease runs out.
	if _, err := pool.Exec(ctx,
		`UPDATE outbox SET status='in_progress', relay_id='dead-relay', lease_until=now() - interval '1 minute' WHERE id=$1`,
		events[0].ID); err != nil {
		t.Fatalf("strand row: %v", err)
	}
	reclaimed, err := outboxStore.LockBatch(ctx, "relay-test-2", 10, 5*time.Second)
	if err != nil {
		t.Fatalf("lock batch after lease expiry: %v", err)
	}
	if len(reclaimed) != 1 || reclaimed[0].ID != events[0].ID {
		t.Fatalf("reclaimed = %+v, want the stranded row", reclaimed)
	}
}

func TestFeedDeliversInsertedOrders(t *testing.T) {
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	env, err := Setup(ctx)
	if err != nil {
		t.Fatalf("setup containers: %v", err)
	}
	defer env.Cancel()

	pool := setupDB(t, ctx, env.PGURL)
	seed(t, ctx, pool)

	feed := postgres.NewFeed(logging.New("error"), pool, "orders_new")
	events := make(chan domain.OrderEvent, 4)
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()

	errCh := make(chan error, 1)
	go func() {
		errCh <- feed.Run(feedCtx, events)
	}()

	// Give the LISTEN a moment to land before inserting.
	time.Sleep(500 * time.Millisecond)

	if _, err := pool.Exec(ctx,
		`INSERT INTO orders (id, restaurant_id, customer_name, total_amount) VALUES ('o2', 'r1', 'João', 12.5)`); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	select {
	case evt := <-events:
		if evt.New.ID != "o2" || evt.New.CustomerName != "João" {
			t.Errorf("event = %+v", evt.New)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no feed event within 10s")
	}

	stopFeed()
	if err := <-errCh; err != nil {
		t.Errorf("feed returned error on shutdown: %v", err)
	}
}

func TestIdempotencyClaim(t *testing.T) {
	requireIntegration(t)

	ctx := context.Background()
	env, err := Setup(ctx)
	if err != nil {
		t.Fatalf("setup containers: %v", err)
	}
	defer env.Cancel()

	rdb := goredis.NewClient(&goredis.Options{Addr: strings.TrimPrefix(env.RedisAddr, "redis://")})
	defer rdb.Close()

	guard := idempotency.NewStore(rdb, time.Minute)
	first, err := guard.Claim(ctx, "o1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !first {
		t.Error("first claim should win")
	}
	second, err := guard.Claim(ctx, "o1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if second {
		t.Error("second claim must lose")
	}

	if err := guard.Release(ctx, "o1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := guard.Claim(ctx, "o1")
	if err != nil {
		t.Fatalf("claim after release: %v", err)
	}
	if !again {
		t.Error("a released order must be claimable again")
	}
}
