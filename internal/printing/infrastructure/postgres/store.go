package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cardapio-digital/print-worker/internal/printing/domain"
)

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{log: log, pool: pool}
}

func (s *Store) Restaurant(ctx context.Context, id string) (domain.RestaurantProfile, error) {
	var p domain.RestaurantProfile
	err := s.pool.QueryRow(ctx,
		`SELECT name, COALESCE(address,''), COALESCE(phone,'') FROM restaurants WHERE id=$1`, id).
		Scan(&p.Name, &p.Address, &p.Phone)
	if err != nil {
		return domain.RestaurantProfile{}, err
	}
	return p, nil
}

func (s *Store) ActivePrinterConfig(ctx context.Context, restaurantID string) (domain.PrinterConfig, bool, error) {
	var cfg domain.PrinterConfig
	var timeoutMs int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(printer_ip,''), printer_port, save_pdf, COALESCE(pdf_output_dir,''), print_retries, print_timeout_ms
		 FROM printer_configs
		 WHERE restaurant_id=$1 AND active
		 LIMIT 1`, restaurantID).
		Scan(&cfg.Host, &cfg.Port, &cfg.SavePDF, &cfg.PDFDir, &cfg.Retries, &timeoutMs)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PrinterConfig{}, false, nil
	}
	if err != nil {
		return domain.PrinterConfig{}, false, err
	}
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond
	return cfg, true, nil
}

func (s *Store) OrderItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.name, oi.quantity, oi.unit_price, COALESCE(oi.observation,'')
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id=$1
		 ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		var price decimal.Decimal
		if err := rows.Scan(&it.Name, &it.Quantity, &price, &it.Observation); err != nil {
			return nil, err
		}
		it.UnitPrice = price
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkPrinted flips the printed flag and records the outcome event in
// the same transaction, so an order is never marked without its event.
func (s *Store) MarkPrinted(ctx context.Context, orderID string, printedAt time.Time, result []byte, traceparent string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx,
		`UPDATE orders SET printed = TRUE, printed_at = $2 WHERE id = $1`,
		orderID, printedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO outbox (aggregate_id, type, payload, traceparent, status)
		 VALUES ($1, 'OrderPrinted', $2, $3, 'pending')`,
		orderID, result, traceparent)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
