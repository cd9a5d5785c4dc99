package application

import (
	"context"
	"time"

	"github.com/cardapio-digital/print-worker/internal/printing/domain"
)

type Store interface {
	// Restaurant loads the receipt letterhead fields.
	Restaurant(ctx context.Context, id string) (domain.RestaurantProfile, error)
	// ActivePrinterConfig returns the single active config for the
	// restaurant; ok is false when none is active.
	ActivePrinterConfig(ctx context.Context, restaurantID string) (cfg domain.PrinterConfig, ok bool, err error)
	// OrderItems loads line items joined to product display names.
	OrderItems(ctx context.Context, orderID string) ([]domain.LineItem, error)
	// MarkPrinted sets printed/printed_at and records the outcome
	// event in the outbox, atomically.
	MarkPrinted(ctx context.Context, orderID string, printedAt time.Time, result []byte, traceparent string) error
}

type PrintTransport interface {
	Print(ctx context.Context, buf []byte, cfg domain.PrinterConfig) error
}

type DocumentRenderer interface {
	Save(ctx context.Context, html, dir, shortID string) (path string, err error)
}

type Deduper interface {
	Claim(ctx context.Context, orderID string) (bool, error)
	// Release drops a claim so a redelivery can retry an order that
	// failed before being marked printed.
	Release(ctx context.Context, orderID string) error
}

type OrderFeed interface {
	Run(ctx context.Context, out chan<- domain.OrderEvent) error
}
