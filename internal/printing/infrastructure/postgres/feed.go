package postgres

import (
	"context"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardapio-digital/print-worker/internal/printing/domain"
)

// Feed subscribes to the orders insert channel (a NOTIFY fired by an
// insert trigger, payload `{"new": {...row...}}`) and pushes decoded
// events onto a bounded channel. The send blocks while the consumer
// is busy, which is the backpressure for bursts.
type Feed struct {
	log     *slog.Logger
	pool    *pgxpool.Pool
	channel string
}

func NewFeed(log *slog.Logger, pool *pgxpool.Pool, channel string) *Feed {
	return &Feed{log: log, pool: pool, channel: channel}
}

func (f *Feed) Run(ctx context.Context, out chan<- domain.OrderEvent) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+f.channel); err != nil {
		return fmt.Errorf("listen %s: %w", f.channel, err)
	}
	f.log.Info("subscribed to order feed", "channel", f.channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				f.log.Info("order feed unsubscribed")
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		var evt domain.OrderEvent
		if err := json.Unmarshal([]byte(n.Payload), &evt); err != nil {
			f.log.Error("bad feed payload, dropped", "err", err)
			continue
		}

		select {
		case out <- evt:
		case <-ctx.Done():
			f.log.Info("order feed unsubscribed")
			return nil
		}
	}
}
