package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/cardapio-digital/print-worker/pkg/tracing"
)

// Writer publishes print outcome events. Trace context from the
// per-order span is injected into each message's headers.
type Writer struct {
	w *kafka.Writer
}

func NewWriter(brokers []string) *Writer {
	return &Writer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for i := range msgs {
		msgs[i].Headers = tracing.InjectKafkaHeaders(ctx, msgs[i].Headers)
	}
	return w.w.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.w.Close()
}
