package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardapio-digital/print-worker/internal/printing/domain"
	"github.com/cardapio-digital/print-worker/internal/printing/metrics"
)

type outcome string

const (
	outcomeSucceeded outcome = "succeeded"
	outcomeFailed    outcome = "failed"
	outcomeSkipped   outcome = "skipped"
)

// PrintResult is the outcome event recorded with the printed flag and
// relayed to the result topic.
type PrintResult struct {
	OrderID     string    `json:"order_id"`
	PrintStatus string    `json:"print_status"`
	PDFStatus   string    `json:"pdf_status"`
	PDFPath     string    `json:"pdf_path,omitempty"`
	PrintedAt   time.Time `json:"printed_at"`
}

// Service drives the per-order pipeline: resolve context, render,
// print, capture pdf, mark printed. Print and pdf failures are
// independent; neither stops the other nor the mark-printed step.
type Service struct {
	log       *slog.Logger
	store     Store
	transport PrintTransport
	pdf       DocumentRenderer
	dedupe    Deduper
	fallback  domain.PrinterConfig
	tracer    trace.Tracer

	now func() time.Time
}

// NewService wires the orchestrator. dedupe may be nil, in which case
// redelivered events are only guarded by the printed flag itself.
func NewService(log *slog.Logger, store Store, transport PrintTransport, pdf DocumentRenderer, dedupe Deduper, fallback domain.PrinterConfig) *Service {
	return &Service{
		log:       log,
		store:     store,
		transport: transport,
		pdf:       pdf,
		dedupe:    dedupe,
		fallback:  fallback,
		tracer:    otel.Tracer("print-worker"),
		now:       time.Now,
	}
}

// Consume drains the feed channel one event at a time. A failed order
// is logged and counted; it never stops the loop.
func (s *Service) Consume(ctx context.Context, events <-chan domain.OrderEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Process(ctx, evt); err != nil {
				s.log.Error("order processing failed", "order_id", shortID(evt.New.ID), "err", err)
				metrics.OrderFailures.Inc()
			}
		}
	}
}

func (s *Service) Process(ctx context.Context, evt domain.OrderEvent) error {
	rec := evt.New
	if rec.ID == "" {
		return errors.New("order event without id")
	}

	ctx, span := s.tracer.Start(ctx, "ProcessOrder")
	defer span.End()

	claimed := false
	if s.dedupe != nil {
		first, err := s.dedupe.Claim(ctx, rec.ID)
		if err != nil {
			s.log.Warn("dedupe check failed, processing anyway", "order_id", shortID(rec.ID), "err", err)
		} else if !first {
			s.log.Info("duplicate order event skipped", "order_id", shortID(rec.ID))
			return nil
		} else {
			claimed = true
		}
	}
	// A fatal error before anything was printed dead-ends the order:
	// give the claim back so a redelivery can retry instead of being
	// silently skipped for the claim TTL.
	fail := func(err error) error {
		if claimed {
			if rerr := s.dedupe.Release(ctx, rec.ID); rerr != nil {
				s.log.Warn("dedupe release failed", "order_id", shortID(rec.ID), "err", rerr)
			}
		}
		return err
	}

	profile, err := s.store.Restaurant(ctx, rec.RestaurantID)
	if err != nil {
		s.log.Warn("restaurant lookup failed, degraded letterhead", "order_id", shortID(rec.ID), "err", err)
		profile = domain.RestaurantProfile{}
	}

	cfg, ok, err := s.store.ActivePrinterConfig(ctx, rec.RestaurantID)
	if err != nil {
		s.log.Warn("printer config lookup failed, using fallback", "order_id", shortID(rec.ID), "err", err)
		cfg = s.fallback
	} else if !ok {
		s.log.Warn("no active printer config, using fallback", "order_id", shortID(rec.ID), "restaurant_id", rec.RestaurantID)
		cfg = s.fallback
	}

	var items []domain.LineItem
	if len(rec.Items) > 0 {
		items, err = domain.DecodeItems(rec.Items)
		if err != nil {
			return fail(err)
		}
	} else {
		items, err = s.store.OrderItems(ctx, rec.ID)
		if err != nil {
			return fail(fmt.Errorf("load items: %w", err))
		}
	}

	order := domain.NewOrder(rec, items)
	receipt, err := domain.BuildReceipt(order, profile, s.now())
	if err != nil {
		return fail(fmt.Errorf("render receipt: %w", err))
	}

	printStatus := outcomeSkipped
	if cfg.Host != "" {
		pctx, pspan := s.tracer.Start(ctx, "PrintThermal")
		perr := s.transport.Print(pctx, receipt.Bytes, cfg)
		pspan.End()
		if perr != nil {
			printStatus = outcomeFailed
			s.log.Error("thermal print failed", "order_id", order.ShortID(), "err", perr)
		} else {
			printStatus = outcomeSucceeded
		}
	} else {
		s.log.Info("no printer host configured, thermal print skipped", "order_id", order.ShortID())
	}
	metrics.PrintOutcomes.WithLabelValues(string(printStatus)).Inc()

	pdfStatus := outcomeSkipped
	pdfPath := ""
	if cfg.SavePDF {
		dctx, dspan := s.tracer.Start(ctx, "SavePDF")
		path, derr := s.pdf.Save(dctx, receipt.Document, cfg.PDFDir, order.ShortID())
		dspan.End()
		if derr != nil {
			pdfStatus = outcomeFailed
			s.log.Error("pdf capture failed", "order_id", order.ShortID(), "err", derr)
		} else {
			pdfStatus = outcomeSucceeded
			pdfPath = path
		}
	}
	metrics.PDFOutcomes.WithLabelValues(string(pdfStatus)).Inc()

	printedAt := s.now().UTC()
	payload, err := json.Marshal(PrintResult{
		OrderID:     rec.ID,
		PrintStatus: string(printStatus),
		PDFStatus:   string(pdfStatus),
		PDFPath:     pdfPath,
		PrintedAt:   printedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	// Past this point the claim stays even on error: the physical
	// printout already happened, and releasing would let a redelivery
	// print the order twice.
	if err := s.store.MarkPrinted(ctx, rec.ID, printedAt, payload, traceparent(ctx)); err != nil {
		return fmt.Errorf("mark printed: %w", err)
	}

	metrics.OrdersProcessed.Inc()
	s.log.Info("order processed",
		"order_id", order.ShortID(),
		"print_status", printStatus,
		"pdf_status", pdfStatus)
	return nil
}

func traceparent(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier["traceparent"]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
