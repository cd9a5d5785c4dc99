// Package escpos delivers receipt byte streams to thermal printers
// over raw TCP. The printer consumes bytes as pushed and closes the
// connection when done; an orderly close is the only success signal.
package escpos

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/cardapio-digital/print-worker/internal/printing/domain"
	"github.com/cardapio-digital/print-worker/pkg/retry"
)

const (
	defaultRetries = 3
	defaultTimeout = 10 * time.Second
	backoffStep    = 2 * time.Second
)

// PrintError reports exhausted retries, carrying the attempt count and
// the last underlying failure.
type PrintError struct {
	Attempts int
	Err      error
}

func (e *PrintError) Error() string {
	return fmt.Sprintf("print failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *PrintError) Unwrap() error { return e.Err }

type Printer struct {
	log    *slog.Logger
	dialer net.Dialer

	// backoff is overridable in tests.
	backoff retry.BackoffFunc
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewPrinter(log *slog.Logger) *Printer {
	return &Printer{log: log, backoff: retry.Linear(backoffStep)}
}

// Print sends the full buffer to cfg.Host:cfg.Port, retrying with
// linear backoff. Every attempt opens a fresh connection and resends
// the buffer from the start; the socket never outlives its attempt.
func (p *Printer) Print(ctx context.Context, buf []byte, cfg domain.PrinterConfig) error {
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	pol := retry.New(retries, p.backoff)
	if p.sleep != nil {
		pol.Sleep = p.sleep
	}

	var last error
	attempts := 0
	err := pol.Do(ctx, func(ctx context.Context) error {
		attempts++
		if aerr := p.attempt(ctx, buf, addr, timeout); aerr != nil {
			p.log.Warn("print attempt failed", "addr", addr, "attempt", attempts, "err", aerr)
			last = aerr
			return aerr
		}
		return nil
	})
	if err != nil {
		if last == nil {
			last = err
		}
		// attempts, not retries: a cancel during backoff ends the loop
		// before the budget is spent.
		return &PrintError{Attempts: attempts, Err: last}
	}
	return nil
}

func (p *Printer) attempt(ctx context.Context, buf []byte, addr string, timeout time.Duration) error {
	// The deadline covers the whole attempt from connection start:
	// dial, write and the wait for the printer to close.
	deadline := time.Now().Add(timeout)

	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, err := p.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	// Drain until EOF: the printer closing the stream after consuming
	// the data is what marks the attempt complete, not the write
	// returning.
	if _, err := io.Copy(io.Discard, conn); err != nil {
		return fmt.Errorf("await close: %w", err)
	}
	return nil
}
