// Package pdf captures the document-form receipt to disk through a
// headless browser session. Sessions are single-use per call: slower,
// but no state ever leaks between orders.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const renderTimeout = 30 * time.Second

// RenderError reports which stage of the capture failed.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("pdf %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

type Renderer struct {
	log *slog.Logger

	// render is swappable in tests to avoid launching a browser.
	render func(ctx context.Context, html string) ([]byte, error)
	now    func() time.Time
}

func NewRenderer(log *slog.Logger) *Renderer {
	r := &Renderer{log: log, now: time.Now}
	r.render = renderChrome
	return r
}

// Save writes `pedido-<shortID>-<epochms>.pdf` under dir, creating the
// directory if missing. The timestamp keeps repeated prints of the
// same order from overwriting each other.
func (r *Renderer) Save(ctx context.Context, html, dir, shortID string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &RenderError{Stage: "mkdir", Err: err}
	}

	name := fmt.Sprintf("pedido-%s-%d.pdf", shortID, r.now().UnixMilli())
	path := filepath.Join(dir, name)

	data, err := r.render(ctx, html)
	if err != nil {
		return "", &RenderError{Stage: "render", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &RenderError{Stage: "write", Err: err}
	}

	r.log.Info("pdf saved", "path", path)
	return path, nil
}

// renderChrome runs one throwaway browser session: launch, set
// content, wait for the page to settle, export A4 with backgrounds.
// All contexts are canceled on every exit path.
func renderChrome(ctx context.Context, html string) ([]byte, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, renderTimeout)
	defer cancelTimeout()

	var data []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4 in inches.
			data, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}
