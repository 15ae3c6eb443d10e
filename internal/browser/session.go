package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

// Options configures the Chromium process behind a Session
type Options struct {
	Headless      bool
	ExecPath      string
	ActionTimeout time.Duration
	Proxy         string
}

// Session owns one Chromium process and its first tab. It is the handle every
// workflow step receives; nothing else keeps browser state.
type Session struct {
	ctx           context.Context
	cancel        context.CancelFunc
	actionTimeout time.Duration
}

var _ Page = (*Session)(nil)
var _ PDFPrinter = (*Session)(nil)

// NewSession starts Chromium and opens a blank tab
func NewSession(opts Options) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Debugf))

	cancel := func() {
		ctxCancel()
		allocCancel()
	}

	// The first Run allocates the browser; it must not use a derived timeout context.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	log.Infof("🌐 Browser started (headless=%t)", opts.Headless)

	return &Session{
		ctx:           ctx,
		cancel:        cancel,
		actionTimeout: timeout,
	}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	if s.cancel == nil {
		return nil
	}
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.cancel = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	log.Info("🌐 Browser closed")
	return nil
}

// run executes actions on the session tab bounded by timeout and by the caller's ctx
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.actionTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, s.actionTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

func (s *Session) Click(ctx context.Context, sel string) error {
	if err := s.run(ctx, s.actionTimeout, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", sel, err)
	}
	return nil
}

func (s *Session) IsVisible(ctx context.Context, sel string) (bool, error) {
	script, err := callScript(isVisibleScript, sel)
	if err != nil {
		return false, err
	}
	var visible bool
	if err := s.run(ctx, s.actionTimeout, chromedp.Evaluate(script, &visible)); err != nil {
		return false, fmt.Errorf("failed to check visibility of %s: %w", sel, err)
	}
	return visible, nil
}

func (s *Session) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%s not visible after %v: %w", sel, timeout, err)
	}
	return nil
}

func (s *Session) SelectByValue(ctx context.Context, sel, value string) error {
	script, err := callScript(selectValueScript, sel, value)
	if err != nil {
		return err
	}
	var problem string
	err = s.run(ctx, s.actionTimeout,
		chromedp.WaitReady(sel, chromedp.ByQuery),
		chromedp.Evaluate(script, &problem),
	)
	if err != nil {
		return fmt.Errorf("failed to select %q in %s: %w", value, sel, err)
	}
	if problem != "" {
		return fmt.Errorf("failed to select %q in %s: %s", value, sel, problem)
	}
	return nil
}

func (s *Session) InputText(ctx context.Context, sel, text string) error {
	err := s.run(ctx, s.actionTimeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to type into %s: %w", sel, err)
	}
	return nil
}

func (s *Session) Text(ctx context.Context, sel string) (string, error) {
	var text string
	if err := s.run(ctx, s.actionTimeout, chromedp.Text(sel, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", sel, err)
	}
	return text, nil
}

func (s *Session) InnerHTML(ctx context.Context, sel string) (string, error) {
	var html string
	if err := s.run(ctx, s.actionTimeout, chromedp.InnerHTML(sel, &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read inner HTML of %s: %w", sel, err)
	}
	return html, nil
}

func (s *Session) OuterHTML(ctx context.Context, sel string) (string, error) {
	var html string
	if err := s.run(ctx, s.actionTimeout, chromedp.OuterHTML(sel, &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read outer HTML of %s: %w", sel, err)
	}
	return html, nil
}

// PrintPDF loads html into a fresh tab of the same browser and prints it
func (s *Session) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.ctx)
	defer cancelTab()

	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("failed to open print tab: %w", err)
	}

	runCtx, cancel := context.WithTimeout(tabCtx, s.actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var pdf []byte
	err := chromedp.Run(runCtx,
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
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to print PDF: %w", err)
	}

	return pdf, nil
}

// callScript renders a call of a JS function literal with JSON-encoded arguments
func callScript(fn string, args ...string) (string, error) {
	encoded := make([]byte, 0, 64)
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("failed to encode script argument: %w", err)
		}
		if i > 0 {
			encoded = append(encoded, ',')
		}
		encoded = append(encoded, b...)
	}
	return fmt.Sprintf("(%s)(%s)", fn, encoded), nil
}
