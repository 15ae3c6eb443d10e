package browser

import (
	"context"
	"time"
)

// Page is the subset of browser interactions the workflows need. Selectors are CSS
// queries. Every call blocks until the browser answers or the action times out.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)

	Click(ctx context.Context, sel string) error
	// IsVisible never waits: a missing element is reported as not visible.
	IsVisible(ctx context.Context, sel string) (bool, error)
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error

	SelectByValue(ctx context.Context, sel, value string) error
	InputText(ctx context.Context, sel, text string) error

	Text(ctx context.Context, sel string) (string, error)
	InnerHTML(ctx context.Context, sel string) (string, error)
	OuterHTML(ctx context.Context, sel string) (string, error)
}

// PDFPrinter renders a standalone HTML document to PDF bytes.
type PDFPrinter interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}
