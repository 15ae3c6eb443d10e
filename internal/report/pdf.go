package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rpa/runner/internal/browser"

	log "github.com/sirupsen/logrus"
)

// Renderer writes an HTML document as a PDF file
type Renderer interface {
	RenderPDF(ctx context.Context, html, path string) error
}

type pdfRenderer struct {
	printer browser.PDFPrinter
}

func NewPDFRenderer(printer browser.PDFPrinter) Renderer {
	return &pdfRenderer{printer: printer}
}

func (r *pdfRenderer) RenderPDF(ctx context.Context, html, path string) error {
	pdf, err := r.printer.PrintPDF(ctx, html)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Debugf("Wrote %s (%d bytes)", path, len(pdf))
	return nil
}
