package report

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestReceiptHTML(t *testing.T) {
	dir := t.TempDir()
	merged := writePNG(t, dir, "merged.png", 10, 10, color.White)

	html, err := ReceiptHTML("7", `<h3>Receipt</h3><div id="parts"><div>Head: 1</div></div>`, merged)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	require.Equal(t, "Order Details: 7", doc.Find("h1").Text())
	require.Equal(t, "Head: 1", strings.TrimSpace(doc.Find(".receipt #parts").Text()))

	src, ok := doc.Find("img.robot").Attr("src")
	require.True(t, ok)
	require.True(t, strings.HasPrefix(src, "data:image/png;base64,"))
}

func TestReceiptHTMLWithoutImage(t *testing.T) {
	html, err := ReceiptHTML("8", "<p>ok</p>", "")
	require.NoError(t, err)
	require.NotContains(t, html, "<img")
}

func TestReceiptHTMLEscapesOrderNumber(t *testing.T) {
	html, err := ReceiptHTML("<b>9</b>", "", "")
	require.NoError(t, err)
	require.Contains(t, html, "&lt;b&gt;9&lt;/b&gt;")
}

type fakePrinter struct {
	html string
	err  error
}

func (p *fakePrinter) PrintPDF(_ context.Context, html string) ([]byte, error) {
	p.html = html
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

func TestPDFRenderer(t *testing.T) {
	printer := &fakePrinter{}
	path := filepath.Join(t.TempDir(), "order_details", "7.pdf")

	require.NoError(t, NewPDFRenderer(printer).RenderPDF(context.Background(), "<p>x</p>", path))
	require.Equal(t, "<p>x</p>", printer.html)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(got))
}

func TestPDFRendererError(t *testing.T) {
	printer := &fakePrinter{err: errors.New("tab crashed")}
	path := filepath.Join(t.TempDir(), "7.pdf")

	err := NewPDFRenderer(printer).RenderPDF(context.Background(), "<p>x</p>", path)
	require.Error(t, err)
	require.NoFileExists(t, path)
}
