package service

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rpa/runner/internal/config"

	"github.com/disintegration/imaging"
)

var errNotVisible = errors.New("element not visible")

// fakePage is an in-memory browser.Page. The error banner is visible for the
// first bannerChecks visibility checks, or forever when bannerChecks is negative.
type fakePage struct {
	mu sync.Mutex

	location     string
	visible      map[string]bool
	banner       string
	bannerChecks int
	clickErr     map[string]error
	texts        map[string]string
	inner        map[string]string
	outer        map[string]string
	navigateErr  error
	beforeClick  func(sel string)

	clicks      map[string]int
	navigations []string
	selected    map[string]string
	inputs      map[string]string
}

func newFakePage() *fakePage {
	return &fakePage{
		location: "https://robots.test/#/robot-order",
		visible:  make(map[string]bool),
		clickErr: make(map[string]error),
		texts:    make(map[string]string),
		inner:    make(map[string]string),
		outer:    make(map[string]string),
		clicks:   make(map[string]int),
		selected: make(map[string]string),
		inputs:   make(map[string]string),
	}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	return p.navigateErr
}

func (p *fakePage) Location(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *fakePage) Click(_ context.Context, sel string) error {
	if p.beforeClick != nil {
		p.beforeClick(sel)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.clickErr[sel]; err != nil {
		return err
	}
	p.clicks[sel]++
	return nil
}

func (p *fakePage) IsVisible(_ context.Context, sel string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.banner != "" && sel == p.banner {
		if p.bannerChecks < 0 {
			return true, nil
		}
		if p.bannerChecks > 0 {
			p.bannerChecks--
			return true, nil
		}
		return false, nil
	}
	return p.visible[sel], nil
}

func (p *fakePage) WaitVisible(ctx context.Context, sel string, _ time.Duration) error {
	visible, _ := p.IsVisible(ctx, sel)
	if !visible {
		return errNotVisible
	}
	return nil
}

func (p *fakePage) SelectByValue(_ context.Context, sel, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected[sel] = value
	return nil
}

func (p *fakePage) InputText(_ context.Context, sel, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputs[sel] = text
	return nil
}

func (p *fakePage) Text(_ context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texts[sel], nil
}

func (p *fakePage) InnerHTML(_ context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inner[sel], nil
}

func (p *fakePage) OuterHTML(_ context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outer[sel], nil
}

func (p *fakePage) clickCount(sel string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks[sel]
}

// fakeDownloader writes a small PNG for every URL instead of fetching it
type fakeDownloader struct {
	urls []string
	fail map[string]bool
}

func (d *fakeDownloader) Download(_ context.Context, url, path string) error {
	d.urls = append(d.urls, url)
	if d.fail[url] {
		return errors.New("HTTP 404")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return imaging.Save(imaging.New(40, 20, color.NRGBA{R: 200, A: 255}), path)
}

type fakePrinter struct {
	documents []string
}

func (p *fakePrinter) PrintPDF(_ context.Context, html string) ([]byte, error) {
	p.documents = append(p.documents, html)
	return []byte("%PDF-1.4 fake"), nil
}

type fakeTranslator struct {
	out string
	err error
	got []string
}

func (t *fakeTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	t.got = append(t.got, text)
	if t.err != nil {
		return "", t.err
	}
	return t.out, nil
}

func testSelectors() config.OrderSelectors {
	return config.OrderSelectors{
		Modal:         ".btn-dark",
		Head:          "select.custom-select",
		BodyRadioName: "body",
		Legs:          `input[type="number"].form-control`,
		Address:       `input[type="text"].form-control`,
		Submit:        "#order",
		OrderAnother:  "#order-another",
		ErrorBanner:   ".alert.alert-danger",
		Receipt:       "#receipt",
		Preview:       "#robot-preview-image",
	}
}

func testOrdersConfig(dir string) config.OrdersConfig {
	return config.OrdersConfig{
		URL:        "https://robots.test/#/robot-order",
		MaxRetries: 10,
		ImagesDir:  filepath.Join(dir, "images"),
		PDFDir:     filepath.Join(dir, "pdf"),
		PageWidth:  600,
		Selectors:  testSelectors(),
	}
}
