package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"rpa/runner/internal/browser"
	"rpa/runner/internal/client"
	"rpa/runner/internal/config"
	"rpa/runner/internal/domain"
	"rpa/runner/internal/report"

	log "github.com/sirupsen/logrus"
)

// artifactBuilder turns the receipt page of a confirmed order into files on disk
type artifactBuilder struct {
	page       browser.Page
	downloader client.Downloader
	renderer   report.Renderer
	cfg        config.OrdersConfig
}

func (b *artifactBuilder) build(ctx context.Context, orderNumber string) (*domain.OrderArtifact, error) {
	name := safeName(orderNumber)
	artifact := &domain.OrderArtifact{OrderNumber: orderNumber}

	receipt, err := b.page.InnerHTML(ctx, b.cfg.Selectors.Receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}
	artifact.ReceiptHTML = receipt

	images, err := b.downloadImages(ctx, name)
	if err != nil {
		return nil, err
	}
	artifact.Images = images

	if len(images) > 0 {
		merged := filepath.Join(b.cfg.ImagesDir, fmt.Sprintf("merged_robot_image_%s.png", name))
		if err := report.MergeToFile(images, b.cfg.PageWidth, merged); err != nil {
			return nil, fmt.Errorf("failed to merge robot images: %w", err)
		}
		artifact.MergedImage = merged
	} else {
		log.Warnf("⚠️ No robot preview images for order %s, receipt will have no picture", orderNumber)
	}

	html, err := report.ReceiptHTML(orderNumber, receipt, artifact.MergedImage)
	if err != nil {
		return nil, err
	}

	pdfPath := filepath.Join(b.cfg.PDFDir, name+".pdf")
	if err := b.renderer.RenderPDF(ctx, html, pdfPath); err != nil {
		return nil, err
	}
	artifact.PDFPath = pdfPath

	return artifact, nil
}

// downloadImages fetches the preview images one by one. An image that cannot be
// downloaded is left out of the merge.
func (b *artifactBuilder) downloadImages(ctx context.Context, name string) ([]string, error) {
	preview, err := b.page.OuterHTML(ctx, b.cfg.Selectors.Preview)
	if err != nil {
		return nil, fmt.Errorf("failed to read robot preview: %w", err)
	}

	location, err := b.page.Location(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page location: %w", err)
	}

	sources, err := client.ParseImageSources(preview, location)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(sources))
	for i, src := range sources {
		path := filepath.Join(b.cfg.ImagesDir, name, fmt.Sprintf("robot_part_%d.png", i))
		if err := b.downloader.Download(ctx, src, path); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warnf("⚠️ Skipping robot part %d of order %s: %v", i, name, err)
			continue
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// safeName makes s usable as a single path element
func safeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
	s = strings.Trim(s, ". ")
	if s == "" {
		return "untitled"
	}
	return s
}
