package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rpa/runner/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// Downloader fetches a URL into a local file
type Downloader interface {
	Download(ctx context.Context, url, path string) error
}

type downloader struct {
	rl         ratelimit.Limiter
	httpClient *resty.Client
	proxies    proxy.Supplier
}

func NewDownloader(httpClient *resty.Client, proxies proxy.Supplier, maxRequestsPerSecond int) Downloader {
	return &downloader{
		rl:         newLimiter(maxRequestsPerSecond),
		httpClient: httpClient,
		proxies:    proxies,
	}
}

// Download writes the response body to path, replacing any existing file
func (d *downloader) Download(ctx context.Context, url, path string) error {
	d.rl.Take()

	// spread downloads over the pool when more than one proxy survived validation
	if d.proxies != nil && d.proxies.Len() > 1 {
		d.httpClient.SetProxy(d.proxies.Get())
	}

	resp, err := d.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("download cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to download %s: %w", url, err)
	}

	if resp.IsError() {
		return fmt.Errorf("failed to download %s: HTTP %d %s", url, resp.StatusCode(), resp.Status())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if err := os.WriteFile(path, resp.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Debugf("Downloaded %s to %s (%d bytes)", url, path, len(resp.Bytes()))
	return nil
}
