package proxy

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

// Supplier hands out proxies in round-robin order. An empty string means a direct connection.
type Supplier interface {
	Get() string
	Len() int
}

type supplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// Check reports whether a proxy can reach testURL
type Check func(ctx context.Context, proxyURL, testURL string) bool

// NewSupplier keeps the proxies that pass the check, preserving their configured order.
// A nil check uses an HTTP GET through the proxy.
func NewSupplier(ctx context.Context, proxies []string, testURL string, check Check) Supplier {
	if len(proxies) == 0 {
		return &supplier{}
	}
	if check == nil {
		check = isProxyValid
	}

	log.Infof("🔄 Testing %d proxies...", len(proxies))

	working := make([]bool, len(proxies))
	g := new(errgroup.Group)
	g.SetLimit(8)
	for i, proxyURL := range proxies {
		g.Go(func() error {
			working[i] = check(ctx, proxyURL, testURL)
			if working[i] {
				log.Infof("✅ Proxy %s is working", proxyURL)
			} else {
				log.Warnf("❌ Proxy %s is not working, skipping", proxyURL)
			}
			return nil
		})
	}
	_ = g.Wait()

	valid := make([]string, 0, len(proxies))
	for i, ok := range working {
		if ok {
			valid = append(valid, proxies[i])
		}
	}

	log.Infof("✅ Proxy supplier initialized with %d working proxies out of %d tested", len(valid), len(proxies))
	return &supplier{proxies: valid}
}

// Get returns the next proxy URL in round-robin fashion
func (p *supplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func (p *supplier) Len() int {
	return len(p.proxies)
}

func isProxyValid(ctx context.Context, proxyURL, testURL string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0).
		SetProxy(proxyURL)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Get(testURL)
	if err != nil {
		log.Debugf("Proxy test failed for %s: %v", proxyURL, err)
		return false
	}

	if resp.IsError() {
		log.Debugf("Proxy test failed for %s with status: %s", proxyURL, resp.Status())
		return false
	}

	return true
}
