package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"HammerScanner/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns closed bars, oldest first. limit <= 0 means source default.
	FetchBars(ctx context.Context, symbol, interval string, limit int) (model.BarSeries, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
