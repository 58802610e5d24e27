package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"HammerScanner/internal/model"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const (
	binanceBaseURL      = "https://api.binance.com"
	binanceDefaultLimit = 100
)

// BinanceFetcher implements Fetcher using the Binance spot klines endpoint.
type BinanceFetcher struct {
	BaseURL string
	Client  *http.Client
	Now     func() time.Time
}

// NewBinanceFetcher creates a new fetcher with optional proxy support.
func NewBinanceFetcher(proxyURL string) *BinanceFetcher {
	return &BinanceFetcher{
		BaseURL: binanceBaseURL,
		Client:  newHTTPClient(proxyURL),
		Now:     time.Now,
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// binanceSymbol turns "BTC/USDT" into "BTCUSDT".
func binanceSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// FetchBars requests klines and drops the kline that is still open.
func (f *BinanceFetcher) FetchBars(ctx context.Context, symbol, interval string, limit int) (model.BarSeries, error) {
	if limit <= 0 {
		limit = binanceDefaultLimit
	}
	q := url.Values{}
	q.Set("symbol", binanceSymbol(symbol))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "binance fetch")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "binance read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("binance: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rows [][]interface{}
	if err := sonic.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(err, "binance decode")
	}

	now := f.Now()
	bars := make(model.BarSeries, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, errors.Errorf("binance: kline %d has %d fields", i, len(row))
		}
		closeTime := time.UnixMilli(int64(klineNumber(row[6])))
		if closeTime.After(now) {
			continue // still forming
		}
		bars = append(bars, model.Bar{
			Time:   time.UnixMilli(int64(klineNumber(row[0]))).UTC(),
			Open:   klineNumber(row[1]),
			High:   klineNumber(row[2]),
			Low:    klineNumber(row[3]),
			Close:  klineNumber(row[4]),
			Volume: klineNumber(row[5]),
		})
	}
	return Normalize(bars), nil
}

// klineNumber reads a kline field: times arrive as JSON numbers, prices as strings.
func klineNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
