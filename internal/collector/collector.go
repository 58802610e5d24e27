package collector

import (
	"context"
	"sort"
	"strings"
	"time"

	"HammerScanner/internal/model"

	"github.com/pkg/errors"
)

var (
	ErrEmptyResult   = errors.New("no bars returned")
	ErrUnknownSource = errors.New("unknown data source")
)

// Normalize sorts bars oldest first and keeps the later row when two share a
// timestamp. Rows that break the bar invariants are kept; Compute rejects them
// as a malformed series.
func Normalize(bars model.BarSeries) model.BarSeries {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := make(model.BarSeries, 0, len(bars))
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// Registry resolves the data-source kind named in the universe to a Fetcher.
type Registry map[string]Fetcher

// NewRegistry registers the Binance and Yahoo fetchers under their config names.
func NewRegistry(proxyURL string) Registry {
	binance := NewBinanceFetcher(proxyURL)
	yahoo := NewYahooFetcher(proxyURL)
	return Registry{
		"ccxt":     binance,
		"binance":  binance,
		"yfinance": yahoo,
		"yahoo":    yahoo,
	}
}

// Lookup returns the fetcher for a source kind.
func (r Registry) Lookup(source string) (Fetcher, error) {
	f, ok := r[strings.ToLower(source)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSource, "%q", source)
	}
	return f, nil
}

// Fetch retrieves and checks bars for one instrument. Empty results are ErrEmptyResult.
func (r Registry) Fetch(ctx context.Context, inst model.Instrument, limit int) (model.BarSeries, error) {
	f, err := r.Lookup(inst.Source)
	if err != nil {
		return nil, err
	}
	bars, err := f.FetchBars(ctx, inst.Symbol, inst.Interval, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", f.Name(), inst.Symbol)
	}
	if len(bars) == 0 {
		return nil, errors.Wrapf(ErrEmptyResult, "%s %s", f.Name(), inst.Symbol)
	}
	return bars, nil
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars   map[string]model.BarSeries
	Errors map[string]error
	Calls  []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbol, _ string, limit int) (model.BarSeries, error) {
	m.Calls = append(m.Calls, symbol)
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	bars := m.Bars[symbol]
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// GenerateBars builds a gently rising series for tests. Its closes only go up, so RSI stays at 100.
func GenerateBars(basePrice float64, count int, step time.Duration) model.BarSeries {
	bars := make(model.BarSeries, count)
	start := time.Now().Add(-time.Duration(count) * step).Truncate(step)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
