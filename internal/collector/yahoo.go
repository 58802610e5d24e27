package collector

import (
	"context"
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

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher reads the Yahoo Finance v8 chart endpoint.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
	Aliases map[string]string // config symbol -> Yahoo ticker
	Now     func() time.Time
}

func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL),
		Aliases: map[string]string{
			"XAUUSD": "GC=F",
			"IHSG":   "^JKSE",
		},
		Now: time.Now,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) ticker(symbol string) string {
	if t, ok := f.Aliases[symbol]; ok {
		return t
	}
	return symbol
}

// chartResponse keeps quote columns as pointers: Yahoo sends null for bars
// without trades.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		CurrentTradingPeriod struct {
			Regular tradingPeriod `json:"regular"`
		} `json:"currentTradingPeriod"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quoteColumns `json:"quote"`
	} `json:"indicators"`
}

type tradingPeriod struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// barEnd is when the bar opened at start closes: one step later, or the end of
// the current session when that comes first.
func (r *chartResult) barEnd(start time.Time, step time.Duration) time.Time {
	end := start.Add(step)
	p := r.Meta.CurrentTradingPeriod.Regular
	if p.End <= p.Start {
		return end
	}
	sessionOpen, sessionClose := time.Unix(p.Start, 0), time.Unix(p.End, 0)
	if !start.Before(sessionOpen) && start.Before(sessionClose) && sessionClose.Before(end) {
		return sessionClose
	}
	return end
}

// intervalStep turns a Yahoo interval label ("15m", "1h", "1d", "1wk", "1mo") into a bar length.
// Unknown labels give zero.
func intervalStep(interval string) time.Duration {
	i := strings.IndexFunc(interval, func(r rune) bool { return r < '0' || r > '9' })
	if i <= 0 {
		return 0
	}
	n, err := strconv.Atoi(interval[:i])
	if err != nil {
		return 0
	}
	var unit time.Duration
	switch interval[i:] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "wk":
		unit = 7 * 24 * time.Hour
	case "mo":
		unit = 30 * 24 * time.Hour
	default:
		return 0
	}
	return time.Duration(n) * unit
}

type quoteColumns struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

// row returns the i-th bar, false when any price is null or missing.
func (q quoteColumns) row(i int) (o, h, l, c, v float64, ok bool) {
	cell := func(col []*float64) (float64, bool) {
		if i >= len(col) || col[i] == nil {
			return 0, false
		}
		return *col[i], true
	}
	var okO, okH, okL, okC bool
	o, okO = cell(q.Open)
	h, okH = cell(q.High)
	l, okL = cell(q.Low)
	c, okC = cell(q.Close)
	v, _ = cell(q.Volume)
	return o, h, l, c, v, okO && okH && okL && okC
}

// yahooRange is one month for intraday intervals and six months otherwise.
func yahooRange(interval string) string {
	if strings.ContainsAny(interval, "hm") && !strings.HasSuffix(interval, "mo") {
		return "1mo"
	}
	return "6mo"
}

func (f *YahooFetcher) chart(ctx context.Context, symbol, interval string) (*chartResult, error) {
	q := url.Values{}
	q.Set("interval", interval)
	q.Set("range", yahooRange(interval))
	endpoint := f.BaseURL + "/v8/finance/chart/" + url.PathEscape(f.ticker(symbol)) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "yahoo request")
	}
	// the endpoint rejects Go's default agent
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "yahoo fetch")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "yahoo read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var payload chartResponse
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "yahoo decode")
	}
	if e := payload.Chart.Error; e != nil {
		return nil, errors.Errorf("yahoo: %s: %s", e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, ErrEmptyResult
	}
	return &payload.Chart.Result[0], nil
}

// FetchBars downloads the chart for the interval and keeps the last limit closed bars.
// Null rows and the bar still forming are dropped.
func (f *YahooFetcher) FetchBars(ctx context.Context, symbol, interval string, limit int) (model.BarSeries, error) {
	res, err := f.chart(ctx, symbol, interval)
	if err != nil {
		return nil, err
	}
	if len(res.Timestamp) == 0 || len(res.Indicators.Quote) == 0 {
		return nil, ErrEmptyResult
	}

	now := f.Now()
	step := intervalStep(interval)
	quote := res.Indicators.Quote[0]
	bars := make(model.BarSeries, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		o, h, l, c, v, ok := quote.row(i)
		if !ok {
			continue
		}
		start := time.Unix(ts, 0).UTC()
		if step > 0 && res.barEnd(start, step).After(now) {
			continue // still forming
		}
		bars = append(bars, model.Bar{Time: start, Open: o, High: h, Low: l, Close: c, Volume: v})
	}

	bars = Normalize(bars)
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}
