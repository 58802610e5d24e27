package scanner

import (
	"context"
	"strings"
	"testing"
	"time"

	"HammerScanner/internal/collector"
	"HammerScanner/internal/metrics"
	"HammerScanner/internal/model"
	"HammerScanner/internal/notifier"
	"HammerScanner/internal/recorder"
	"HammerScanner/internal/strategy"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	sent []string
	fail bool
}

func (n *recordingNotifier) Send(_ context.Context, text string) error {
	if n.fail {
		return errors.New("telegram unavailable")
	}
	n.sent = append(n.sent, text)
	return nil
}

type memRecorder struct {
	runs []*recorder.RunRecord
}

func (m *memRecorder) RecordRun(rec *recorder.RunRecord) error {
	m.runs = append(m.runs, rec)
	return nil
}
func (m *memRecorder) RecentRuns(int) ([]model.ScanSummary, error) { return nil, nil }
func (m *memRecorder) Close() error                                { return nil }

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// hammerAfterDecline closes a 60-bar downtrend on open=100 close=101 low=95 high=101.5.
func hammerAfterDecline() model.BarSeries {
	bars := make(model.BarSeries, 60)
	for i := 0; i < 59; i++ {
		c := 200 - float64(i)*1.5
		bars[i] = model.Bar{Time: day0.AddDate(0, 0, i), Open: c + 0.5, Close: c, Low: c - 0.5, High: c + 1}
	}
	bars[59] = model.Bar{Time: day0.AddDate(0, 0, 59), Open: 100, Close: 101, Low: 95, High: 101.5}
	return bars
}

func duplicateTimestamps() model.BarSeries {
	bars := hammerAfterDecline()
	bars[30].Time = bars[29].Time
	return bars
}

func inst(symbol, category, source string) model.Instrument {
	return model.Instrument{Symbol: symbol, Category: category, Source: source, Interval: "1d"}
}

type fixture struct {
	scanner  *Scanner
	fetcher  *collector.MockFetcher
	notifier *recordingNotifier
	recorder *memRecorder
	metrics  *metrics.Metrics
}

func newFixture(universe []model.Instrument) *fixture {
	fetcher := &collector.MockFetcher{
		Bars: map[string]model.BarSeries{
			"HAMMER":    hammerAfterDecline(),
			"RISING":    collector.GenerateBars(100, 80, 24*time.Hour),
			"SHORT":     hammerAfterDecline()[:20],
			"MALFORMED": duplicateTimestamps(),
			"EMPTY":     {},
		},
		Errors: map[string]error{"DOWN": errors.New("connection refused")},
	}
	n := &recordingNotifier{}
	rec := &memRecorder{}
	m := metrics.NewMetrics()
	return &fixture{
		fetcher:  fetcher,
		notifier: n,
		recorder: rec,
		metrics:  m,
		scanner: &Scanner{
			Universe:  universe,
			Fetchers:  collector.Registry{"mock": fetcher},
			Evaluator: strategy.NewEvaluator(14, 50, 35, nil),
			Notifier:  n,
			Formatter: notifier.NewFormatter(nil),
			Recorder:  rec,
			Metrics:   m,
			Bars:      100,
		},
	}
}

func TestScan_IsolatesFailuresPerInstrument(t *testing.T) {
	universe := []model.Instrument{
		inst("DOWN", "CRYPTO", "mock"),
		inst("EMPTY", "CRYPTO", "mock"),
		inst("NOWHERE", "FOREX", "bogus"),
		inst("SHORT", "SAHAM_US", "mock"),
		inst("MALFORMED", "SAHAM_US", "mock"),
		inst("RISING", "GOLD", "mock"),
		inst("HAMMER", "CRYPTO", "mock"),
	}
	f := newFixture(universe)

	rep := f.scanner.Scan(context.Background())
	require.Len(t, rep.Results, len(universe))

	reasons := make([]string, 0, len(rep.Results))
	for _, res := range rep.Results {
		reasons = append(reasons, res.Reason)
	}
	assert.Equal(t, []string{
		ReasonRetrievalFailure,
		ReasonEmptyResult,
		ReasonUnknownSource,
		ReasonInsufficientHistory,
		ReasonMalformedSeries,
		"", "",
	}, reasons)

	for _, res := range rep.Results[:5] {
		assert.Equal(t, strategy.RejectNone, res.Rejection, res.Instrument.Symbol)
	}
	assert.Equal(t, OutcomeNoSignal, rep.Results[5].Outcome)
	assert.Equal(t, strategy.RejectMomentumAbove, rep.Results[5].Rejection)
	assert.Equal(t, OutcomeSignal, rep.Results[6].Outcome)
	require.NotNil(t, rep.Results[6].Signal)
	assert.Equal(t, 101.0, rep.Results[6].Signal.Price)

	// One fetch per reachable instrument, in universe order, never retried.
	assert.Equal(t, []string{"DOWN", "EMPTY", "SHORT", "MALFORMED", "RISING", "HAMMER"}, f.fetcher.Calls)

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "🚀 **SIGNAL CRYPTO**")
	assert.Contains(t, f.notifier.sent[0], "Price: `101.00`")

	c := rep.Counts()
	assert.Equal(t, 5, c[OutcomeSkipped])
	assert.Equal(t, 1, c[OutcomeSignal])
	assert.Equal(t, 1, c[OutcomeNoSignal])
	assert.Len(t, rep.Signals(), 1)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, "pattern", rep.Mode)
}

func TestScan_NotificationFailureDoesNotStopScan(t *testing.T) {
	f := newFixture([]model.Instrument{
		inst("HAMMER", "CRYPTO", "mock"),
		inst("RISING", "GOLD", "mock"),
	})
	f.notifier.fail = true

	rep := f.scanner.Scan(context.Background())
	require.Len(t, rep.Results, 2)
	assert.Equal(t, OutcomeSignal, rep.Results[0].Outcome)
	assert.Error(t, rep.Results[0].NotifyErr)
	assert.Equal(t, OutcomeNoSignal, rep.Results[1].Outcome)

	s := rep.Summary()
	assert.Equal(t, 1, s.NotifyErrs)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotifyFailures))
}

func TestScan_SummaryRecordAndMetrics(t *testing.T) {
	f := newFixture([]model.Instrument{
		inst("HAMMER", "CRYPTO", "mock"),
		inst("DOWN", "CRYPTO", "mock"),
		inst("SHORT", "SAHAM_INDO", "mock"),
	})
	f.scanner.Summary = true
	ticks := []time.Time{day0, day0.Add(42 * time.Second)}
	f.scanner.Now = func() time.Time {
		t := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return t
	}

	rep := f.scanner.Scan(context.Background())

	require.Len(t, f.notifier.sent, 2)
	summary := f.notifier.sent[1]
	assert.True(t, strings.HasPrefix(summary, "🔎 **SCAN SELESAI**"))
	assert.Contains(t, summary, "retrieval failure: 1")
	assert.Contains(t, summary, "insufficient history: 1")
	assert.Contains(t, summary, "Duration: 42s")

	require.Len(t, f.recorder.runs, 1)
	got := f.recorder.runs[0]
	assert.Equal(t, rep.RunID, got.Summary.RunID)
	assert.Equal(t, 3, got.Summary.Scanned)
	assert.Equal(t, 1, got.Summary.Signals)
	assert.Equal(t, 2, got.Summary.Skipped)
	assert.Equal(t, map[string]int{ReasonRetrievalFailure: 1, ReasonInsufficientHistory: 1}, got.SkipReasons)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ScansTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SignalsTotal.WithLabelValues("CRYPTO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SkipsTotal.WithLabelValues(ReasonRetrievalFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InstrumentsTotal.WithLabelValues("SAHAM_INDO", "skipped")))
}

func TestScan_SupportModeAdmitsLowBelowSupport(t *testing.T) {
	f := newFixture([]model.Instrument{inst("HAMMER", "CRYPTO", "mock")})
	f.scanner.Evaluator = strategy.NewEvaluator(14, 50, 35, &strategy.SupportGate{Lookback: 50, Tolerance: 0.015})

	rep := f.scanner.Scan(context.Background())
	require.Equal(t, OutcomeSignal, rep.Results[0].Outcome)
	assert.True(t, rep.Results[0].Signal.AtSupport)
	assert.Equal(t, "support", rep.Mode)
	assert.Contains(t, f.notifier.sent[0], strategy.NoteAtSupport)
}
