package strategy

import (
	"math"
	"testing"
	"time"

	"HammerScanner/internal/calculator"
	"HammerScanner/internal/model"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var btc = model.Instrument{Symbol: "BTC/USDT", Category: "CRYPTO", Source: "ccxt", Interval: "1d"}

// hammerFrame builds a 60-bar frame whose last bar is open=100 close=101 low=95 high=101.5,
// with the given last momentum and support. NaN support means the column is undefined there.
func hammerFrame(momentum, support float64) *calculator.Frame {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 60
	f := &calculator.Frame{
		Bars:     make(model.BarSeries, n),
		Momentum: make([]float64, n),
		Support:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		f.Bars[i] = model.Bar{Time: start.AddDate(0, 0, i), Open: 110, Close: 109, Low: 108, High: 111}
		f.Momentum[i] = math.NaN()
		f.Support[i] = math.NaN()
	}
	f.Bars[n-1] = model.Bar{Time: start.AddDate(0, 0, n-1), Open: 100, Close: 101, Low: 95, High: 101.5}
	f.Momentum[n-1] = momentum
	f.Support[n-1] = support
	return f
}

func TestEvaluate_ScenarioA_PatternOnlyAdmitted(t *testing.T) {
	sig, rej := Evaluate(hammerFrame(30, math.NaN()), btc, Params{MomentumThreshold: 35})
	require.Equal(t, Admitted, rej)
	require.NotNil(t, sig)
	assert.Equal(t, 101.0, sig.Price)
	assert.Equal(t, 30.0, sig.Momentum)
	assert.Equal(t, NotePattern, sig.Note)
	assert.False(t, sig.AtSupport)
	assert.Equal(t, "CRYPTO", sig.Category)
	assert.Equal(t, "1d", sig.Timeframe)
}

func TestEvaluate_ScenarioB_MomentumAbove(t *testing.T) {
	sig, rej := Evaluate(hammerFrame(36, math.NaN()), btc, Params{MomentumThreshold: 35})
	assert.Nil(t, sig)
	assert.Equal(t, RejectMomentumAbove, rej)
}

func TestEvaluate_MomentumAtThresholdAdmitted(t *testing.T) {
	_, rej := Evaluate(hammerFrame(35, math.NaN()), btc, Params{MomentumThreshold: 35})
	assert.Equal(t, Admitted, rej)
}

func TestEvaluate_ScenarioC_NearSupport(t *testing.T) {
	p := Params{MomentumThreshold: 35, Support: &SupportGate{Lookback: 50, Tolerance: 0.015}}
	sig, rej := Evaluate(hammerFrame(30, 94.0), btc, p)
	require.Equal(t, Admitted, rej)
	assert.Equal(t, NoteAtSupport, sig.Note)
	assert.True(t, sig.AtSupport)
	assert.Equal(t, 94.0, sig.Support)
}

func TestEvaluate_ScenarioD_FarFromSupport(t *testing.T) {
	p := Params{MomentumThreshold: 35, Support: &SupportGate{Lookback: 50, Tolerance: 0.015}}
	sig, rej := Evaluate(hammerFrame(30, 90.0), btc, p)
	assert.Nil(t, sig)
	assert.Equal(t, RejectSupportFar, rej)
}

// The gate only rejects distances above tolerance, so a low that pierced support passes.
func TestEvaluate_BelowSupportAdmitted(t *testing.T) {
	p := Params{MomentumThreshold: 35, Support: &SupportGate{Lookback: 50, Tolerance: 0.015}}
	_, rej := Evaluate(hammerFrame(30, 120.0), btc, p)
	assert.Equal(t, Admitted, rej)
}

func TestEvaluate_UndefinedValues(t *testing.T) {
	_, rej := Evaluate(hammerFrame(math.NaN(), 94), btc, Params{MomentumThreshold: 100})
	assert.Equal(t, RejectMomentumUndefined, rej)

	p := Params{MomentumThreshold: 35, Support: &SupportGate{Lookback: 50, Tolerance: 0.015}}
	_, rej = Evaluate(hammerFrame(30, math.NaN()), btc, p)
	assert.Equal(t, RejectSupportUndefined, rej)
}

func TestEvaluate_NotHammerShortCircuitsBeforeSupport(t *testing.T) {
	f := hammerFrame(20, math.NaN())
	f.Bars[59] = model.Bar{Time: f.Bars[59].Time, Open: 100, Close: 100, Low: 90, High: 100}
	p := Params{MomentumThreshold: 35, Support: &SupportGate{Lookback: 50, Tolerance: 0.015}}
	_, rej := Evaluate(f, btc, p)
	assert.Equal(t, RejectNotHammer, rej)
}

func TestEvaluate_ThresholdMonotonic(t *testing.T) {
	for _, m := range []float64{0, 12.5, 30, 34.99, 35} {
		f := hammerFrame(m, 94)
		p := Params{MomentumThreshold: 35, Support: &SupportGate{Lookback: 50, Tolerance: 0.015}}
		_, rej := Evaluate(f, btc, p)
		require.Equal(t, Admitted, rej, "momentum %v", m)
		for _, higher := range []float64{35.01, 40, 70, 100} {
			p.MomentumThreshold = higher
			_, rej = Evaluate(f, btc, p)
			assert.Equal(t, Admitted, rej, "momentum %v threshold %v", m, higher)
		}
	}
}

// decliningWithHammer is a steady downtrend closing on a hammer that dips well below prior lows.
func decliningWithHammer() model.BarSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make(model.BarSeries, 60)
	for i := 0; i < 59; i++ {
		c := 200 - float64(i)*1.5
		bars[i] = model.Bar{Time: start.AddDate(0, 0, i), Open: c + 0.5, Close: c, Low: c - 0.5, High: c + 1}
	}
	bars[59] = model.Bar{Time: start.AddDate(0, 0, 59), Open: 100, Close: 101, Low: 95, High: 101.5}
	return bars
}

func TestEvaluator_RunBothModes(t *testing.T) {
	series := decliningWithHammer()

	pattern := NewEvaluator(14, 50, 35, nil)
	sig, rej, err := pattern.Run(series, btc)
	require.NoError(t, err)
	require.Equal(t, Admitted, rej)
	assert.Equal(t, "pattern", pattern.Mode())
	assert.InDelta(t, 0.0, sig.Momentum, 1e-9)

	gated := NewEvaluator(14, 50, 35, &SupportGate{Lookback: 50, Tolerance: 0.015})
	sig, rej, err = gated.Run(series, btc)
	require.NoError(t, err)
	require.Equal(t, Admitted, rej)
	assert.Equal(t, "support", gated.Mode())
	assert.Equal(t, 112.5, sig.Support)
}

func TestEvaluator_RunShortSeries(t *testing.T) {
	e := NewEvaluator(14, 50, 35, &SupportGate{Lookback: 50, Tolerance: 0.015})
	sig, rej, err := e.Run(decliningWithHammer()[:40], btc)
	assert.True(t, errors.Is(err, calculator.ErrInsufficientHistory))
	assert.Nil(t, sig)
	assert.Equal(t, RejectNone, rej)
	assert.NotEqual(t, Admitted, rej)

	// Exactly the minimum: support for the last bar needs 50 prior bars, so it is undefined.
	_, rej, err = e.Run(decliningWithHammer()[10:], btc)
	require.NoError(t, err)
	assert.Equal(t, RejectSupportUndefined, rej)
}
