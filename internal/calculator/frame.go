package calculator

import (
	"math"

	"HammerScanner/internal/model"

	"github.com/pkg/errors"
)

const (
	DefaultMomentumPeriod = 14
	DefaultMinBars        = 50
)

// ErrInsufficientHistory means the series is too short to evaluate. Callers skip the instrument.
var ErrInsufficientHistory = errors.New("insufficient history")

// Options controls which indicators Compute derives.
type Options struct {
	MomentumPeriod  int // defaults to 14
	SupportLookback int // 0 disables the support column
	MinBars         int // minimum series length accepted, never below MomentumPeriod+1
}

func (o Options) withDefaults() Options {
	if o.MomentumPeriod <= 0 {
		o.MomentumPeriod = DefaultMomentumPeriod
	}
	return o
}

// RequiredBars is the shortest series Compute accepts.
func (o Options) RequiredBars() int {
	o = o.withDefaults()
	n := o.MomentumPeriod + 1
	if o.MinBars > n {
		n = o.MinBars
	}
	return n
}

// Frame is a bar series with index-aligned derived columns. Undefined values are NaN.
type Frame struct {
	Bars     model.BarSeries
	Momentum []float64
	Support  []float64 // nil when support is not configured
}

// Compute validates the series and derives momentum and, optionally, support.
func Compute(series model.BarSeries, opts Options) (*Frame, error) {
	opts = opts.withDefaults()
	if need := opts.RequiredBars(); len(series) < need {
		return nil, errors.Wrapf(ErrInsufficientHistory, "have %d bars, need %d", len(series), need)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	bars := make(model.BarSeries, len(series))
	copy(bars, series)

	momentum, err := RSISeries(bars.Closes(), opts.MomentumPeriod)
	if err != nil {
		return nil, errors.Wrap(err, "momentum")
	}
	f := &Frame{Bars: bars, Momentum: momentum}

	if opts.SupportLookback > 0 {
		support, err := PriorLowSupport(bars, opts.SupportLookback)
		if err != nil {
			return nil, errors.Wrap(err, "support")
		}
		f.Support = support
	}
	return f, nil
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int { return len(f.Bars) }

// MomentumAt returns the RSI at index i and whether it is defined.
func (f *Frame) MomentumAt(i int) (float64, bool) {
	return at(f.Momentum, i)
}

// SupportAt returns the support level at index i and whether it is defined.
func (f *Frame) SupportAt(i int) (float64, bool) {
	return at(f.Support, i)
}

func at(col []float64, i int) (float64, bool) {
	if i < 0 || i >= len(col) || math.IsNaN(col[i]) {
		return 0, false
	}
	return col[i], true
}
