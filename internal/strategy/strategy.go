package strategy

import (
	"HammerScanner/internal/calculator"
	"HammerScanner/internal/model"
)

// Evaluator bundles indicator options with the decision parameters so both
// operating modes share one code path.
type Evaluator struct {
	Options calculator.Options
	Params  Params
}

// NewEvaluator builds an evaluator. Passing a nil gate selects pattern-only mode.
func NewEvaluator(momentumPeriod, minBars int, threshold float64, gate *SupportGate) *Evaluator {
	opts := calculator.Options{MomentumPeriod: momentumPeriod, MinBars: minBars}
	if gate != nil {
		opts.SupportLookback = gate.Lookback
	}
	return &Evaluator{
		Options: opts,
		Params:  Params{MomentumThreshold: threshold, Support: gate},
	}
}

// Mode names the operating mode for logs and summaries.
func (e *Evaluator) Mode() string {
	if e.Params.Support != nil {
		return "support"
	}
	return "pattern"
}

// Run computes indicators for the series and evaluates its last bar.
// Errors are calculator.ErrInsufficientHistory or model.ErrMalformedSeries.
func (e *Evaluator) Run(series model.BarSeries, inst model.Instrument) (*model.Signal, Rejection, error) {
	frame, err := calculator.Compute(series, e.Options)
	if err != nil {
		return nil, RejectNone, err
	}
	sig, rej := Evaluate(frame, inst, e.Params)
	return sig, rej, nil
}
