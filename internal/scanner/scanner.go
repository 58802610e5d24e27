package scanner

import (
	"context"
	"time"

	"HammerScanner/internal/calculator"
	"HammerScanner/internal/collector"
	"HammerScanner/internal/logger"
	"HammerScanner/internal/metrics"
	"HammerScanner/internal/model"
	"HammerScanner/internal/notifier"
	"HammerScanner/internal/recorder"
	"HammerScanner/internal/strategy"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Outcome classifies what happened to one instrument during a scan.
type Outcome int

const (
	OutcomeNoSignal Outcome = iota
	OutcomeSignal
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSignal:
		return "signal"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "no_signal"
	}
}

// Skip reasons.
const (
	ReasonUnknownSource       = "unknown source"
	ReasonRetrievalFailure    = "retrieval failure"
	ReasonEmptyResult         = "empty result"
	ReasonInsufficientHistory = "insufficient history"
	ReasonMalformedSeries     = "malformed series"
)

// Result is the per-instrument record of a scan.
type Result struct {
	Instrument model.Instrument
	Outcome    Outcome
	Reason     string // set when skipped
	Err        error  // underlying skip cause
	Rejection  strategy.Rejection
	Signal     *model.Signal
	NotifyErr  error
}

// Report collects the results of one scan invocation, in universe order.
type Report struct {
	RunID      string
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// Counts returns per-outcome totals.
func (r *Report) Counts() map[Outcome]int {
	out := make(map[Outcome]int, 3)
	for _, res := range r.Results {
		out[res.Outcome]++
	}
	return out
}

// SkipReasons tallies skipped instruments by reason.
func (r *Report) SkipReasons() map[string]int {
	out := make(map[string]int)
	for _, res := range r.Results {
		if res.Outcome == OutcomeSkipped {
			out[res.Reason]++
		}
	}
	return out
}

// Signals returns the emitted signals in scan order.
func (r *Report) Signals() []*model.Signal {
	var out []*model.Signal
	for _, res := range r.Results {
		if res.Signal != nil {
			out = append(out, res.Signal)
		}
	}
	return out
}

// Summary reduces the report to its aggregate counts.
func (r *Report) Summary() model.ScanSummary {
	c := r.Counts()
	s := model.ScanSummary{
		RunID:      r.RunID,
		Mode:       r.Mode,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Scanned:    len(r.Results),
		Signals:    c[OutcomeSignal],
		NoSignal:   c[OutcomeNoSignal],
		Skipped:    c[OutcomeSkipped],
	}
	for _, res := range r.Results {
		if res.NotifyErr != nil {
			s.NotifyErrs++
		}
	}
	return s
}

// Scanner walks the instrument universe once per Scan call.
type Scanner struct {
	Universe  []model.Instrument
	Fetchers  collector.Registry
	Evaluator *strategy.Evaluator
	Notifier  notifier.Notifier
	Formatter *notifier.Formatter
	Recorder  recorder.Recorder // optional
	Metrics   *metrics.Metrics  // optional
	Bars      int
	Summary   bool
	Now       func() time.Time
}

func (s *Scanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Scan evaluates every instrument sequentially. No instrument failure aborts the scan.
// A cancelled ctx makes the remaining fetches fail and be skipped.
func (s *Scanner) Scan(ctx context.Context) *Report {
	rep := &Report{
		RunID:     uuid.NewString(),
		Mode:      s.Evaluator.Mode(),
		StartedAt: s.now(),
		Results:   make([]Result, 0, len(s.Universe)),
	}
	logger.Infof("scan started: run=%s mode=%s instruments=%d", rep.RunID, rep.Mode, len(s.Universe))

	for _, inst := range s.Universe {
		res := s.scanOne(ctx, inst)
		rep.Results = append(rep.Results, res)
		s.observe(res)
	}

	rep.FinishedAt = s.now()
	summary := rep.Summary()
	logger.Infof("scan finished: run=%s scanned=%d signals=%d skipped=%d took=%s",
		rep.RunID, summary.Scanned, summary.Signals, summary.Skipped, summary.Duration())

	if s.Summary {
		if err := s.Notifier.Send(ctx, s.Formatter.FormatSummary(summary, rep.SkipReasons())); err != nil {
			logger.Errorf("send scan summary: %v", err)
			s.notifyFailed()
		}
	}
	if s.Recorder != nil {
		if err := s.Recorder.RecordRun(&recorder.RunRecord{Summary: summary, SkipReasons: rep.SkipReasons()}); err != nil {
			logger.Errorf("record scan run: %v", err)
		}
	}
	if s.Metrics != nil {
		s.Metrics.ScansTotal.Inc()
		s.Metrics.ScanDuration.Observe(summary.Duration().Seconds())
		s.Metrics.LastScanUnix.Set(float64(rep.FinishedAt.Unix()))
	}
	return rep
}

func (s *Scanner) scanOne(ctx context.Context, inst model.Instrument) Result {
	res := Result{Instrument: inst}

	series, err := s.Fetchers.Fetch(ctx, inst, s.Bars)
	if err != nil {
		return skip(res, fetchReason(err), err)
	}

	sig, rej, err := s.Evaluator.Run(series, inst)
	switch {
	case errors.Is(err, calculator.ErrInsufficientHistory):
		return skip(res, ReasonInsufficientHistory, err)
	case errors.Is(err, model.ErrMalformedSeries):
		return skip(res, ReasonMalformedSeries, err)
	case err != nil:
		return skip(res, ReasonMalformedSeries, err)
	}

	res.Rejection = rej
	if sig == nil {
		res.Outcome = OutcomeNoSignal
		logger.Debugf("%s: %s", inst, rej)
		return res
	}

	res.Outcome = OutcomeSignal
	res.Signal = sig
	if err := s.Notifier.Send(ctx, s.Formatter.FormatSignal(sig)); err != nil {
		res.NotifyErr = err
		logger.Errorf("send signal %s: %v", inst.Symbol, err)
		s.notifyFailed()
	} else {
		logger.Infof("signal sent: %s", inst.Symbol)
	}
	return res
}

func fetchReason(err error) string {
	switch {
	case errors.Is(err, collector.ErrUnknownSource):
		return ReasonUnknownSource
	case errors.Is(err, collector.ErrEmptyResult):
		return ReasonEmptyResult
	default:
		return ReasonRetrievalFailure
	}
}

func skip(res Result, reason string, err error) Result {
	res.Outcome = OutcomeSkipped
	res.Reason = reason
	res.Err = err
	logger.Warnf("skip %s: %s: %v", res.Instrument, reason, err)
	return res
}

func (s *Scanner) observe(res Result) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.InstrumentsTotal.WithLabelValues(res.Instrument.Category, res.Outcome.String()).Inc()
	switch res.Outcome {
	case OutcomeSkipped:
		s.Metrics.SkipsTotal.WithLabelValues(res.Reason).Inc()
	case OutcomeSignal:
		s.Metrics.SignalsTotal.WithLabelValues(res.Instrument.Category).Inc()
	}
}

func (s *Scanner) notifyFailed() {
	if s.Metrics != nil {
		s.Metrics.NotifyFailures.Inc()
	}
}
