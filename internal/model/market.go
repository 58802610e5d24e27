package model

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// ErrMalformedSeries is returned when bars violate price or ordering invariants.
var ErrMalformedSeries = errors.New("malformed bar series")

// Bar represents a single candlestick bar.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Validate checks low <= min(open,close) <= max(open,close) <= high with positive prices.
func (b Bar) Validate() error {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if !(p > 0) || math.IsInf(p, 0) {
			return errors.Wrapf(ErrMalformedSeries, "non-positive price at %s", b.Time.Format(time.RFC3339))
		}
	}
	if b.Low > math.Min(b.Open, b.Close) || math.Max(b.Open, b.Close) > b.High {
		return errors.Wrapf(ErrMalformedSeries, "bar at %s outside its own range (o=%g h=%g l=%g c=%g)",
			b.Time.Format(time.RFC3339), b.Open, b.High, b.Low, b.Close)
	}
	return nil
}

// BarSeries is an ordered sequence of bars for one instrument, oldest first.
type BarSeries []Bar

// Validate checks every bar and that timestamps are strictly increasing.
func (s BarSeries) Validate() error {
	for i, b := range s {
		if err := b.Validate(); err != nil {
			return errors.Wrapf(err, "index %d", i)
		}
		if i > 0 && !b.Time.After(s[i-1].Time) {
			return errors.Wrapf(ErrMalformedSeries, "index %d: timestamp %s not after %s",
				i, b.Time.Format(time.RFC3339), s[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Last returns the most recent bar. The series must not be empty.
func (s BarSeries) Last() Bar {
	return s[len(s)-1]
}

// Closes extracts closing prices.
func (s BarSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Instrument is one entry of the scanned universe.
type Instrument struct {
	Symbol   string
	Category string
	Source   string
	Interval string
}

func (i Instrument) String() string {
	return i.Category + "/" + i.Symbol + "@" + i.Interval
}
