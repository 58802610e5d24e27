package strategy

import (
	"fmt"

	"HammerScanner/internal/calculator"
	"HammerScanner/internal/model"
	"HammerScanner/internal/pattern"
)

const (
	NotePattern   = "Hammer + RSI oversold"
	NoteAtSupport = "Hammer di area Support"
)

// Rejection tells why the latest bar was not admitted. The zero value means
// the bar was never evaluated.
type Rejection int

const (
	RejectNone Rejection = iota
	Admitted
	RejectMomentumUndefined
	RejectMomentumAbove
	RejectNotHammer
	RejectSupportUndefined
	RejectSupportFar
)

func (r Rejection) String() string {
	switch r {
	case RejectNone:
		return "not evaluated"
	case Admitted:
		return "admitted"
	case RejectMomentumUndefined:
		return "momentum undefined"
	case RejectMomentumAbove:
		return "momentum above threshold"
	case RejectNotHammer:
		return "not a hammer"
	case RejectSupportUndefined:
		return "support undefined"
	case RejectSupportFar:
		return "too far above support"
	default:
		return fmt.Sprintf("rejection(%d)", int(r))
	}
}

// SupportGate enables the support proximity check.
type SupportGate struct {
	Lookback  int
	Tolerance float64 // max (low-support)/support
}

// Params parameterises both operating modes. A nil Support means pattern-only.
type Params struct {
	MomentumThreshold float64
	Support           *SupportGate
}

// Evaluate inspects the last bar of the frame. Each step short-circuits on rejection.
// A low below support yields a negative distance and is admitted.
func Evaluate(frame *calculator.Frame, inst model.Instrument, p Params) (*model.Signal, Rejection) {
	last := frame.Len() - 1
	momentum, ok := frame.MomentumAt(last)
	if !ok {
		return nil, RejectMomentumUndefined
	}
	if momentum > p.MomentumThreshold {
		return nil, RejectMomentumAbove
	}

	bar := frame.Bars[last]
	if !pattern.IsHammer(bar) {
		return nil, RejectNotHammer
	}

	sig := &model.Signal{
		Symbol:    inst.Symbol,
		Category:  inst.Category,
		Timeframe: inst.Interval,
		Price:     bar.Close,
		Momentum:  momentum,
		Note:      NotePattern,
		BarTime:   bar.Time,
	}

	if p.Support != nil {
		support, ok := frame.SupportAt(last)
		if !ok {
			return nil, RejectSupportUndefined
		}
		if (bar.Low-support)/support > p.Support.Tolerance {
			return nil, RejectSupportFar
		}
		sig.Support = support
		sig.AtSupport = true
		sig.Note = NoteAtSupport
	}
	return sig, Admitted
}
