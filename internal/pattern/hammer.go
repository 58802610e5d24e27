package pattern

import (
	"math"

	"HammerScanner/internal/model"
)

// Geometry describes the body and wicks of a single bar.
type Geometry struct {
	Body        float64
	LowerShadow float64
	UpperShadow float64
}

// Measure splits a bar into body and shadows.
func Measure(b model.Bar) Geometry {
	return Geometry{
		Body:        math.Abs(b.Close - b.Open),
		LowerShadow: math.Min(b.Open, b.Close) - b.Low,
		UpperShadow: b.High - math.Max(b.Open, b.Close),
	}
}

// IsHammer reports a bullish hammer: a real body, a lower wick of at least twice
// the body and an upper wick no longer than the body. A doji never qualifies.
func IsHammer(b model.Bar) bool {
	g := Measure(b)
	return g.Body > 0 &&
		g.LowerShadow >= 2*g.Body &&
		g.UpperShadow <= g.Body
}
