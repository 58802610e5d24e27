package calculator

import (
	"math"

	"HammerScanner/internal/model"

	"github.com/pkg/errors"
)

// PriorLowSupport returns, for every bar i, the minimum low of bars [i-lookback, i-1].
// The bar's own low never participates. Entries with fewer than `lookback` prior bars are NaN.
func PriorLowSupport(bars model.BarSeries, lookback int) ([]float64, error) {
	if lookback <= 0 {
		return nil, errors.New("support lookback must be positive")
	}
	out := make([]float64, len(bars))
	for i := range bars {
		if i < lookback {
			out[i] = math.NaN()
			continue
		}
		low := math.Inf(1)
		for j := i - lookback; j < i; j++ {
			if bars[j].Low < low {
				low = bars[j].Low
			}
		}
		out[i] = low
	}
	return out, nil
}
