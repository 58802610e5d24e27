package pattern

import (
	"testing"

	"HammerScanner/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestIsHammer(t *testing.T) {
	tests := []struct {
		name string
		bar  model.Bar
		want bool
	}{
		{"classic bullish", model.Bar{Open: 100, Close: 101, Low: 95, High: 101.5}, true},
		{"bearish body", model.Bar{Open: 101, Close: 100, Low: 95, High: 101.5}, true},
		{"no upper wick", model.Bar{Open: 100, Close: 101, Low: 98, High: 101}, true},
		{"lower wick exactly 2x", model.Bar{Open: 100, Close: 101, Low: 98, High: 102}, true},
		{"lower wick short", model.Bar{Open: 100, Close: 101, Low: 98.5, High: 101}, false},
		{"upper wick too long", model.Bar{Open: 100, Close: 101, Low: 95, High: 102.5}, false},
		{"doji with long tail", model.Bar{Open: 100, Close: 100, Low: 90, High: 100}, false},
		{"doji flat", model.Bar{Open: 100, Close: 100, Low: 100, High: 100}, false},
		{"inverted hammer", model.Bar{Open: 100, Close: 101, Low: 100, High: 106}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsHammer(tt.bar), tt.name)
	}
}

func TestIsHammer_DojiNeverQualifies(t *testing.T) {
	for _, lower := range []float64{0, 1, 5, 50} {
		for _, upper := range []float64{0, 0.1, 3} {
			b := model.Bar{Open: 100, Close: 100, Low: 100 - lower, High: 100 + upper}
			assert.False(t, IsHammer(b), "lower=%v upper=%v", lower, upper)
		}
	}
}

func TestIsHammer_RatioViolations(t *testing.T) {
	for _, body := range []float64{0.5, 1, 2} {
		// lower shadow just under 2x body
		b := model.Bar{Open: 100, Close: 100 + body, Low: 100 - 2*body + 0.01, High: 100 + body}
		assert.False(t, IsHammer(b), "short lower shadow body=%v", body)

		// upper shadow just over body
		b = model.Bar{Open: 100, Close: 100 + body, Low: 100 - 3*body, High: 100 + 2*body + 0.01}
		assert.False(t, IsHammer(b), "long upper shadow body=%v", body)
	}
}

func TestMeasure(t *testing.T) {
	g := Measure(model.Bar{Open: 100, Close: 101, Low: 95, High: 101.5})
	assert.Equal(t, Geometry{Body: 1, LowerShadow: 5, UpperShadow: 0.5}, g)
}
