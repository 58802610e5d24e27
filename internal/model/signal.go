package model

import "time"

// Signal is emitted when the latest bar of an instrument passes every filter.
// It is handed to the notifier and then dropped.
type Signal struct {
	Symbol    string
	Category  string
	Timeframe string
	Price     float64 // close of the evaluated bar
	Momentum  float64 // RSI of the evaluated bar
	Support   float64 // zero when the support gate is disabled
	AtSupport bool
	Note      string
	BarTime   time.Time
}
