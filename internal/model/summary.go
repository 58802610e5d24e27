package model

import "time"

// ScanSummary aggregates one scan invocation. It holds counts only, never the signals themselves.
type ScanSummary struct {
	RunID      string
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Scanned    int
	Signals    int
	NoSignal   int
	Skipped    int
	NotifyErrs int
}

// Duration is the wall time of the scan.
func (s ScanSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
