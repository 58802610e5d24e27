package recorder

import "HammerScanner/internal/model"

// RunRecord is one persisted scan invocation: aggregates and skip reasons, no signal contents.
type RunRecord struct {
	Summary     model.ScanSummary
	SkipReasons map[string]int
}

// Recorder keeps an audit trail of scan runs for operators.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	RecentRuns(limit int) ([]model.ScanSummary, error)
	Close() error
}
