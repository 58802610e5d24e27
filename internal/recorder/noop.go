package recorder

import "HammerScanner/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunRecord) error                  { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]model.ScanSummary, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                  { return nil }
