package recorder

import (
	"context"

	"github.com/google/uuid"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
// It still assigns run ids so callers can reference a run.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ context.Context, run *RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	return nil
}

func (n *NoopRecorder) RecordAlert(_ context.Context, _ *AlertEvent) error { return nil }
func (n *NoopRecorder) Close() error                                        { return nil }
