package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRegistration is a no-op.
func (n *NoopRecorder) IncRegistration() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(outcome string) {}

// IncAuthRejected is a no-op.
func (n *NoopRecorder) IncAuthRejected(reason string) {}

// ObservePasswordHashDuration is a no-op.
func (n *NoopRecorder) ObservePasswordHashDuration(duration time.Duration) {}

// IncFolderCreated is a no-op.
func (n *NoopRecorder) IncFolderCreated() {}

// IncFolderDeleted is a no-op.
func (n *NoopRecorder) IncFolderDeleted() {}

// IncSnippetCreated is a no-op.
func (n *NoopRecorder) IncSnippetCreated() {}

// IncSnippetDeleted is a no-op.
func (n *NoopRecorder) IncSnippetDeleted() {}

// IncScreenshotUploaded is a no-op.
func (n *NoopRecorder) IncScreenshotUploaded() {}

// IncUserCacheHit is a no-op.
func (n *NoopRecorder) IncUserCacheHit() {}

// IncUserCacheMiss is a no-op.
func (n *NoopRecorder) IncUserCacheMiss() {}
