// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Login outcomes passed to IncLogin.
const (
	LoginSuccess = "success"
	LoginFailed  = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Account metrics
	IncRegistration()
	IncLogin(outcome string)
	IncAuthRejected(reason string) // reason: "malformed", "bad_signature", "expired", "unknown_user"
	ObservePasswordHashDuration(duration time.Duration)

	// Content metrics
	IncFolderCreated()
	IncFolderDeleted()
	IncSnippetCreated()
	IncSnippetDeleted()
	IncScreenshotUploaded()

	// User cache metrics
	IncUserCacheHit()
	IncUserCacheMiss()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
