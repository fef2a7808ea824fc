package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Registrations       uint64
	LoginsSucceeded     uint64
	LoginsFailed        uint64
	AuthRejected        map[string]uint64
	PasswordHashCount   uint64
	PasswordHashTotalNs int64
	FoldersCreated      uint64
	FoldersDeleted      uint64
	SnippetsCreated     uint64
	SnippetsDeleted     uint64
	ScreenshotsUploaded uint64
	UserCacheHits       uint64
	UserCacheMisses     uint64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint
// and tests.
type InMemoryRecorder struct {
	registrations       uint64
	loginsSucceeded     uint64
	loginsFailed        uint64
	passwordHashCount   uint64
	passwordHashTotalNs int64
	foldersCreated      uint64
	foldersDeleted      uint64
	snippetsCreated     uint64
	snippetsDeleted     uint64
	screenshotsUploaded uint64
	userCacheHits       uint64
	userCacheMisses     uint64

	mu           sync.Mutex
	authRejected map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{authRejected: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejected := make(map[string]uint64, len(m.authRejected))
	for k, v := range m.authRejected {
		rejected[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		Registrations:       atomic.LoadUint64(&m.registrations),
		LoginsSucceeded:     atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:        atomic.LoadUint64(&m.loginsFailed),
		AuthRejected:        rejected,
		PasswordHashCount:   atomic.LoadUint64(&m.passwordHashCount),
		PasswordHashTotalNs: atomic.LoadInt64(&m.passwordHashTotalNs),
		FoldersCreated:      atomic.LoadUint64(&m.foldersCreated),
		FoldersDeleted:      atomic.LoadUint64(&m.foldersDeleted),
		SnippetsCreated:     atomic.LoadUint64(&m.snippetsCreated),
		SnippetsDeleted:     atomic.LoadUint64(&m.snippetsDeleted),
		ScreenshotsUploaded: atomic.LoadUint64(&m.screenshotsUploaded),
		UserCacheHits:       atomic.LoadUint64(&m.userCacheHits),
		UserCacheMisses:     atomic.LoadUint64(&m.userCacheMisses),
	}
}

// IncRegistration increments the registration counter.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncLogin increments the login counter for outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	if outcome == LoginSuccess {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncAuthRejected counts a rejected session token by reason.
func (m *InMemoryRecorder) IncAuthRejected(reason string) {
	m.mu.Lock()
	m.authRejected[reason]++
	m.mu.Unlock()
}

// ObservePasswordHashDuration records time spent hashing or verifying a password.
func (m *InMemoryRecorder) ObservePasswordHashDuration(duration time.Duration) {
	atomic.AddUint64(&m.passwordHashCount, 1)
	atomic.AddInt64(&m.passwordHashTotalNs, duration.Nanoseconds())
}

// IncFolderCreated increments folder created counter.
func (m *InMemoryRecorder) IncFolderCreated() {
	atomic.AddUint64(&m.foldersCreated, 1)
}

// IncFolderDeleted increments folder deleted counter.
func (m *InMemoryRecorder) IncFolderDeleted() {
	atomic.AddUint64(&m.foldersDeleted, 1)
}

// IncSnippetCreated increments snippet created counter.
func (m *InMemoryRecorder) IncSnippetCreated() {
	atomic.AddUint64(&m.snippetsCreated, 1)
}

// IncSnippetDeleted increments snippet deleted counter.
func (m *InMemoryRecorder) IncSnippetDeleted() {
	atomic.AddUint64(&m.snippetsDeleted, 1)
}

// IncScreenshotUploaded increments the uploaded screenshot counter.
func (m *InMemoryRecorder) IncScreenshotUploaded() {
	atomic.AddUint64(&m.screenshotsUploaded, 1)
}

// IncUserCacheHit increments user cache hit counter.
func (m *InMemoryRecorder) IncUserCacheHit() {
	atomic.AddUint64(&m.userCacheHits, 1)
}

// IncUserCacheMiss increments user cache miss counter.
func (m *InMemoryRecorder) IncUserCacheMiss() {
	atomic.AddUint64(&m.userCacheMisses, 1)
}
