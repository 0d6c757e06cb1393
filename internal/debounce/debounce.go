// Package debounce suppresses repeated notifications within a time window.
package debounce

import (
	"sync"
	"time"
)

// Ledger remembers when each key was last accepted.
type Ledger struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// New returns an empty ledger. now defaults to time.Now.
func New(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{last: make(map[string]time.Time), now: now}
}

// ShouldEmit reports whether key may fire now. It returns false if key was
// accepted less than window ago; otherwise it records now for key.
func (l *Ledger) ShouldEmit(key string, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if prev, ok := l.last[key]; ok && now.Sub(prev) < window {
		return false
	}
	l.last[key] = now
	return true
}

// Forget drops key so the next ShouldEmit for it succeeds.
func (l *Ledger) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, key)
}

// Keys used by the bridge.
func TriggerKey(code string) string   { return "trigger:" + code }
func EncloseKey(code string) string   { return "enclose:" + code }
func OpenErrorKey(port string) string { return "open_err:" + port }
