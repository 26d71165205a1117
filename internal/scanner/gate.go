package scanner

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces the two scheduling rules for a page context: at most
// one scan in flight, and at least the cooldown interval between the
// starts of consecutive scans.
//
// Design decision: the cooldown rides on a rate.Limiter with burst 1
// rather than a stored last-start timestamp. AllowN both checks and
// consumes the token atomically, and taking the decision time as an
// argument lets tests drive the gate with a fake clock.
type Gate struct {
	mu        sync.Mutex
	tabs      map[string]*tabState
	cooldown  time.Duration
	overrides map[string]time.Duration
	now       func() time.Time
}

type tabState struct {
	scanning bool
	limiter  *rate.Limiter
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithNow overrides the gate's time source. Used in tests.
func WithNow(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// NewGate returns a gate with the given cooldown between scan starts.
func NewGate(cooldown time.Duration, opts ...GateOption) *Gate {
	g := &Gate{
		tabs:      make(map[string]*tabState),
		cooldown:  cooldown,
		overrides: make(map[string]time.Duration),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TryBegin attempts to start a triggered scan for a tab. It returns
// false when a scan is already in flight or the cooldown since the
// last start has not elapsed. On success the caller owns the scan slot
// and must call End when the cycle finishes, fail or succeed.
func (g *Gate) TryBegin(tabID string) bool {
	return g.begin(tabID, true)
}

// TryBeginManual starts a user-initiated scan. Manual scans skip the
// cooldown check but still respect mutual exclusion, and they consume
// the cooldown token when one is available so an automatic trigger
// right after a manual scan stays suppressed.
func (g *Gate) TryBeginManual(tabID string) bool {
	return g.begin(tabID, false)
}

func (g *Gate) begin(tabID string, enforceCooldown bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.tabs[tabID]
	if !ok {
		cooldown := g.cooldown
		if override, ok := g.overrides[tabID]; ok {
			cooldown = override
		}
		state = &tabState{limiter: newCooldownLimiter(cooldown)}
		g.tabs[tabID] = state
	}

	if state.scanning {
		return false
	}

	allowed := state.limiter.AllowN(g.now(), 1)
	if enforceCooldown && !allowed {
		return false
	}

	state.scanning = true
	return true
}

// End releases the scan slot for a tab. The cooldown keeps running
// from the scan's start time, not from End.
func (g *Gate) End(tabID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if state, ok := g.tabs[tabID]; ok {
		state.scanning = false
	}
}

// SetCooldown overrides the cooldown for one tab, e.g. from a per-site
// configuration entry. The override applies when the tab's limiter is
// created, so it must be set before the tab's first scan (or after a
// Forget).
func (g *Gate) SetCooldown(tabID string, cooldown time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.overrides[tabID] = cooldown
}

// Forget drops all gate state for a tab, e.g. when it is closed.
// The next scan of the same tab ID starts with a fresh cooldown.
func (g *Gate) Forget(tabID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tabs, tabID)
}

// newCooldownLimiter builds a limiter that admits one scan start per
// cooldown interval. A zero cooldown disables throttling.
func newCooldownLimiter(cooldown time.Duration) *rate.Limiter {
	if cooldown <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(cooldown), 1)
}
