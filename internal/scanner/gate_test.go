package scanner

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced time source for gate tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestGate(t *testing.T) {
	t.Parallel()

	t.Run("allows first scan per tab", func(t *testing.T) {
		t.Parallel()

		g := NewGate(30 * time.Second)
		if !g.TryBegin("tab-1") {
			t.Error("first scan should be admitted")
		}
		if !g.TryBegin("tab-2") {
			t.Error("independent tab should be admitted")
		}
	})

	t.Run("rejects concurrent scan of same tab", func(t *testing.T) {
		t.Parallel()

		g := NewGate(0)
		if !g.TryBegin("tab-1") {
			t.Fatal("first scan should be admitted")
		}
		if g.TryBegin("tab-1") {
			t.Error("second scan should be rejected while first is in flight")
		}
		if g.TryBeginManual("tab-1") {
			t.Error("manual scan should also respect mutual exclusion")
		}

		g.End("tab-1")
		if !g.TryBegin("tab-1") {
			t.Error("scan should be admitted after End with zero cooldown")
		}
	})

	t.Run("enforces cooldown between scan starts", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{t: time.Now()}
		g := NewGate(30*time.Second, WithNow(clock.now))

		if !g.TryBegin("tab-1") {
			t.Fatal("first scan should be admitted")
		}
		g.End("tab-1")

		if g.TryBegin("tab-1") {
			t.Error("scan within cooldown should be rejected")
		}

		clock.advance(29 * time.Second)
		if g.TryBegin("tab-1") {
			t.Error("scan just before cooldown expiry should be rejected")
		}

		clock.advance(2 * time.Second)
		if !g.TryBegin("tab-1") {
			t.Error("scan after cooldown expiry should be admitted")
		}
	})

	t.Run("cooldown runs from scan start not end", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{t: time.Now()}
		g := NewGate(30*time.Second, WithNow(clock.now))

		if !g.TryBegin("tab-1") {
			t.Fatal("first scan should be admitted")
		}
		// A long-running scan: by the time it ends, the cooldown
		// measured from its start has already elapsed.
		clock.advance(31 * time.Second)
		g.End("tab-1")

		if !g.TryBegin("tab-1") {
			t.Error("cooldown should be measured from scan start")
		}
	})

	t.Run("manual scan bypasses cooldown", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{t: time.Now()}
		g := NewGate(30*time.Second, WithNow(clock.now))

		if !g.TryBegin("tab-1") {
			t.Fatal("first scan should be admitted")
		}
		g.End("tab-1")

		if !g.TryBeginManual("tab-1") {
			t.Error("manual scan should skip the cooldown check")
		}
		g.End("tab-1")
	})

	t.Run("manual scan consumes an available cooldown token", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{t: time.Now()}
		g := NewGate(30*time.Second, WithNow(clock.now))

		if !g.TryBeginManual("tab-1") {
			t.Fatal("manual scan should be admitted")
		}
		g.End("tab-1")

		// The manual scan consumed the token, so an automatic trigger
		// right after it is still throttled.
		if g.TryBegin("tab-1") {
			t.Error("automatic scan right after manual scan should be rejected")
		}

		clock.advance(31 * time.Second)
		if !g.TryBegin("tab-1") {
			t.Error("automatic scan after cooldown should be admitted")
		}
	})

	t.Run("forget resets tab state", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{t: time.Now()}
		g := NewGate(30*time.Second, WithNow(clock.now))

		if !g.TryBegin("tab-1") {
			t.Fatal("first scan should be admitted")
		}
		g.End("tab-1")
		g.Forget("tab-1")

		if !g.TryBegin("tab-1") {
			t.Error("forgotten tab should start with a fresh cooldown")
		}
	})

	t.Run("per-tab cooldown override", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{t: time.Now()}
		g := NewGate(30*time.Second, WithNow(clock.now))
		g.SetCooldown("tab-fast", 5*time.Second)

		if !g.TryBegin("tab-fast") {
			t.Fatal("first scan should be admitted")
		}
		g.End("tab-fast")
		if !g.TryBegin("tab-slow") {
			t.Fatal("first scan of the regular tab should be admitted")
		}
		g.End("tab-slow")

		clock.advance(6 * time.Second)
		if !g.TryBegin("tab-fast") {
			t.Error("overridden tab should be admitted after its shorter cooldown")
		}
		if g.TryBegin("tab-slow") {
			t.Error("regular tab should still be inside the global cooldown")
		}
	})
}
