package infra

import (
	"testing"
	"time"
)

// relógio controlável no estilo WithNow: avança sem dormir.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestWindowStore_AllowsUpToLimitThenDenies(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(WithNow(clock.Now))

	limit := 10
	window := 10 * time.Minute

	for i := 0; i < limit; i++ {
		dec := s.Check("u1", limit, window)
		if !dec.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		clock.Advance(1 * time.Second)
	}

	dec := s.Check("u1", limit, window)
	if dec.Allowed {
		t.Fatalf("request %d should be denied", limit+1)
	}
	secs := int(dec.RetryAfter.Seconds())
	if secs < 1 || secs > 600 {
		t.Fatalf("expected retryAfter in [1s,600s], got %s", dec.RetryAfter)
	}
}

func TestWindowStore_AllowsAgainAfterWindowPasses(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(WithNow(clock.Now))

	for i := 0; i < 3; i++ {
		if dec := s.Check("k", 3, time.Minute); !dec.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if dec := s.Check("k", 3, time.Minute); dec.Allowed {
		t.Fatalf("expected denial after exhaustion")
	}

	clock.Advance(61 * time.Second)

	if dec := s.Check("k", 3, time.Minute); !dec.Allowed {
		t.Fatalf("expected allow after window passed")
	}
}

func TestWindowStore_RetryAfterCountsFromOldestInWindow(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(WithNow(clock.Now))

	// duas requisições com 10s entre elas, limite 2 em 60s
	if dec := s.Check("k", 2, time.Minute); !dec.Allowed {
		t.Fatalf("first should be allowed")
	}
	clock.Advance(10 * time.Second)
	if dec := s.Check("k", 2, time.Minute); !dec.Allowed {
		t.Fatalf("second should be allowed")
	}

	dec := s.Check("k", 2, time.Minute)
	if dec.Allowed {
		t.Fatalf("third should be denied")
	}
	// a mais velha tem 10s de idade: ceil(60 - 10) = 50s
	if dec.RetryAfter != 50*time.Second {
		t.Fatalf("expected retryAfter=50s, got %s", dec.RetryAfter)
	}
}

func TestWindowStore_KeysAreIsolated(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(WithNow(clock.Now))

	if dec := s.Check("a", 1, time.Minute); !dec.Allowed {
		t.Fatalf("a should be allowed")
	}
	if dec := s.Check("a", 1, time.Minute); dec.Allowed {
		t.Fatalf("a should be exhausted")
	}
	if dec := s.Check("b", 1, time.Minute); !dec.Allowed {
		t.Fatalf("b must not be affected by a")
	}
}

func TestWindowStore_ZeroLimitDisablesCheck(t *testing.T) {
	s := NewWindowStore()
	for i := 0; i < 100; i++ {
		if dec := s.Check("k", 0, time.Minute); !dec.Allowed {
			t.Fatalf("limit=0 must always allow")
		}
	}
}

func TestWindowStore_CleanupRemovesIdleKeys(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(WithNow(clock.Now), WithIdleTTL(1*time.Minute))

	s.Check("k", 5, time.Minute)
	if s.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", s.Len())
	}

	clock.Advance(2 * time.Minute)
	s.Cleanup()

	if s.Len() != 0 {
		t.Fatalf("expected idle key to be removed, got %d", s.Len())
	}
}

func TestWindowStore_CleanupRemovesEmptiedWindowsBeforeIdleTTL(t *testing.T) {
	clock := newFakeClock()
	// idleTTL longo de propósito: a remoção deve vir da janela esvaziada.
	s := NewWindowStore(WithNow(clock.Now), WithIdleTTL(15*time.Minute))

	for i := 0; i < 3; i++ {
		if dec := s.Check("k", 3, time.Minute); !dec.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	// passa da janela de 1 minuto, mas bem antes dos 15 minutos de idleTTL
	clock.Advance(2 * time.Minute)
	s.Cleanup()

	if s.Len() != 0 {
		t.Fatalf("expected emptied-window key to be removed, got %d", s.Len())
	}
}

func TestWindowStore_CleanupKeepsKeysWithEntriesInWindow(t *testing.T) {
	clock := newFakeClock()
	s := NewWindowStore(WithNow(clock.Now))

	s.Check("k", 5, 10*time.Minute)

	clock.Advance(1 * time.Minute)
	s.Cleanup()

	if s.Len() != 1 {
		t.Fatalf("expected active key to survive cleanup, got %d", s.Len())
	}
}
