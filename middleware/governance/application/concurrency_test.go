package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"governance-gateway/middleware/governance/domain"
)

type fullGranter struct{}

func (fullGranter) Acquire(domain.Key, int) (func(), bool) { return nil, false }

type countingGranter struct {
	mu       sync.Mutex
	acquired int
}

func (g *countingGranter) Acquire(domain.Key, int) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acquired++
	return func() {}, true
}

// libera a vaga depois de um certo número de tentativas
type eventuallyGranter struct {
	mu    sync.Mutex
	tries int
	after int
}

func (g *eventuallyGranter) Acquire(domain.Key, int) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tries++
	if g.tries <= g.after {
		return nil, false
	}
	return func() {}, true
}

func TestConcurrencyService_AllowsWhenDisabled(t *testing.T) {
	svc := ConcurrencyService{}
	release, ok := svc.Acquire(context.Background(), "k")
	if !ok {
		t.Fatalf("expected ok with no granter")
	}
	release()

	svc = ConcurrencyService{Slots: fullGranter{}, Max: 0}
	if _, ok := svc.Acquire(context.Background(), "k"); !ok {
		t.Fatalf("max=0 disables the check")
	}
}

func TestConcurrencyService_DeniesImmediatelyWithoutTimeout(t *testing.T) {
	svc := ConcurrencyService{Slots: fullGranter{}, Max: 1}
	if _, ok := svc.Acquire(context.Background(), "k"); ok {
		t.Fatalf("expected immediate denial")
	}
}

func TestConcurrencyService_DelegatesToGranter(t *testing.T) {
	g := &countingGranter{}
	svc := ConcurrencyService{Slots: g, Max: 1}

	_, ok := svc.Acquire(context.Background(), "k")
	if !ok {
		t.Fatalf("expected ok")
	}
	if g.acquired != 1 {
		t.Fatalf("expected granter Acquire to be called once, got %d", g.acquired)
	}
}

func TestConcurrencyService_TimeoutExpires(t *testing.T) {
	svc := ConcurrencyService{Slots: fullGranter{}, Max: 1, AcquireTimeout: 20 * time.Millisecond}

	start := time.Now()
	_, ok := svc.Acquire(context.Background(), "k")
	if ok {
		t.Fatalf("expected timeout and ok=false")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("acquire took too long to give up")
	}
}

func TestConcurrencyService_RetriesUntilSlotFrees(t *testing.T) {
	g := &eventuallyGranter{after: 2}
	svc := ConcurrencyService{Slots: g, Max: 1, AcquireTimeout: 300 * time.Millisecond}

	release, ok := svc.Acquire(context.Background(), "k")
	if !ok {
		t.Fatalf("expected acquire to succeed once a slot freed")
	}
	release()
}

func TestConcurrencyService_CancelledContextStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := ConcurrencyService{Slots: fullGranter{}, Max: 1, AcquireTimeout: 5 * time.Second}
	start := time.Now()
	if _, ok := svc.Acquire(ctx, "k"); ok {
		t.Fatalf("expected ok=false on cancelled ctx")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("cancelled ctx must stop the wait quickly")
	}
}
