package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"governance-gateway/middleware/governance/domain"
	"governance-gateway/middleware/governance/infra"
)

type failingSink struct{ calls int }

func (s *failingSink) LogEvent(context.Context, domain.OperationalEvent) error {
	s.calls++
	return errors.New("sink down")
}

func TestAuditor_HashesIdentifiersBeforeSink(t *testing.T) {
	sink := infra.NewMemoryEventLog()
	a := NewAuditor(sink, infra.HashIdentifier)

	a.Emit(context.Background(), Event{
		RequestID:  "req-1",
		Group:      "ai",
		Type:       domain.EventRateLimited,
		StatusCode: 429,
		RetryAfter: 30 * time.Second,
		UserID:     "user-42",
		IP:         "10.0.0.1",
	})

	evs := sink.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	ev := evs[0]
	if ev.UserIDHash == "user-42" || strings.Contains(ev.UserIDHash, "user") {
		t.Fatalf("raw user id leaked: %q", ev.UserIDHash)
	}
	if ev.IPHash == "10.0.0.1" || strings.Contains(ev.IPHash, "10.0") {
		t.Fatalf("raw ip leaked: %q", ev.IPHash)
	}
	if ev.UserIDHash != infra.HashIdentifier("user-42") {
		t.Fatalf("expected deterministic pseudonym")
	}
	if ev.RetryAfterSeconds != 30 {
		t.Fatalf("expected retryAfterSeconds=30, got %d", ev.RetryAfterSeconds)
	}
	if ev.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be filled")
	}
}

func TestAuditor_NilHashOmitsIdentifiers(t *testing.T) {
	sink := infra.NewMemoryEventLog()
	a := NewAuditor(sink, nil)

	a.Emit(context.Background(), Event{UserID: "user-42", IP: "10.0.0.1"})

	ev := sink.Events()[0]
	if ev.UserIDHash != "" || ev.IPHash != "" {
		t.Fatalf("without a hash fn identifiers must be dropped, got %q/%q", ev.UserIDHash, ev.IPHash)
	}
}

func TestAuditor_SinkErrorIsSwallowed(t *testing.T) {
	sink := &failingSink{}
	a := NewAuditor(sink, infra.HashIdentifier)

	// não pode entrar em pânico nem propagar nada
	a.Emit(context.Background(), Event{Type: domain.EventRateLimited})
	if sink.calls != 1 {
		t.Fatalf("expected the sink to be called, got %d", sink.calls)
	}
}

func TestAuditor_NilAuditorIsSafe(t *testing.T) {
	var a *Auditor
	a.Emit(context.Background(), Event{Type: domain.EventRateLimited})
}

func TestAuditor_EmitCapDropsExcess(t *testing.T) {
	sink := infra.NewMemoryEventLog()
	a := NewAuditor(sink, infra.HashIdentifier, WithEmitCap(1, 2))

	for i := 0; i < 10; i++ {
		a.Emit(context.Background(), Event{Type: domain.EventRateLimited})
	}

	if got := len(sink.Events()); got > 3 {
		t.Fatalf("expected the cap to drop the storm, got %d events", got)
	}
	if got := len(sink.Events()); got == 0 {
		t.Fatalf("the burst budget must let some events through")
	}
}

func TestRequestIDContext_RoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-9")
	if got := RequestIDFromContext(ctx); got != "req-9" {
		t.Fatalf("expected req-9, got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty id on plain ctx, got %q", got)
	}
}
