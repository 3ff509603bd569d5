package application

import (
	"context"
	"time"

	"governance-gateway/middleware/governance/domain"

	"golang.org/x/time/rate"
)

// Event é a entrada crua de auditoria, ainda com identificadores reais.
// O Auditor é a fronteira que pseudonimiza antes de qualquer sink.
type Event struct {
	RequestID  string
	Group      string
	Type       domain.EventType
	StatusCode int
	RetryAfter time.Duration

	// UserID e IP são crus (PII); nunca chegam ao sink sem hash.
	UserID string
	IP     string
}

// Auditor emite OperationalEvents fire-and-forget: erro do sink é engolido
// (uma indisponibilidade de auditoria degrada observabilidade, nunca
// disponibilidade) e a emissão é limitada por um token bucket para uma
// tempestade de negações não inundar o sink.
type Auditor struct {
	sink domain.EventLogger
	hash func(string) string
	cap  *rate.Limiter
	now  func() time.Time
}

type AuditorOption func(*Auditor)

// WithEmitCap limita a emissão a eventsPerSecond com a rajada dada.
// Eventos além do orçamento são descartados silenciosamente.
func WithEmitCap(eventsPerSecond float64, burst int) AuditorOption {
	return func(a *Auditor) { a.cap = rate.NewLimiter(rate.Limit(eventsPerSecond), burst) }
}

func WithAuditNow(now func() time.Time) AuditorOption {
	return func(a *Auditor) { a.now = now }
}

// NewAuditor cria o auditor. hash pseudonimiza userId/IP; com hash nil os
// identificadores são omitidos por completo — nunca passados crus.
func NewAuditor(sink domain.EventLogger, hash func(string) string, opts ...AuditorOption) *Auditor {
	a := &Auditor{
		sink: sink,
		hash: hash,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Emit registra o evento no sink, best-effort. Auditor nil é seguro (no-op).
func (a *Auditor) Emit(ctx context.Context, ev Event) {
	if a == nil || a.sink == nil {
		return
	}
	if a.cap != nil && !a.cap.Allow() {
		return
	}

	out := domain.OperationalEvent{
		RequestID:         ev.RequestID,
		EndpointGroup:     ev.Group,
		EventType:         ev.Type,
		StatusCode:        ev.StatusCode,
		RetryAfterSeconds: int(ev.RetryAfter.Seconds()),
		CreatedAt:         a.now(),
	}
	if a.hash != nil {
		out.UserIDHash = a.hash(ev.UserID)
		out.IPHash = a.hash(ev.IP)
	}

	_ = a.sink.LogEvent(ctx, out)
}

type requestIDKey struct{}

// ContextWithRequestID propaga o id da requisição para camadas que não veem o
// *http.Request (ex: IdempotentRunner dentro do handler de negócio).
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
