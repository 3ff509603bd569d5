package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventRateLimited         EventType = "rate_limited"
	EventConcurrencyRejected EventType = "concurrency_rejected"
	EventIdempotentReplay    EventType = "idempotent_replay"
	EventIdempotentConflict  EventType = "idempotent_conflict"
)

// OperationalEvent é o evento de auditoria escrito no sink externo.
//
// Invariante duro da fronteira de logging: nenhum identificador cru (PII),
// payload ou conteúdo de negócio sai daqui. UserIDHash e IPHash são
// pseudônimos truncados, não reversíveis.
type OperationalEvent struct {
	RequestID         string
	EndpointGroup     string
	EventType         EventType
	StatusCode        int
	RetryAfterSeconds int
	UserIDHash        string
	IPHash            string
	CreatedAt         time.Time
}

// EventLogger é a estratégia de persistência dos eventos operacionais.
//
// Implementações podem armazenar em Redis, memória, etc.
// O chamador deve tratar erro como best-effort (não derrubar request).
type EventLogger interface {
	LogEvent(ctx context.Context, ev OperationalEvent) error
}
