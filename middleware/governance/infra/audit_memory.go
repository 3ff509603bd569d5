package infra

import (
	"context"
	"sync"

	"governance-gateway/middleware/governance/domain"
)

// MemoryEventLog é um sink de auditoria em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicado para produção.
type MemoryEventLog struct {
	mu      sync.Mutex
	events  []domain.OperationalEvent
	byGroup map[string]int64
	byType  map[domain.EventType]int64
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{
		byGroup: make(map[string]int64),
		byType:  make(map[domain.EventType]int64),
	}
}

func (s *MemoryEventLog) LogEvent(_ context.Context, ev domain.OperationalEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	s.byGroup[ev.EndpointGroup]++
	s.byType[ev.EventType]++
	return nil
}

func (s *MemoryEventLog) Events() []domain.OperationalEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OperationalEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *MemoryEventLog) ByGroup() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byGroup))
	for k, v := range s.byGroup {
		out[k] = v
	}
	return out
}

func (s *MemoryEventLog) ByType() map[domain.EventType]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.EventType]int64, len(s.byType))
	for k, v := range s.byType {
		out[k] = v
	}
	return out
}
