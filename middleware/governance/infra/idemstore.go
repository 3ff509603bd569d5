package infra

import (
	"encoding/json"
	"sync"
	"time"

	"governance-gateway/middleware/governance/domain"
)

// MemoryIdempotencyStore guarda registros de ações em memória com expiração
// por TTL. Registros expirados são apagados no acesso (não só ignorados) e por
// uma varredura periódica.
type MemoryIdempotencyStore struct {
	mu         sync.Mutex
	records    map[domain.ActionKey]*domain.ActionRecord
	ttl        time.Duration
	sweepEvery time.Duration
	now        func() time.Time
}

type ActionStoreOption func(*MemoryIdempotencyStore)

func WithActionSweepEvery(d time.Duration) ActionStoreOption {
	return func(s *MemoryIdempotencyStore) { s.sweepEvery = d }
}

// WithActionNow troca a fonte de relógio (testes).
func WithActionNow(now func() time.Time) ActionStoreOption {
	return func(s *MemoryIdempotencyStore) { s.now = now }
}

// NewMemoryIdempotencyStore cria o store com o TTL dado.
// ttl <= 0 usa domain.DefaultIdempotencyTTL.
func NewMemoryIdempotencyStore(ttl time.Duration, opts ...ActionStoreOption) *MemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = domain.DefaultIdempotencyTTL
	}
	s := &MemoryIdempotencyStore{
		records:    make(map[domain.ActionKey]*domain.ActionRecord),
		ttl:        ttl,
		sweepEvery: 2 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryIdempotencyStore) TTL() time.Duration { return s.ttl }

// Check retorna uma cópia do registro, ou nil quando o actionId é vazio
// (opt-out explícito), desconhecido ou expirado.
func (s *MemoryIdempotencyStore) Check(key domain.ActionKey) *domain.ActionRecord {
	if key.ActionID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	if s.expired(rec) {
		delete(s.records, key)
		return nil
	}

	cp := *rec
	return &cp
}

// MarkStarted registra a ação como started. É o test-and-set atômico do
// protocolo: retorna true somente quando criou um registro novo. Um registro
// vivo preexistente não é tocado — em particular o CreatedAt original fica
// preservado, então um retry não zera o próprio TTL.
func (s *MemoryIdempotencyStore) MarkStarted(key domain.ActionKey) bool {
	if key.ActionID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && !s.expired(rec) {
		return false
	}
	s.records[key] = &domain.ActionRecord{
		Status:    domain.StatusStarted,
		CreatedAt: s.now(),
	}
	return true
}

// MarkSucceeded sobrescreve status/result preservando o CreatedAt original.
// Sem registro vivo (ex: expirou com o handler ainda rodando) é no-op.
func (s *MemoryIdempotencyStore) MarkSucceeded(key domain.ActionKey, result json.RawMessage, creditsCharged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || s.expired(rec) {
		return
	}
	rec.Status = domain.StatusSucceeded
	rec.Result = result
	rec.ErrorMessage = ""
	rec.CreditsCharged = creditsCharged
}

// MarkFailed registra a falha. Ações falhas nunca carregam o flag de cobrança.
func (s *MemoryIdempotencyStore) MarkFailed(key domain.ActionKey, errorMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || s.expired(rec) {
		return
	}
	rec.Status = domain.StatusFailed
	rec.Result = nil
	rec.ErrorMessage = errorMessage
	rec.CreditsCharged = false
}

// MarkCreditsCharged liga o flag em um registro existente. Registro ausente
// não é erro: vira no-op.
func (s *MemoryIdempotencyStore) MarkCreditsCharged(key domain.ActionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || s.expired(rec) {
		return
	}
	rec.CreditsCharged = true
}

// PruneExpired remove fisicamente todos os registros mais velhos que o TTL.
func (s *MemoryIdempotencyStore) PruneExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, rec := range s.records {
		if s.expired(rec) {
			delete(s.records, k)
		}
	}
}

// Len é usado por testes e diagnóstico.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StartJanitor inicia a varredura periódica. Pare cancelando o contexto.
func (s *MemoryIdempotencyStore) StartJanitor(ctx DoneContext) {
	if s.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(s.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.PruneExpired()
			}
		}
	}()
}

// expired exige o mutex do chamador.
func (s *MemoryIdempotencyStore) expired(rec *domain.ActionRecord) bool {
	return s.now().Sub(rec.CreatedAt) > s.ttl
}
