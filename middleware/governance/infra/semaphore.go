package infra

import (
	"sync"

	"governance-gateway/middleware/governance/domain"
)

// KeyedSemaphore implementa domain.SlotGranter com um contador de operações
// em voo por chave. Quando o contador volta a zero a chave é removida do mapa,
// então a memória fica limitada às chaves com operações ativas.
type KeyedSemaphore struct {
	mu       sync.Mutex
	inFlight map[domain.Key]int
}

func NewKeyedSemaphore() *KeyedSemaphore {
	return &KeyedSemaphore{inFlight: make(map[domain.Key]int)}
}

// Acquire nega exatamente quando o contador da chave já está em max.
// O release retornado é idempotente por concessão: chamadas repetidas
// (ex: defer + caminho de erro) liberam a vaga uma vez só.
func (s *KeyedSemaphore) Acquire(key domain.Key, max int) (func(), bool) {
	if max <= 0 {
		return func() {}, true
	}

	s.mu.Lock()
	if s.inFlight[key] >= max {
		s.mu.Unlock()
		return nil, false
	}
	s.inFlight[key]++
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { s.release(key) }) }, true
}

func (s *KeyedSemaphore) release(key domain.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.inFlight[key] - 1
	if n <= 0 {
		delete(s.inFlight, key)
		return
	}
	s.inFlight[key] = n
}

// InFlight reporta o contador atual de uma chave (testes/diagnóstico).
func (s *KeyedSemaphore) InFlight(key domain.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[key]
}
