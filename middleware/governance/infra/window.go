package infra

import (
	"math"
	"sync"
	"time"

	"governance-gateway/middleware/governance/domain"
)

// WindowStore é uma implementação de infra de janela deslizante: mantém, por
// chave, a lista ordenada dos timestamps recentes e poda entradas velhas de
// forma lazy a cada leitura.
//
// Todas as mutações acontecem dentro do mutex, sem nenhum ponto de suspensão
// entre leitura e escrita — é isso que elimina a corrida check-then-act.
type WindowStore struct {
	mu         sync.Mutex
	entries    map[domain.Key]*windowEntry
	idleTTL    time.Duration
	sweepEvery time.Duration
	now        func() time.Time
}

type windowEntry struct {
	stamps []time.Time
	// window observada no último Check; o sweep usa para saber quando a
	// lista filtrada da chave esvaziou.
	window time.Duration
}

type WindowOption func(*WindowStore)

func WithIdleTTL(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.idleTTL = d }
}

func WithSweepEvery(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.sweepEvery = d }
}

// WithNow troca a fonte de relógio. Útil em testes para avançar o tempo sem
// dormir.
func WithNow(now func() time.Time) WindowOption {
	return func(s *WindowStore) { s.now = now }
}

func NewWindowStore(opts ...WindowOption) *WindowStore {
	s := &WindowStore{
		entries:    make(map[domain.Key]*windowEntry),
		idleTTL:    15 * time.Minute,
		sweepEvery: 2 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check implementa domain.WindowLimiter.
//
// Algoritmo: filtra os timestamps mais velhos que a janela; se a contagem
// restante já atingiu o limite, nega com
// retryAfter = ceil(window - (now - maisVelhoNaJanela)); senão registra "agora"
// e permite. Não há efeito colateral na negação além da decisão — quem chama é
// dono da admissão.
func (s *WindowStore) Check(key domain.Key, limit int, window time.Duration) domain.Decision {
	if limit <= 0 || window <= 0 {
		return domain.Decision{Allowed: true}
	}

	now := s.now()
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil {
		e = &windowEntry{}
		s.entries[key] = e
	}
	e.window = window

	kept := e.stamps[:0]
	for _, t := range e.stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		e.stamps = kept
		wait := window - now.Sub(kept[0])
		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return domain.Decision{Allowed: false, RetryAfter: time.Duration(secs) * time.Second}
	}

	e.stamps = append(kept, now)
	return domain.Decision{Allowed: true}
}

// Cleanup remove chaves cuja lista filtrada esvaziou: todo timestamp já saiu
// da janela usada no último Check. O idleTTL fica como rede de segurança para
// chaves cuja janela mudou depois da última leitura. A poda fina (dentro da
// janela) continua sendo lazy no Check.
func (s *WindowStore) Cleanup() {
	now := s.now()
	idleCutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if len(e.stamps) == 0 {
			delete(s.entries, k)
			continue
		}
		newest := e.stamps[len(e.stamps)-1]
		if newest.Before(now.Add(-e.window)) || newest.Before(idleCutoff) {
			delete(s.entries, k)
		}
	}
}

// Len é usado por testes e diagnóstico.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx DoneContext) {
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
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar
// context aqui. (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}
