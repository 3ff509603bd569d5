package application

import (
	"context"
	"time"

	"governance-gateway/middleware/governance/domain"
)

// ConcurrencyService concentra a regra de aquisição/liberação de vagas por
// chave, sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Slots          domain.SlotGranter
	Max            int
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga para a chave.
//   - Sem Slots ou com Max <= 0, a checagem está desativada: permite sempre.
//   - Com AcquireTimeout <= 0, nega na hora quando a chave está cheia.
//   - Com AcquireTimeout > 0, re-tenta até o timeout ou o ctx encerrar (um
//     grupo pode preferir uma fila curta a negar na hora).
//
// Retorna (release, ok). Se ok=false, nenhuma vaga foi adquirida.
func (s ConcurrencyService) Acquire(ctx context.Context, key domain.Key) (func(), bool) {
	if s.Slots == nil || s.Max <= 0 {
		return func() {}, true
	}

	release, ok := s.Slots.Acquire(key, s.Max)
	if ok || s.AcquireTimeout <= 0 {
		return release, ok
	}

	deadline := time.NewTimer(s.AcquireTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-deadline.C:
			return nil, false
		case <-tick.C:
			if release, ok := s.Slots.Acquire(key, s.Max); ok {
				return release, true
			}
		}
	}
}
