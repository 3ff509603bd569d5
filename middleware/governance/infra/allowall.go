package infra

import (
	"time"

	"governance-gateway/middleware/governance/domain"
)

// AllowAll é um WindowLimiter que sempre permite. É a "válvula de escape" de
// teste: em vez de um flag global mutável, o harness injeta esta implementação
// na composição.
type AllowAll struct{}

func (AllowAll) Check(domain.Key, int, time.Duration) domain.Decision {
	return domain.Decision{Allowed: true}
}

// OpenSlots concede vagas sem limite, para a mesma finalidade.
type OpenSlots struct{}

func (OpenSlots) Acquire(domain.Key, int) (func(), bool) {
	return func() {}, true
}
