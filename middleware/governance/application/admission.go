package application

import (
	"time"

	"governance-gateway/middleware/governance/domain"
)

// AdmissionService concentra a regra de admissão de um grupo de endpoints.
//
// Ordem das checagens: limite por IP, depois limite por usuário (quando houver
// usuário autenticado). Chamador privilegiado pula tudo incondicionalmente.
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type AdmissionService struct {
	Group      string
	Limiter    domain.WindowLimiter
	IPPolicy   domain.WindowPolicy
	UserPolicy domain.WindowPolicy
}

type AdmissionRequest struct {
	UserID     string
	IP         string
	Privileged bool
}

// AdmissionResult carrega a dimensão que negou ("ip" ou "user") para o evento
// de auditoria.
type AdmissionResult struct {
	Allowed    bool
	Dimension  string
	RetryAfter time.Duration
}

func (s AdmissionService) Decide(req AdmissionRequest) AdmissionResult {
	if req.Privileged || s.Limiter == nil {
		return AdmissionResult{Allowed: true}
	}

	if s.IPPolicy.Limit > 0 && req.IP != "" {
		key := domain.Key(s.Group + ":ip:" + req.IP)
		dec := s.Limiter.Check(key, s.IPPolicy.Limit, s.IPPolicy.Window)
		if !dec.Allowed {
			return AdmissionResult{Dimension: "ip", RetryAfter: dec.RetryAfter}
		}
	}

	if s.UserPolicy.Limit > 0 && req.UserID != "" {
		key := domain.Key(s.Group + ":user:" + req.UserID)
		dec := s.Limiter.Check(key, s.UserPolicy.Limit, s.UserPolicy.Window)
		if !dec.Allowed {
			return AdmissionResult{Dimension: "user", RetryAfter: dec.RetryAfter}
		}
	}

	return AdmissionResult{Allowed: true}
}
