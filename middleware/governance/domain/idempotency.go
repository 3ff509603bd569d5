package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// ActionStatus é o ciclo de vida de uma ação idempotente.
// A transição started -> {succeeded|failed} acontece no máximo uma vez por
// actionId.
type ActionStatus string

const (
	StatusStarted   ActionStatus = "started"
	StatusSucceeded ActionStatus = "succeeded"
	StatusFailed    ActionStatus = "failed"
)

// DefaultIdempotencyTTL cobre tempestades de retry realistas (rede lenta,
// duplo clique, refresh de aba) sem reter memória indefinidamente.
// É um parâmetro: handlers mais lentos que o TTL pedem um valor maior.
const DefaultIdempotencyTTL = 5 * time.Minute

// ActionKey identifica uma ação lógica do usuário. ActionID vem do cliente;
// vazio significa opt-out explícito da deduplicação.
type ActionKey struct {
	UserID   string
	Endpoint string
	ActionID string
}

// ActionRecord é o registro de deduplicação de uma ação.
//
// Invariantes:
//   - Result só existe quando Status == succeeded.
//   - ErrorMessage só existe quando Status == failed.
//   - CreditsCharged só vira true depois do efeito pago ser confirmado,
//     nunca em um registro failed.
type ActionRecord struct {
	Status         ActionStatus
	Result         json.RawMessage
	ErrorMessage   string
	CreditsCharged bool
	CreatedAt      time.Time
}

// IdempotencyStore guarda registros de ações com expiração por TTL.
//
// MarkStarted é o test-and-set atômico: retorna true somente quando registrou
// um registro novo. Duas requisições concorrentes com o mesmo actionId nunca
// recebem true as duas.
type IdempotencyStore interface {
	Check(key ActionKey) *ActionRecord
	MarkStarted(key ActionKey) bool
	MarkSucceeded(key ActionKey, result json.RawMessage, creditsCharged bool)
	MarkFailed(key ActionKey, errorMessage string)
	MarkCreditsCharged(key ActionKey)
	PruneExpired()
}

// ErrActionInProgress sinaliza que uma ação idêntica ainda está em voo.
// É o guarda de duplo submit concorrente, distinto do rate limiter.
var ErrActionInProgress = errors.New("identical action already in progress")

// FailedBeforeError sinaliza que a mesma ação já falhou dentro do TTL.
// O chamador decide se tenta de novo com um actionId novo.
type FailedBeforeError struct {
	Message string
}

func (e *FailedBeforeError) Error() string {
	if e.Message == "" {
		return "action failed previously"
	}
	return "action failed previously: " + e.Message
}
