package application

import (
	"context"
	"encoding/json"
	"fmt"

	"governance-gateway/middleware/governance/domain"
)

// ActionFunc é o trabalho de negócio de uma ação idempotente. Recebe um
// charge que deve ser chamado imediatamente depois que a mutação paga for
// confirmada (débito no ledger, invocação de IA) e antes de retornar.
type ActionFunc func(ctx context.Context, charge func()) (json.RawMessage, error)

// RunOutcome é o resultado de uma execução idempotente. Replayed indica que o
// resultado veio do cache, sem re-executar o efeito colateral.
type RunOutcome struct {
	Result         json.RawMessage
	Replayed       bool
	CreditsCharged bool
}

// IdempotentRunner aplica o protocolo do chamador sobre o IdempotencyStore:
//
//  1. registro succeeded -> devolve o resultado em cache, sem re-execução e
//     sem nova cobrança;
//  2. registro started -> domain.ErrActionInProgress (duplo submit
//     concorrente);
//  3. registro failed -> domain.FailedBeforeError (o chamador decide tentar
//     com actionId novo);
//  4. senão MarkStarted, executa, e MarkSucceeded/MarkFailed — inclusive
//     quando o handler entra em pânico, senão o registro fica "started" para
//     sempre e bloqueia retries até o TTL.
//
// ActionID vazio é opt-out: executa direto, sem registro nenhum.
type IdempotentRunner struct {
	Store domain.IdempotencyStore
	Audit *Auditor
	Group string
}

func (r IdempotentRunner) Do(ctx context.Context, key domain.ActionKey, fn ActionFunc) (RunOutcome, error) {
	if r.Store == nil || key.ActionID == "" {
		result, err := fn(ctx, func() {})
		return RunOutcome{Result: result}, err
	}

	if rec := r.Store.Check(key); rec != nil {
		switch rec.Status {
		case domain.StatusSucceeded:
			r.emit(ctx, key, domain.EventIdempotentReplay)
			return RunOutcome{Result: rec.Result, Replayed: true, CreditsCharged: rec.CreditsCharged}, nil
		case domain.StatusStarted:
			r.emit(ctx, key, domain.EventIdempotentConflict)
			return RunOutcome{}, domain.ErrActionInProgress
		case domain.StatusFailed:
			return RunOutcome{}, &domain.FailedBeforeError{Message: rec.ErrorMessage}
		}
	}

	if !r.Store.MarkStarted(key) {
		// perdeu a corrida para uma duplicata concorrente
		r.emit(ctx, key, domain.EventIdempotentConflict)
		return RunOutcome{}, domain.ErrActionInProgress
	}

	charged := false
	charge := func() {
		r.Store.MarkCreditsCharged(key)
		charged = true
	}

	defer func() {
		if p := recover(); p != nil {
			r.Store.MarkFailed(key, fmt.Sprintf("panic: %v", p))
			panic(p)
		}
	}()

	result, err := fn(ctx, charge)
	if err != nil {
		r.Store.MarkFailed(key, err.Error())
		return RunOutcome{}, err
	}

	r.Store.MarkSucceeded(key, result, charged)
	return RunOutcome{Result: result, CreditsCharged: charged}, nil
}

func (r IdempotentRunner) emit(ctx context.Context, key domain.ActionKey, typ domain.EventType) {
	if r.Audit == nil {
		return
	}
	group := r.Group
	if group == "" {
		group = key.Endpoint
	}
	r.Audit.Emit(ctx, Event{
		RequestID: RequestIDFromContext(ctx),
		Group:     group,
		Type:      typ,
		UserID:    key.UserID,
	})
}
