package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

type Key string

// WindowPolicy descreve o orçamento de uma dimensão (usuário ou IP):
// no máximo Limit requisições dentro da janela deslizante Window.
// Limit <= 0 desativa a dimensão.
type WindowPolicy struct {
	Limit  int
	Window time.Duration
}

// WindowLimiter decide se uma ação é permitida agora, contando as requisições
// da janela deslizante que termina em "agora".
//
// Observação: janela deslizante, não bucket fixo — evita o estouro de 2x o
// limite na borda do bucket. A camada de infra mantém cache por chave, TTL, etc.
type WindowLimiter interface {
	Check(key Key, limit int, window time.Duration) Decision
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
