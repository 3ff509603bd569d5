package domain

// SlotGranter representa o orçamento de operações em voo por chave
// (ex: "endpoint:usuário"). Acquire nega imediatamente quando o contador da
// chave já está em max.
//
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente
// uma vez (normalmente via defer), mesmo quando o handler falha ou entra em
// pânico — sem o release a chave fica esgotada para sempre.
type SlotGranter interface {
	Acquire(key Key, max int) (release func(), ok bool)
}
