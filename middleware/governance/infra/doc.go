// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - WindowStore: janela deslizante de timestamps por chave, com janitor
//   - KeyedSemaphore: contadores de operações em voo por chave
//   - MemoryIdempotencyStore: cache de deduplicação com TTL
//   - MemoryEventLog / RedisEventLog: sinks de auditoria
package infra
