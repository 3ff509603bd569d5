// Package governance fornece adapters HTTP (net/http) para a camada de
// governança de requisições: rate limit por IP e por usuário (janela
// deslizante), teto de operações em voo por usuário e deduplicação de
// mutações via cache de idempotência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (admissão, protocolo idempotente, auditoria)
//     sem net/http
//   - infra: implementações concretas (janela deslizante, semáforo por chave,
//     store de idempotência, sinks de auditoria), detalhes de infraestrutura
//   - governance (este pacote): middleware HTTP + extração de identidade +
//     tradução para status/headers
//
// Fluxo de admissão de uma mutação:
//
//  1. Extrai IP, usuário e request id; chamador privilegiado pula tudo
//  2. Checa a janela por IP, depois por usuário
//  3. Adquire a vaga de concorrência do usuário (release garantido via defer)
//  4. Negou? Emite um evento de auditoria (best-effort, sem PII) e responde
//     429 com Retry-After e corpo RATE_LIMITED
//  5. Permitiu? Chama o próximo handler; o handler de negócio consulta o
//     IdempotencyStore (via application.IdempotentRunner) antes do trabalho
//
// Válido para uma instância única: todo o estado é em memória de processo,
// sem coordenação externa (restrição documentada, não bug).
//
// Variáveis de ambiente controlam o comportamento: RATE_USER_LIMIT,
// RATE_IP_LIMIT e CONCURRENCY_MAX no binário gateway (cmd/gateway);
// IDEMPOTENCY_TTL onde o store de idempotência é construído junto dos
// handlers de negócio (cmd/example-server).
package governance
