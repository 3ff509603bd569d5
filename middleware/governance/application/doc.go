// Package application contém os casos de uso (regras de aplicação) da
// governança de requisições: decisão de admissão (IP -> usuário -> bypass),
// aquisição de vaga de concorrência com timeout, protocolo de execução
// idempotente e emissão best-effort de eventos de auditoria.
//
// Ele depende apenas do pacote domain e não conhece net/http.
package application
