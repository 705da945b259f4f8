// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Arbiter: o monitor do barramento (vagas, direção, barreira de prioridade)
//   - Throttle: banda por direção usando golang.org/x/time/rate
//   - SimulatedTransfer: trabalho simulado com duração aleatória
//   - MemoryStatsStore / RedisStatsStore: estatísticas de admissão
package infra
