package domain

import (
	"context"
	"time"
)

// StatsEvent representa o resultado de uma tentativa de aquisição.
//
// Admitted=false significa que o Acquire desistiu (timeout ou cancelamento).
// BatchID pode ser vazio quando a tarefa roda fora de um lote.
type StatsEvent struct {
	BatchID  string
	Task     Task
	Admitted bool
	Waited   time.Duration

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// Implementações podem armazenar em Redis, memória, etc.
// Quem chama trata erro como best-effort (não derruba a tarefa).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
