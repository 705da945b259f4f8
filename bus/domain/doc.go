// Package domain define contratos e tipos de domínio do barramento compartilhado.
//
// Este pacote não depende de net/http nem de implementações concretas.
// Aqui vivem as direções (Send/Receive), as prioridades (High/Normal), a tarefa,
// o estado observável do barramento e as interfaces que a camada infra implementa
// (SlotArbiter, Transferer, StatsStore).
package domain
