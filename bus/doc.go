// Package bus fornece o adapter HTTP (net/http) e o wiring do agendador de barramento.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (direção, prioridade, plano, estado)
//   - application: casos de uso (acquire com timeout, runner, lote) sem net/http
//   - infra: implementações concretas (Arbiter, throttle, stats em memória/Redis)
//   - bus (este pacote): NewScheduler liga application às implementações de infra
//     e Handler expõe os lotes via HTTP, traduzindo erros para status
//
// Fluxo no daemon:
//
//  1. Decodifica o plano (JSON ou YAML) sobre o plano padrão
//  2. Valida e chama BatchScheduler.Run
//  3. Responde o Report em JSON, ou 400 (plano inválido) / 503 (lotes demais)
//
// Variáveis de ambiente dos binários (cmd/busd, cmd/batch) controlam o comportamento,
// como BUS_CAPACITY, HIGH_SEND, NORMAL_RECEIVE e ACQUIRE_TIMEOUT.
package bus
