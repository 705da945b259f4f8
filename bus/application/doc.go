// Package application contém os casos de uso do barramento: aquisição de vaga com
// timeout, execução de uma tarefa (acquire → transfer → release) e o agendador
// em lote que dispara as quatro classes de tarefas.
//
// Ele depende apenas do pacote domain e não conhece net/http nem as
// implementações concretas: o Arbiter e o Transferer chegam por fábricas.
// Ex.: BatchScheduler.Run(ctx, plan) retorna um Report.
package application
