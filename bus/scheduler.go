package bus

import (
	"log/slog"

	"bus-scheduler/bus/application"
	"bus-scheduler/bus/domain"
	"bus-scheduler/bus/infra"
)

// NewScheduler monta um BatchScheduler com as implementações de infra:
// um Arbiter novo por lote e transferência simulada atrás do Throttle.
func NewScheduler(stats domain.StatsStore, logger *slog.Logger) application.BatchScheduler {
	return application.BatchScheduler{
		NewArbiter:  newArbiter,
		NewTransfer: newTransfer,
		Stats:       stats,
		Logger:      logger,
	}
}

func newArbiter(p domain.Plan, observer func(domain.Admission)) (domain.SlotArbiter, error) {
	return infra.NewArbiter(p.Capacity, p.HighSend, p.HighReceive, infra.WithObserver(observer))
}

func newTransfer(p domain.Plan) domain.Transferer {
	return infra.NewThrottle(infra.NewSimulatedTransfer(p.MaxTransfer.Std(), p.Seed), p.TransfersPerSecond, p.Burst)
}
