package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bus-scheduler/bus/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("bus-scheduler/bus/application")

// ArbiterService concentra a regra de aquisição/liberação de vagas com timeout,
// estatísticas e tracing, sem saber nada sobre HTTP.
type ArbiterService struct {
	Arbiter        domain.SlotArbiter
	AcquireTimeout time.Duration

	Stats   domain.StatsStore
	BatchID string
	Logger  *slog.Logger
}

// Acquire tenta adquirir uma vaga para a tarefa.
// - Se `AcquireTimeout <= 0`, espera indefinidamente (até ctx cancelar).
// - Se `AcquireTimeout > 0`, espera até o timeout.
// Retorna (release, ok). Se ok=false, nenhuma vaga foi adquirida.
func (s ArbiterService) Acquire(ctx context.Context, task domain.Task) (func(), bool) {
	release, err := s.AcquireErr(ctx, task)
	return release, err == nil
}

// AcquireErr é Acquire com o motivo da falha (ctx.Err() ou domain.ErrInvalidTask).
// O release retornado pode ser chamado mais de uma vez; só a primeira chamada
// devolve a vaga.
func (s ArbiterService) AcquireErr(ctx context.Context, task domain.Task) (func(), error) {
	if s.Arbiter == nil {
		return func() {}, nil
	}

	ctx, span := tracer.Start(ctx, "bus.acquire", trace.WithAttributes(
		attribute.String("bus.task.id", task.ID),
		attribute.String("bus.direction", task.Direction.String()),
		attribute.String("bus.priority", task.Priority.String()),
		attribute.String("bus.batch.id", s.BatchID),
	))
	defer span.End()

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.Arbiter.Acquire(acqCtx, task)
	waited := time.Since(start)
	span.SetAttributes(attribute.Int64("bus.wait_us", waited.Microseconds()))

	// tarefa inválida não chegou a esperar: não entra nas estatísticas
	if err == nil || acqCtx.Err() != nil {
		s.record(ctx, domain.StatsEvent{
			BatchID:  s.BatchID,
			Task:     task,
			Admitted: err == nil,
			Waited:   waited,
			At:       time.Now(),
		})
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var once sync.Once
	return func() { once.Do(s.Arbiter.Release) }, nil
}

func (s ArbiterService) record(ctx context.Context, ev domain.StatsEvent) {
	if s.Stats == nil {
		return
	}
	// estatística não pode se perder só porque o ctx da tarefa acabou
	if err := s.Stats.Record(context.WithoutCancel(ctx), ev); err != nil {
		s.logger().Warn("stats record failed", "task", ev.Task.ID, "class", ev.Task.Class(), "err", err)
	}
}

func (s ArbiterService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
