package domain

import (
	"fmt"
	"time"
)

// Padrões do agendador em lote.
const (
	DefaultCapacity = 3
	DefaultSeed     = 123456789
)

// Plan descreve um lote: o barramento e quantas tarefas de cada tipo rodam nele.
type Plan struct {
	Capacity      int `json:"capacity" yaml:"capacity"`
	HighSend      int `json:"highSend" yaml:"highSend"`
	HighReceive   int `json:"highReceive" yaml:"highReceive"`
	NormalSend    int `json:"normalSend" yaml:"normalSend"`
	NormalReceive int `json:"normalReceive" yaml:"normalReceive"`

	// MaxTransfer é o limite superior (exclusivo) do trabalho simulado por tarefa.
	MaxTransfer Duration `json:"maxTransfer" yaml:"maxTransfer"`
	// TransfersPerSecond limita a banda por direção. 0 desliga o limite.
	TransfersPerSecond float64 `json:"transfersPerSecond" yaml:"transfersPerSecond"`
	Burst              int     `json:"burst" yaml:"burst"`
	// AcquireTimeout 0 espera indefinidamente.
	AcquireTimeout Duration `json:"acquireTimeout" yaml:"acquireTimeout"`
	Seed           int64    `json:"seed" yaml:"seed"`
}

func DefaultPlan() Plan {
	return Plan{
		Capacity:    DefaultCapacity,
		MaxTransfer: Duration(10 * time.Millisecond),
		Seed:        DefaultSeed,
	}
}

func (p Plan) Total() int {
	return p.HighSend + p.HighReceive + p.NormalSend + p.NormalReceive
}

// Count retorna quantas tarefas da classe (dir, prio) o plano cria.
func (p Plan) Count(dir Direction, prio Priority) int {
	switch {
	case dir == Send && prio == High:
		return p.HighSend
	case dir == Receive && prio == High:
		return p.HighReceive
	case dir == Send && prio == Normal:
		return p.NormalSend
	case dir == Receive && prio == Normal:
		return p.NormalReceive
	}
	return 0
}

func (p Plan) Validate() error {
	if p.Capacity <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, ErrInvalidCapacity)
	}
	if p.HighSend < 0 || p.HighReceive < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, ErrInvalidHighCount)
	}
	if p.NormalSend < 0 || p.NormalReceive < 0 {
		return fmt.Errorf("%w: normal task counts must be >= 0", ErrInvalidPlan)
	}
	if p.MaxTransfer < 0 {
		return fmt.Errorf("%w: maxTransfer must be >= 0", ErrInvalidPlan)
	}
	if p.TransfersPerSecond < 0 {
		return fmt.Errorf("%w: transfersPerSecond must be >= 0", ErrInvalidPlan)
	}
	if p.Burst < 0 {
		return fmt.Errorf("%w: burst must be >= 0", ErrInvalidPlan)
	}
	if p.AcquireTimeout < 0 {
		return fmt.Errorf("%w: acquireTimeout must be >= 0", ErrInvalidPlan)
	}
	return nil
}
