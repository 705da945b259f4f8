package infra

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"bus-scheduler/bus/domain"
)

// SimulatedTransfer simula o trabalho da tarefa dormindo um tempo aleatório
// em [0, maxWait). A sequência é determinística para a mesma seed.
type SimulatedTransfer struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	maxWait time.Duration
}

func NewSimulatedTransfer(maxWait time.Duration, seed int64) *SimulatedTransfer {
	return &SimulatedTransfer{
		rnd:     rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
		maxWait: maxWait,
	}
}

// Next sorteia a próxima duração.
func (s *SimulatedTransfer) Next() time.Duration {
	if s.maxWait <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.rnd.Int64N(int64(s.maxWait)))
}

func (s *SimulatedTransfer) Transfer(ctx context.Context, _ domain.Task) error {
	d := s.Next()
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
