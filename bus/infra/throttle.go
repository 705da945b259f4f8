package infra

import (
	"context"

	"bus-scheduler/bus/domain"

	"golang.org/x/time/rate"
)

// Throttle limita a banda do barramento com um token bucket (x/time/rate)
// por direção e delega a transferência para `next`.
//
// Com tps <= 0 não há limite.
type Throttle struct {
	next     domain.Transferer
	tps      rate.Limit
	burst    int
	limiters map[domain.Direction]*rate.Limiter
}

func NewThrottle(next domain.Transferer, tps float64, burst int) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	t := &Throttle{next: next, tps: rate.Limit(tps), burst: burst}
	if tps > 0 {
		t.limiters = make(map[domain.Direction]*rate.Limiter, len(domain.Directions))
		for _, d := range domain.Directions {
			t.limiters[d] = rate.NewLimiter(t.tps, burst)
		}
	}
	return t
}

func (t *Throttle) TPS() float64 { return float64(t.tps) }
func (t *Throttle) Burst() int   { return t.burst }

// Limiter retorna o limiter da direção, ou nil se não houver limite.
func (t *Throttle) Limiter(d domain.Direction) *rate.Limiter {
	return t.limiters[d]
}

// Transfer implementa domain.Transferer.
func (t *Throttle) Transfer(ctx context.Context, task domain.Task) error {
	if lim := t.Limiter(task.Direction); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}
	if t.next == nil {
		return nil
	}
	return t.next.Transfer(ctx, task)
}
