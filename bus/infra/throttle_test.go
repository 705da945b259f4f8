package infra

import (
	"context"
	"testing"
	"time"

	"bus-scheduler/bus/domain"
)

type countingTransfer struct {
	calls int
}

func (c *countingTransfer) Transfer(context.Context, domain.Task) error {
	c.calls++
	return nil
}

func TestThrottle_NoLimitWhenTPSIsZero(t *testing.T) {
	next := &countingTransfer{}
	th := NewThrottle(next, 0, 0)

	if th.Limiter(domain.Send) != nil {
		t.Fatalf("expected no limiter when tps=0")
	}
	for range 100 {
		if err := th.Transfer(context.Background(), domain.NewTask(domain.Send, domain.Normal)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if next.calls != 100 {
		t.Fatalf("expected 100 delegated transfers, got %d", next.calls)
	}
}

func TestThrottle_LimitersArePerDirection(t *testing.T) {
	th := NewThrottle(nil, 0.02, 1)

	send := th.Limiter(domain.Send)
	recv := th.Limiter(domain.Receive)
	if send == nil || recv == nil || send == recv {
		t.Fatalf("expected one limiter per direction")
	}
	if !send.Allow() {
		t.Fatalf("expected first send Allow to be true")
	}
	if send.Allow() {
		t.Fatalf("expected second immediate send Allow to be false (burst=1)")
	}
	if !recv.Allow() {
		t.Fatalf("expected receive bucket to be independent of send")
	}
}

func TestThrottle_WaitHonorsContext(t *testing.T) {
	next := &countingTransfer{}
	th := NewThrottle(next, 0.02, 1)
	task := domain.NewTask(domain.Receive, domain.High)

	if err := th.Transfer(context.Background(), task); err != nil {
		t.Fatalf("expected first transfer to pass, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := th.Transfer(ctx, task); err == nil {
		t.Fatalf("expected second transfer to fail before the next token")
	}
	if next.calls != 1 {
		t.Fatalf("expected next to be called once, got %d", next.calls)
	}
}

func TestThrottle_DefaultsBurstToOne(t *testing.T) {
	th := NewThrottle(nil, 5, 0)
	if th.Burst() != 1 {
		t.Fatalf("expected burst=1, got %d", th.Burst())
	}
	if th.TPS() != 5 {
		t.Fatalf("expected tps=5, got %v", th.TPS())
	}
}
