package infra

import (
	"context"
	"errors"
	"testing"

	"bus-scheduler/bus/domain"
)

type failingStats struct{ err error }

func (f failingStats) Record(context.Context, domain.StatsEvent) error { return f.err }

func TestTeeStatsStore_RecordsInAllAndJoinsErrors(t *testing.T) {
	a := NewMemoryStatsStore()
	b := NewMemoryStatsStore()
	boom := errors.New("boom")
	tee := TeeStatsStore(a, nil, failingStats{err: boom}, b)

	err := tee.Record(context.Background(), domain.StatsEvent{Task: domain.NewTask(domain.Send, domain.High), Admitted: true})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if a.Total().Admitted != 1 || b.Total().Admitted != 1 {
		t.Fatalf("expected both memory stores to record despite the failure")
	}
}
