package infra

import (
	"context"
	"sync"
	"time"

	"bus-scheduler/bus/domain"
)

type Counters struct {
	Admitted int64         `json:"admitted"`
	TimedOut int64         `json:"timedOut"`
	Waited   time.Duration `json:"waitedNs"`
}

// MeanWait é a espera média das tarefas admitidas.
func (c Counters) MeanWait() time.Duration {
	if c.Admitted == 0 {
		return 0
	}
	return c.Waited / time.Duration(c.Admitted)
}

// StatsSnapshot é uma cópia dos contadores, pronta para serializar.
type StatsSnapshot struct {
	Total   Counters            `json:"total"`
	ByClass map[string]Counters `json:"byClass"`
	ByBatch map[string]Counters `json:"byBatch,omitempty"`
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes, para o CLI e para o daemon sem Redis.
//
// Não faz expiração: com WithTrackBatches o mapa por lote cresce sem limite.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byClass map[string]Counters
	byBatch map[string]Counters

	trackBatches bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackBatches(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackBatches = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byClass: make(map[string]Counters),
		byBatch: make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = add(s.total, ev)
	class := ev.Task.Class()
	s.byClass[class] = add(s.byClass[class], ev)
	if s.trackBatches && ev.BatchID != "" {
		s.byBatch[ev.BatchID] = add(s.byBatch[ev.BatchID], ev)
	}
	return nil
}

func add(c Counters, ev domain.StatsEvent) Counters {
	if ev.Admitted {
		c.Admitted++
		c.Waited += ev.Waited
	} else {
		c.TimedOut++
	}
	return c
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByClass() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounters(s.byClass)
}

func (s *MemoryStatsStore) ByBatch() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounters(s.byBatch)
}

func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{Total: s.total, ByClass: copyCounters(s.byClass)}
	if s.trackBatches {
		snap.ByBatch = copyCounters(s.byBatch)
	}
	return snap
}

func copyCounters(in map[string]Counters) map[string]Counters {
	out := make(map[string]Counters, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
