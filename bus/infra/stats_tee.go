package infra

import (
	"context"
	"errors"

	"bus-scheduler/bus/domain"
)

type teeStatsStore []domain.StatsStore

// TeeStatsStore grava o evento em todos os stores. Um erro não impede os
// demais; os erros voltam juntos.
func TeeStatsStore(stores ...domain.StatsStore) domain.StatsStore {
	out := make(teeStatsStore, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (t teeStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range t {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
