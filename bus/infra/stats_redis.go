package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bus-scheduler/bus/domain"

	"github.com/redis/go-redis/v9"
)

type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por lote.
	// total e class são cumulativos e não expiram.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackBatches bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackBatches(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackBatches = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "bus:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Prefix() string { return s.prefix }

// Record grava o evento em um único pipeline:
//
//	<prefix>:total                 admitted|timed_out, wait_us
//	<prefix>:minute:<yyyymmddhhmm> admitted|timed_out (com ttl)
//	<prefix>:class                 <dir>/<prio>:admitted|timed_out
//	<prefix>:batch:<id>            admitted|timed_out, wait_us (com ttl, opcional)
func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "timed_out"
	if ev.Admitted {
		field = "admitted"
	}
	waitUS := ev.Waited.Microseconds()

	totalKey := s.prefix + ":total"

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, totalKey, field, 1)
	if ev.Admitted {
		pipe.HIncrBy(ctx, totalKey, "wait_us", waitUS)
	}

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if ev.Task.Direction.Valid() {
		pipe.HIncrBy(ctx, s.prefix+":class", ev.Task.Class()+":"+field, 1)
	}

	if s.trackBatches {
		id := strings.TrimSpace(ev.BatchID)
		if id != "" {
			batchKey := s.prefix + ":batch:" + id
			pipe.HIncrBy(ctx, batchKey, field, 1)
			if ev.Admitted {
				pipe.HIncrBy(ctx, batchKey, "wait_us", waitUS)
			}
			if s.ttl > 0 {
				pipe.Expire(ctx, batchKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
