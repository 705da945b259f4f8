package infra

import (
	"context"
	"os"
	"testing"
	"time"

	"bus-scheduler/bus/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisStatsStore_NilClientIsNoop(t *testing.T) {
	var s *RedisStatsStore
	if err := s.Record(context.Background(), domain.StatsEvent{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := NewRedisStatsStore(nil).Record(context.Background(), domain.StatsEvent{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestRedisStatsStore_Options(t *testing.T) {
	s := NewRedisStatsStore(nil, WithStatsPrefix(":bus:test:"), WithStatsBucket(" NONE "))
	if s.Prefix() != "bus:test" {
		t.Fatalf("expected trimmed prefix, got %q", s.Prefix())
	}
	if s.bucket != "none" {
		t.Fatalf("expected normalized bucket, got %q", s.bucket)
	}
}

// Precisa de um Redis real: REDIS_ADDR=localhost:6379 go test ./...
func TestRedisStatsStore_Record(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	prefix := "bus:test:" + uuid.NewString()
	s := NewRedisStatsStore(rdb, WithStatsPrefix(prefix), WithStatsTTL(time.Minute), WithStatsTrackBatches(true))
	t.Cleanup(func() {
		keys, _ := rdb.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			_ = rdb.Del(ctx, keys...).Err()
		}
	})

	task := domain.NewTask(domain.Send, domain.High)
	if err := s.Record(ctx, domain.StatsEvent{BatchID: "b1", Task: task, Admitted: true, Waited: 3 * time.Millisecond}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, domain.StatsEvent{BatchID: "b1", Task: task, Admitted: false}); err != nil {
		t.Fatalf("record: %v", err)
	}

	total, err := rdb.HGetAll(ctx, prefix+":total").Result()
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if total["admitted"] != "1" || total["timed_out"] != "1" || total["wait_us"] != "3000" {
		t.Fatalf("unexpected total hash: %v", total)
	}
	class, _ := rdb.HGet(ctx, prefix+":class", "send/high:admitted").Result()
	if class != "1" {
		t.Fatalf("expected class counter 1, got %q", class)
	}
	ttl, _ := rdb.TTL(ctx, prefix+":batch:b1").Result()
	if ttl <= 0 {
		t.Fatalf("expected ttl on batch key, got %s", ttl)
	}
}
