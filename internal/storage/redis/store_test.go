package redis

import (
	"context"
	"testing"

	"github.com/bcnelson/host-dashboard/internal/storage"
	"github.com/bcnelson/host-dashboard/internal/storage/storagetest"
	"github.com/google/uuid"
)

func TestTaskStore(t *testing.T) {
	ctx := context.Background()
	probe, err := New(ctx, Options{Addr: "localhost:6379"})
	if err != nil {
		t.Skip("Redis not available, skipping test")
	}
	probe.Close()

	storagetest.TaskStore(t, func(t *testing.T) storage.TaskStore {
		prefix := "hostdash-test-" + uuid.NewString()
		s, err := New(ctx, Options{Addr: "localhost:6379", Prefix: prefix})
		if err != nil {
			t.Fatalf("connecting to redis: %v", err)
		}
		t.Cleanup(func() {
			keys, _ := s.client.Keys(ctx, prefix+":*").Result()
			if len(keys) > 0 {
				s.client.Del(ctx, keys...)
			}
			s.Close()
		})
		return s
	})
}
