package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupStore(t *testing.T) *UserStore {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		rdb.Del(context.Background(), deviceMapKey("test-user"), dislikesKey("test-user"))
		rdb.Close()
	})
	return NewUserStore(rdb)
}

func TestDeviceAliasRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	alias, err := s.DeviceAlias(ctx, "test-user", "bedroom")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if alias != "" {
		t.Errorf("expected no mapping yet, got %q", alias)
	}

	if err := s.MapDevice(ctx, "test-user", "bedroom", "real-device-1"); err != nil {
		t.Fatalf("mapping device: %v", err)
	}

	alias, err = s.DeviceAlias(ctx, "test-user", "bedroom")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if alias != "real-device-1" {
		t.Errorf("expected real-device-1, got %q", alias)
	}

	// Remapping overwrites.
	if err := s.MapDevice(ctx, "test-user", "bedroom", "real-device-2"); err != nil {
		t.Fatalf("remapping device: %v", err)
	}
	alias, _ = s.DeviceAlias(ctx, "test-user", "bedroom")
	if alias != "real-device-2" {
		t.Errorf("expected real-device-2, got %q", alias)
	}

	if alias, err := s.DeviceAlias(ctx, "test-user", ""); err != nil || alias != "" {
		t.Errorf("empty logical id must resolve to nothing, got %q err %v", alias, err)
	}
}

func TestDislikedArtists(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	set, err := s.DislikedArtists(ctx, "test-user")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(set) != 0 {
		t.Errorf("expected empty set, got %v", set)
	}

	if err := s.DislikeArtist(ctx, "test-user", "artist-1"); err != nil {
		t.Fatalf("disliking artist: %v", err)
	}
	if err := s.DislikeArtist(ctx, "test-user", "artist-1"); err != nil {
		t.Fatalf("disliking artist twice: %v", err)
	}

	set, err = s.DislikedArtists(ctx, "test-user")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("expected one artist, got %v", set)
	}
	if _, ok := set["artist-1"]; !ok {
		t.Errorf("expected artist-1 in %v", set)
	}
}
