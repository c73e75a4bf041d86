// Package store is the persistence collaborator for per-user playback state:
// the logical-device alias map and the disliked-artist set.
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type UserStore struct {
	rdb *redis.Client
}

func NewUserStore(rdb *redis.Client) *UserStore {
	return &UserStore{rdb: rdb}
}

func deviceMapKey(userID string) string {
	return fmt.Sprintf("user:%s:device_map", userID)
}

func dislikesKey(userID string) string {
	return fmt.Sprintf("user:%s:disliked_artists", userID)
}

// DeviceAlias resolves a logical device id to the last confirmed real device
// id, or "" when no mapping exists.
func (s *UserStore) DeviceAlias(ctx context.Context, userID, logicalID string) (string, error) {
	if logicalID == "" {
		return "", nil
	}
	realID, err := s.rdb.HGet(ctx, deviceMapKey(userID), logicalID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("reading device alias: %w", err)
	}
	return realID, nil
}

// MapDevice records that the logical device id resolved to the given real
// device id.
func (s *UserStore) MapDevice(ctx context.Context, userID, logicalID, realID string) error {
	if err := s.rdb.HSet(ctx, deviceMapKey(userID), logicalID, realID).Err(); err != nil {
		return fmt.Errorf("writing device alias: %w", err)
	}
	return nil
}

// DislikedArtists returns the user's disliked artist id set.
func (s *UserStore) DislikedArtists(ctx context.Context, userID string) (map[string]struct{}, error) {
	ids, err := s.rdb.SMembers(ctx, dislikesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading disliked artists: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// DislikeArtist adds an artist to the user's disliked set.
func (s *UserStore) DislikeArtist(ctx context.Context, userID, artistID string) error {
	if err := s.rdb.SAdd(ctx, dislikesKey(userID), artistID).Err(); err != nil {
		return fmt.Errorf("writing disliked artist: %w", err)
	}
	return nil
}
