package service

import (
	"context"

	"github.com/driftblend/api/internal/config"
	"github.com/driftblend/api/internal/model"
	"github.com/driftblend/api/internal/spotify"
)

// PlaybackService reads the account's live playback state and applies the
// direct transport controls: pause, next, previous.
type PlaybackService struct {
	sessions *spotify.Cache
	cfg      config.PlaybackConfig
}

func NewPlaybackService(sessions *spotify.Cache, cfg config.PlaybackConfig) *PlaybackService {
	return &PlaybackService{sessions: sessions, cfg: cfg}
}

// Snapshot merges the device list with the current playback. Either half may
// be unavailable on its own; the snapshot fails only when both are.
func (s *PlaybackService) Snapshot(ctx context.Context, userID, username string) (*model.PlaybackSnapshot, error) {
	client, err := s.sessions.Get(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	devices, devErr := client.Devices(ctx)
	playback, playErr := client.CurrentPlayback(ctx)
	if devErr != nil && playErr != nil {
		return nil, devErr
	}

	if playback != nil {
		for i := range devices {
			devices[i].IsPlaying = devices[i].ID == playback.Device.ID && playback.IsPlaying
		}
	}

	return &model.PlaybackSnapshot{Devices: devices, Playback: playback}, nil
}

// Pause stops playback on the given device, or the active one when empty.
func (s *PlaybackService) Pause(ctx context.Context, userID, username, device string) error {
	client, err := s.sessions.Get(ctx, userID, username)
	if err != nil {
		return err
	}
	return client.Pause(ctx, device, s.cfg.DeviceRetries)
}

// Next skips to the next track.
func (s *PlaybackService) Next(ctx context.Context, userID, username, device string) error {
	client, err := s.sessions.Get(ctx, userID, username)
	if err != nil {
		return err
	}
	return client.Next(ctx, device, s.cfg.DeviceRetries)
}

// Previous skips to the previous track.
func (s *PlaybackService) Previous(ctx context.Context, userID, username, device string) error {
	client, err := s.sessions.Get(ctx, userID, username)
	if err != nil {
		return err
	}
	return client.Previous(ctx, device, s.cfg.DeviceRetries)
}
