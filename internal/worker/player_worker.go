// Package worker implements the four job façades: play, fade, blend and
// radio. Each unmarshals its payload and drives the playback client. Errors,
// including mid-run cancellations, propagate to the dispatcher, which
// classifies them. Chained follow-ups (play after blend, fade after play) are
// dispatched as their own jobs so they contend with their standalone
// counterparts for the same user.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/driftblend/api/internal/config"
	"github.com/driftblend/api/internal/device"
	"github.com/driftblend/api/internal/dispatch"
	"github.com/driftblend/api/internal/model"
	"github.com/driftblend/api/internal/spotify"
	"github.com/driftblend/api/internal/store"
)

// Enqueuer queues a chained job under its own operation and dedup key.
type Enqueuer interface {
	Enqueue(ctx context.Context, operation, dedupKey string, payload interface{}) (string, error)
}

// PlayerWorker starts playback, negotiating a device when none is given.
type PlayerWorker struct {
	sessions   *spotify.Cache
	users      *store.UserStore
	jobs       Enqueuer
	negotiator *device.Negotiator
	cfg        config.PlaybackConfig
	clock      device.Clock
	logger     *log.Logger
}

func NewPlayerWorker(sessions *spotify.Cache, users *store.UserStore, jobs Enqueuer, cfg config.PlaybackConfig, logger *log.Logger) *PlayerWorker {
	return &PlayerWorker{
		sessions:   sessions,
		users:      users,
		jobs:       jobs,
		negotiator: device.NewNegotiator(users, cfg.PollInterval, cfg.PollTimeout, logger),
		cfg:        cfg,
		clock:      device.RealClock{},
		logger:     logger,
	}
}

// ProcessTask handles a play job.
func (w *PlayerWorker) ProcessTask(ctx context.Context, payload []byte) (interface{}, error) {
	var p model.PlayPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decoding play payload: %w", err)
	}
	return nil, w.play(ctx, p)
}

func (w *PlayerWorker) play(ctx context.Context, p model.PlayPayload) error {
	client, err := w.sessions.Get(ctx, p.UserID, p.Username)
	if err != nil {
		return err
	}

	deviceID := p.Device
	deviceIsNew := false
	if deviceID == "" {
		result, err := w.negotiator.WaitForNewDevice(ctx, client, p.UserID, p.DeviceID)
		if err != nil {
			return err
		}
		deviceID = result.DeviceID
		deviceIsNew = result.IsNew
	}
	if deviceID == "" {
		return device.ErrNoDeviceAvailable
	}

	if p.Volume != nil {
		if err := client.SetVolume(ctx, *p.Volume, deviceID); err != nil {
			return err
		}
	}

	w.logger.Info("starting playback",
		"user", p.Username,
		"device", deviceID,
		"artist", p.Artist,
		"album", p.Album,
		"playlist", p.Playlist,
		"tracks", len(p.Tracks))

	if err := client.Shuffle(ctx, false, deviceID); err != nil {
		return err
	}
	if err := client.StartPlayback(ctx, spotify.PlayOptions{
		Device:   deviceID,
		Artist:   p.Artist,
		Album:    p.Album,
		Playlist: p.Playlist,
		Tracks:   p.Tracks,
		Retries:  w.cfg.DeviceRetries,
	}); err != nil {
		return err
	}

	if p.Fade != nil {
		if err := w.chainFade(ctx, p, deviceID); err != nil {
			return err
		}
	}

	// A freshly-negotiated device gets its alias persisted only after
	// playback is confirmed live, so a failed start never poisons the map.
	if p.DeviceID != "" && deviceIsNew {
		if err := w.clock.Sleep(ctx, w.cfg.SettleDelay); err != nil {
			return err
		}
		playback, err := client.CurrentPlayback(ctx)
		if err != nil {
			return err
		}
		if playback != nil && playback.IsPlaying {
			if err := w.users.MapDevice(ctx, p.UserID, p.DeviceID, playback.Device.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

// chainFade hands a requested fade to the fade operation instead of ramping
// inline, so it supersedes (and is superseded by) standalone fades for the
// same user.
func (w *PlayerWorker) chainFade(ctx context.Context, p model.PlayPayload, deviceID string) error {
	_, err := w.jobs.Enqueue(ctx, dispatch.TaskTypeFade, p.UserID, model.FadePayload{
		UserID:   p.UserID,
		Username: p.Username,
		Device:   deviceID,
		FadeSpec: *p.Fade,
	})
	return err
}
