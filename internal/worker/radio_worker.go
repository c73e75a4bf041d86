package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/driftblend/api/internal/blend"
	"github.com/driftblend/api/internal/config"
	"github.com/driftblend/api/internal/model"
	"github.com/driftblend/api/internal/spotify"
	"github.com/driftblend/api/internal/store"
)

// RadioWorker composes a station from named seeds and drives playback
// directly: transfer to the device, shuffle off, start.
type RadioWorker struct {
	sessions *spotify.Cache
	users    *store.UserStore
	cfg      config.PlaybackConfig
	logger   *log.Logger
}

func NewRadioWorker(sessions *spotify.Cache, users *store.UserStore, cfg config.PlaybackConfig, logger *log.Logger) *RadioWorker {
	return &RadioWorker{
		sessions: sessions,
		users:    users,
		cfg:      cfg,
		logger:   logger,
	}
}

// ProcessTask handles a radio job.
func (w *RadioWorker) ProcessTask(ctx context.Context, payload []byte) (interface{}, error) {
	var p model.RadioPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decoding radio payload: %w", err)
	}
	result, err := w.playRadio(ctx, p)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (w *RadioWorker) playRadio(ctx context.Context, p model.RadioPayload) (*blend.RadioResult, error) {
	client, err := w.sessions.Get(ctx, p.UserID, p.Username)
	if err != nil {
		return nil, err
	}

	radio := blend.NewRadio(client, w.users, p.UserID, w.logger)
	result, err := radio.Compose(ctx, blend.RadioParams{
		ArtistNames:    p.ArtistNames,
		GenreNames:     p.GenreNames,
		TrackNames:     p.TrackNames,
		Limit:          p.Limit,
		Attributes:     p.Attributes,
		FilterExplicit: p.FilterExplicit,
	})
	if err != nil {
		return nil, err
	}

	if p.Volume != nil {
		if err := client.SetVolume(ctx, *p.Volume, p.Device); err != nil {
			return nil, err
		}
	}
	if err := client.TransferPlayback(ctx, p.Device); err != nil {
		return nil, err
	}
	if err := client.Shuffle(ctx, false, p.Device); err != nil {
		return nil, err
	}
	if err := client.StartPlayback(ctx, spotify.PlayOptions{
		Device: p.Device,
		Tracks: result.TrackIDs,
	}); err != nil {
		return nil, err
	}

	return result, nil
}
