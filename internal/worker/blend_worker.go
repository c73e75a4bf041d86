package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/driftblend/api/internal/blend"
	"github.com/driftblend/api/internal/dispatch"
	"github.com/driftblend/api/internal/model"
	"github.com/driftblend/api/internal/spotify"
	"github.com/driftblend/api/internal/store"
)

// The placeholder playlist gets overwritten on every blend; renaming it is
// how a user keeps a mix.
const (
	BlendPlaylistName        = "Driftblend: Placeholder"
	BlendPlaylistDescription = "This playlist will be overwritten at the next blend usage. " +
		"You can save the playlist by simply renaming it."
)

// BlendWorker composes a personalized mix into the placeholder playlist and
// optionally starts playing it.
type BlendWorker struct {
	sessions *spotify.Cache
	users    *store.UserStore
	jobs     Enqueuer
	logger   *log.Logger
}

func NewBlendWorker(sessions *spotify.Cache, users *store.UserStore, jobs Enqueuer, logger *log.Logger) *BlendWorker {
	return &BlendWorker{
		sessions: sessions,
		users:    users,
		jobs:     jobs,
		logger:   logger,
	}
}

// ProcessTask handles a blend job.
func (w *BlendWorker) ProcessTask(ctx context.Context, payload []byte) (interface{}, error) {
	var p model.BlendPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decoding blend payload: %w", err)
	}
	result, err := w.blend(ctx, p)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (w *BlendWorker) blend(ctx context.Context, p model.BlendPayload) (*model.BlendResult, error) {
	profile, ok := blend.Profiles[p.BlendID]
	if !ok {
		return nil, fmt.Errorf("unknown blend %q", p.BlendID)
	}

	client, err := w.sessions.Get(ctx, p.UserID, p.Username)
	if err != nil {
		return nil, err
	}

	composer := blend.NewComposer(client, w.users, p.UserID, w.logger)
	tracks, err := composer.GenerateTracks(ctx, profile, blend.Options{
		Attributes:     p.Attributes,
		Order:          p.Order,
		FilterExplicit: p.FilterExplicit,
	})
	if err != nil {
		return nil, err
	}

	playlist, err := w.placeholderPlaylist(ctx, client)
	if err != nil {
		return nil, err
	}
	if err := client.ReplacePlaylistTracks(ctx, playlist.ID, tracks); err != nil {
		return nil, err
	}

	if p.Play {
		uri := playlist.URI
		if uri == "" {
			uri = "spotify:playlist:" + playlist.ID
		}
		w.logger.Info("playing blend", "blend", p.BlendID, "playlist", playlist.ID)
		if err := w.chainPlay(ctx, p, uri); err != nil {
			return nil, err
		}
	}

	return &model.BlendResult{Tracks: tracks, Playlist: *playlist}, nil
}

// chainPlay dispatches the follow-up play as its own job, so it supersedes
// any in-flight play for the same user.
func (w *BlendWorker) chainPlay(ctx context.Context, p model.BlendPayload, playlistURI string) error {
	_, err := w.jobs.Enqueue(ctx, dispatch.TaskTypePlay, p.UserID, model.PlayPayload{
		UserID:   p.UserID,
		Username: p.Username,
		Device:   p.Device,
		DeviceID: p.DeviceID,
		Playlist: playlistURI,
		Volume:   p.Volume,
		Fade:     p.Fade,
	})
	return err
}

// placeholderPlaylist finds the well-known playlist, creating it once per
// user on first use.
func (w *BlendWorker) placeholderPlaylist(ctx context.Context, client *spotify.Client) (*spotify.Playlist, error) {
	playlists, err := client.CurrentUserPlaylists(ctx, 50)
	if err != nil {
		return nil, err
	}
	for i := range playlists {
		if playlists[i].Name == BlendPlaylistName {
			return &playlists[i], nil
		}
	}
	return client.CreatePlaylist(ctx, BlendPlaylistName, BlendPlaylistDescription)
}
