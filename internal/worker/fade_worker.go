package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/driftblend/api/internal/config"
	"github.com/driftblend/api/internal/fade"
	"github.com/driftblend/api/internal/model"
	"github.com/driftblend/api/internal/spotify"
)

// FadeWorker ramps a device's volume toward a target.
type FadeWorker struct {
	sessions *spotify.Cache
	fader    *fade.Controller
	logger   *log.Logger
}

func NewFadeWorker(sessions *spotify.Cache, cfg config.PlaybackConfig, logger *log.Logger) *FadeWorker {
	return &FadeWorker{
		sessions: sessions,
		fader:    fade.NewController(cfg.PollInterval, cfg.PollTimeout, logger),
		logger:   logger,
	}
}

// ProcessTask handles a fade job.
func (w *FadeWorker) ProcessTask(ctx context.Context, payload []byte) (interface{}, error) {
	var p model.FadePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decoding fade payload: %w", err)
	}
	p.Defaults()

	client, err := w.sessions.Get(ctx, p.UserID, p.Username)
	if err != nil {
		return nil, err
	}

	return nil, w.fader.Run(ctx, client, fade.Params{
		Device:  p.Device,
		Start:   p.Start,
		Limit:   p.Limit,
		Seconds: p.Seconds,
		Step:    p.Step,
		Force:   p.Force,
	})
}
