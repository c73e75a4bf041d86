// Package fade moves a device's volume toward a target in discrete steps.
package fade

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/driftblend/api/internal/device"
	"github.com/driftblend/api/internal/spotify"
)

// PlaybackClient is the slice of the playback client a fade needs.
type PlaybackClient interface {
	CurrentPlayback(ctx context.Context) (*spotify.Playback, error)
	Devices(ctx context.Context) ([]spotify.Device, error)
	Fade(ctx context.Context, ramp spotify.FadeRamp) error
}

// Params describe a fade request. Start and Limit are pointers so an
// omitted value can be derived from device state.
type Params struct {
	Device  string
	Start   *int
	Limit   *int
	Seconds int
	Step    int // signed; sign selects direction
	Force   bool
}

// Controller resolves fade preconditions and delegates the stepped ramp to
// the playback client. Overlapping fades for the same user are serialized
// by job uniqueness, not inside the controller.
type Controller struct {
	Polling time.Duration
	Timeout time.Duration
	Clock   device.Clock
	Logger  *log.Logger
}

func NewController(polling, timeout time.Duration, logger *log.Logger) *Controller {
	return &Controller{
		Polling: polling,
		Timeout: timeout,
		Clock:   device.RealClock{},
		Logger:  logger,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// playingDevice returns the active device if playback is currently live.
func playingDevice(ctx context.Context, client PlaybackClient) (*spotify.Device, error) {
	playback, err := client.CurrentPlayback(ctx)
	if err != nil {
		return nil, err
	}
	if playback == nil || !playback.IsPlaying {
		return nil, nil
	}
	devices, err := client.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].IsActive {
			return &devices[i], nil
		}
	}
	return nil, nil
}

// waitForPlayingDevice polls until a device is actually playing. Fading a
// silent device is meaningless, so this gates every device-less fade.
func (c *Controller) waitForPlayingDevice(ctx context.Context, client PlaybackClient) (*spotify.Device, error) {
	steps := int(c.Timeout / c.Polling)
	for step := 0; step < steps; step++ {
		d, err := playingDevice(ctx, client)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
		if step != steps-1 {
			if err := c.Clock.Sleep(ctx, c.Polling); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

// Resolve fills in the fade's device, start and limit, applying direction
// correction. It returns done=true when the fade is a no-op: the remaining
// distance is not more than what two steps would cover.
func Resolve(p Params, current *spotify.Device) (spotify.FadeRamp, bool) {
	start := 0
	if p.Start != nil {
		start = *p.Start
	} else if current != nil {
		start = current.VolumePercent
	}

	var limit int
	if p.Limit != nil {
		limit = *p.Limit
	} else if p.Step > 0 {
		limit = clamp(start+40, 0, 100)
	} else {
		limit = 0
	}

	if p.Step > 0 && limit <= start {
		limit = clamp(start+40, 0, 100)
	} else if p.Step < 0 && limit >= start {
		limit = 0
	}

	if abs(limit-start) <= 2*abs(p.Step) {
		return spotify.FadeRamp{}, true
	}

	deviceID := p.Device
	if deviceID == "" && current != nil {
		deviceID = current.ID
	}
	return spotify.FadeRamp{
		Device:  deviceID,
		Start:   start,
		Limit:   limit,
		Step:    p.Step,
		Seconds: p.Seconds,
		Force:   p.Force,
	}, false
}

// Run executes a fade, blocking until the ramp completes.
func (c *Controller) Run(ctx context.Context, client PlaybackClient, p Params) error {
	var current *spotify.Device

	if p.Device == "" {
		d, err := c.waitForPlayingDevice(ctx, client)
		if err != nil {
			return err
		}
		if d == nil {
			return device.ErrNoDeviceAvailable
		}
		current = d
	} else if p.Start == nil {
		devices, err := client.Devices(ctx)
		if err != nil {
			return err
		}
		for i := range devices {
			if devices[i].ID == p.Device {
				current = &devices[i]
				break
			}
		}
	}

	ramp, done := Resolve(p, current)
	if done {
		c.Logger.Debug("fade is a no-op", "step", p.Step)
		return nil
	}

	c.Logger.Debug("fading", "device", ramp.Device, "start", ramp.Start, "limit", ramp.Limit, "seconds", ramp.Seconds)
	return client.Fade(ctx, ramp)
}
