package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// deviceRetryDelay spaces out retries of device-sensitive player calls.
var deviceRetryDelay = 500 * time.Millisecond

// Devices lists the user's known playback devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var resp struct {
		Devices []Device `json:"devices"`
	}
	if err := c.doRequest(ctx, "GET", "/me/player/devices", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// CurrentPlayback returns the playback snapshot, or nil when nothing is
// playing on any device.
func (c *Client) CurrentPlayback(ctx context.Context) (*Playback, error) {
	var resp Playback
	if err := c.doRequest(ctx, "GET", "/me/player", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Device.ID == "" {
		return nil, nil
	}
	return &resp, nil
}

// ActiveDevice returns the device the service reports as active, or the
// first known device when onlyActive is false. Returns nil when the device
// list is empty.
func (c *Client) ActiveDevice(ctx context.Context, onlyActive bool) (*Device, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].IsActive {
			return &devices[i], nil
		}
	}
	if !onlyActive && len(devices) > 0 {
		return &devices[0], nil
	}
	return nil, nil
}

// PlayOptions selects what to play and where.
type PlayOptions struct {
	Device   string
	Artist   string   // artist URI or id
	Album    string   // album URI or id
	Playlist string   // playlist URI
	Tracks   []string // track ids
	Retries  int      // retry count for device-unavailable failures
}

func contextURI(kind, v string) string {
	if v == "" {
		return ""
	}
	if len(v) > 8 && v[:8] == "spotify:" {
		return v
	}
	return fmt.Sprintf("spotify:%s:%s", kind, v)
}

// StartPlayback starts or resumes playback.
func (c *Client) StartPlayback(ctx context.Context, opts PlayOptions) error {
	q := url.Values{}
	if opts.Device != "" {
		q.Set("device_id", opts.Device)
	}

	body := map[string]interface{}{}
	switch {
	case len(opts.Tracks) > 0:
		uris := make([]string, len(opts.Tracks))
		for i, id := range opts.Tracks {
			uris[i] = contextURI("track", id)
		}
		body["uris"] = uris
	case opts.Playlist != "":
		body["context_uri"] = opts.Playlist
	case opts.Album != "":
		body["context_uri"] = contextURI("album", opts.Album)
	case opts.Artist != "":
		body["context_uri"] = contextURI("artist", opts.Artist)
	}

	return c.withDeviceRetry(ctx, opts.Retries, func() error {
		return c.doRequest(ctx, "PUT", "/me/player/play", q, body, nil)
	})
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context, device string, retries int) error {
	q := deviceQuery(device)
	return c.withDeviceRetry(ctx, retries, func() error {
		return c.doRequest(ctx, "PUT", "/me/player/pause", q, nil, nil)
	})
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context, device string, retries int) error {
	q := deviceQuery(device)
	return c.withDeviceRetry(ctx, retries, func() error {
		return c.doRequest(ctx, "POST", "/me/player/next", q, nil, nil)
	})
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context, device string, retries int) error {
	q := deviceQuery(device)
	return c.withDeviceRetry(ctx, retries, func() error {
		return c.doRequest(ctx, "POST", "/me/player/previous", q, nil, nil)
	})
}

// TransferPlayback moves playback to the given device.
func (c *Client) TransferPlayback(ctx context.Context, device string) error {
	if device == "" {
		return nil
	}
	body := map[string]interface{}{
		"device_ids": []string{device},
		"play":       true,
	}
	return c.doRequest(ctx, "PUT", "/me/player", nil, body, nil)
}

// Shuffle toggles shuffle on the given device.
func (c *Client) Shuffle(ctx context.Context, state bool, device string) error {
	q := deviceQuery(device)
	q.Set("state", strconv.FormatBool(state))
	return c.doRequest(ctx, "PUT", "/me/player/shuffle", q, nil, nil)
}

// SetVolume sets the device volume percentage.
func (c *Client) SetVolume(ctx context.Context, percent int, device string) error {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	q := deviceQuery(device)
	q.Set("volume_percent", strconv.Itoa(percent))
	return c.doRequest(ctx, "PUT", "/me/player/volume", q, nil, nil)
}

func deviceQuery(device string) url.Values {
	q := url.Values{}
	if device != "" {
		q.Set("device_id", device)
	}
	return q
}

func (c *Client) withDeviceRetry(ctx context.Context, retries int, call func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = call()
		if err == nil || !errors.Is(err, ErrDeviceUnavailable) || attempt >= retries {
			return err
		}
		if serr := c.sleep(ctx, deviceRetryDelay); serr != nil {
			return serr
		}
	}
}

// FadeRamp describes a blocking stepped volume ramp.
type FadeRamp struct {
	Device  string
	Start   int
	Limit   int
	Step    int // signed; sign selects direction
	Seconds int
	Force   bool
}

// Fade moves the device volume from Start to Limit in discrete steps spread
// across the given duration. The call blocks until the ramp completes or the
// context is cancelled. A second concurrent ramp on the same session is
// dropped unless Force is set.
func (c *Client) Fade(ctx context.Context, ramp FadeRamp) error {
	if ramp.Step == 0 {
		return fmt.Errorf("spotify: fade step must be non-zero")
	}
	if !ramp.Force && !c.fading.CompareAndSwap(false, true) {
		c.logger.Debug("fade already in progress, skipping")
		return nil
	}
	if ramp.Force {
		c.fading.Store(true)
	}
	defer c.fading.Store(false)

	distance := ramp.Limit - ramp.Start
	if distance == 0 {
		return nil
	}
	steps := distance / ramp.Step
	if steps < 0 {
		return fmt.Errorf("spotify: fade step has wrong sign for limit %d from %d", ramp.Limit, ramp.Start)
	}
	if distance%ramp.Step != 0 {
		steps++
	}

	interval := time.Duration(ramp.Seconds) * time.Second / time.Duration(steps)
	volume := ramp.Start

	for i := 0; i < steps; i++ {
		volume += ramp.Step
		if (ramp.Step > 0 && volume > ramp.Limit) || (ramp.Step < 0 && volume < ramp.Limit) {
			volume = ramp.Limit
		}
		if err := c.SetVolume(ctx, volume, ramp.Device); err != nil {
			return err
		}
		if volume == ramp.Limit {
			break
		}
		if err := c.sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}
