package model

import "github.com/driftblend/api/internal/spotify"

// FadeSpec are the parameters of a stepped volume fade. Start and Limit are
// pointers so omitted values can be derived from device state.
type FadeSpec struct {
	Start   *int `json:"start" validate:"omitempty,min=0,max=100"`
	Limit   *int `json:"limit" validate:"omitempty,min=0,max=100"`
	Seconds int  `json:"seconds" validate:"omitempty,min=1,max=3600"`
	Step    int  `json:"step" validate:"omitempty,min=-100,max=100"`
	Force   bool `json:"force"`
}

// Defaults fills the original's fade defaults: one minute, three points up.
func (f *FadeSpec) Defaults() {
	if f.Seconds == 0 {
		f.Seconds = 60
	}
	if f.Step == 0 {
		f.Step = 3
	}
}

// PlayPayload is the play job's arguments.
type PlayPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`

	Device   string   `json:"device,omitempty"`   // real device id, skips negotiation
	DeviceID string   `json:"deviceId,omitempty"` // logical device reference for negotiation
	Artist   string   `json:"artist,omitempty"`
	Album    string   `json:"album,omitempty"`
	Playlist string   `json:"playlist,omitempty"`
	Tracks   []string `json:"tracks,omitempty"`
	Volume   *int     `json:"volume,omitempty"`
	Fade     *FadeSpec `json:"fade,omitempty"`
}

// FadePayload is the fade job's arguments.
type FadePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`

	Device string `json:"device,omitempty"`
	FadeSpec
}

// BlendPayload is the blend job's arguments.
type BlendPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`

	BlendID        string             `json:"blendId"`
	Device         string             `json:"device,omitempty"`
	DeviceID       string             `json:"deviceId,omitempty"`
	Volume         *int               `json:"volume,omitempty"`
	FilterExplicit bool               `json:"filterExplicit,omitempty"`
	Fade           *FadeSpec          `json:"fade,omitempty"`
	Play           bool               `json:"play,omitempty"`
	Attributes     spotify.Attributes `json:"attributes,omitempty"`
	Order          spotify.OrderSpec  `json:"order,omitempty"`
}

// RadioPayload is the radio job's arguments.
type RadioPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`

	ArtistNames    []string           `json:"artistNames,omitempty"`
	GenreNames     []string           `json:"genreNames,omitempty"`
	TrackNames     []string           `json:"trackNames,omitempty"`
	Limit          int                `json:"limit,omitempty"`
	Attributes     spotify.Attributes `json:"attributes,omitempty"`
	Device         string             `json:"device,omitempty"`
	Volume         *int               `json:"volume,omitempty"`
	FilterExplicit bool               `json:"filterExplicit,omitempty"`
}

// BlendResult is the blend job's synchronous result.
type BlendResult struct {
	Tracks   []string         `json:"tracks"`
	Playlist spotify.Playlist `json:"playlist"`
}
