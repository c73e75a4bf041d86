package model

import "github.com/driftblend/api/internal/spotify"

// PlayRequest is the play endpoint's body. ReturnEarly selects between
// enqueue-and-return and run-and-await.
type PlayRequest struct {
	Device      string    `json:"device"`
	DeviceID    string    `json:"deviceId"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	Playlist    string    `json:"playlist"`
	Tracks      []string  `json:"tracks" validate:"omitempty,max=500"`
	Volume      *int      `json:"volume" validate:"omitempty,min=0,max=100"`
	Fade        *FadeSpec `json:"fade"`
	ReturnEarly bool      `json:"returnEarly"`
}

// FadeRequest is the fade endpoint's body.
type FadeRequest struct {
	Device      string `json:"device"`
	Start       *int   `json:"start" validate:"omitempty,min=0,max=100"`
	Limit       *int   `json:"limit" validate:"omitempty,min=0,max=100"`
	Seconds     int    `json:"seconds" validate:"omitempty,min=1,max=3600"`
	Step        int    `json:"step" validate:"omitempty,min=-100,max=100"`
	Force       bool   `json:"force"`
	ReturnEarly bool   `json:"returnEarly"`
}

// BlendRequest is the blend endpoint's body.
type BlendRequest struct {
	BlendID        string             `json:"blendId" validate:"required"`
	Device         string             `json:"device"`
	DeviceID       string             `json:"deviceId"`
	Volume         *int               `json:"volume" validate:"omitempty,min=0,max=100"`
	FilterExplicit bool               `json:"filterExplicit"`
	Fade           *FadeSpec          `json:"fade"`
	Play           bool               `json:"play"`
	Attributes     spotify.Attributes `json:"attributes"`
	Order          spotify.OrderSpec  `json:"order"`
	ReturnEarly    bool               `json:"returnEarly"`
}

// RadioRequest is the radio endpoint's body.
type RadioRequest struct {
	ArtistNames    []string           `json:"artistNames" validate:"omitempty,max=5,dive,min=1"`
	GenreNames     []string           `json:"genreNames" validate:"omitempty,max=5,dive,min=1"`
	TrackNames     []string           `json:"trackNames" validate:"omitempty,max=5,dive,min=1"`
	Limit          int                `json:"limit" validate:"omitempty,min=1,max=100"`
	Attributes     spotify.Attributes `json:"attributes"`
	Device         string             `json:"device"`
	Volume         *int               `json:"volume" validate:"omitempty,min=0,max=100"`
	FilterExplicit bool               `json:"filterExplicit"`
	ReturnEarly    bool               `json:"returnEarly"`
}

// PlaybackSnapshot merges the device list with the current playback state.
type PlaybackSnapshot struct {
	Devices  []spotify.Device  `json:"devices"`
	Playback *spotify.Playback `json:"playback"`
}
