package spotify

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable is returned when the player rejects a call
	// because the target device is gone or restricted.
	ErrDeviceUnavailable = errors.New("spotify: device unavailable")

	// ErrNotAuthenticated is returned when no token is available for the user.
	ErrNotAuthenticated = errors.New("spotify: not authenticated")
)

// APIError is a non-2xx response from the Spotify Web API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify: API error: status %d", e.Status)
	}
	return fmt.Sprintf("spotify: API error: status %d: %s", e.Status, e.Message)
}
