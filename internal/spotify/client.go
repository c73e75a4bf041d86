package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const (
	authURL  = "https://accounts.spotify.com/authorize"
	tokenURL = "https://accounts.spotify.com/api/token"
	baseURL  = "https://api.spotify.com/v1"
)

// Credentials holds the Spotify application credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Client is a playback session for one (user, username) identity.
//
// Construction performs a token lookup and refresh handshake, which is why
// instances are cached (see Cache) instead of rebuilt per call.
type Client struct {
	UserID   string
	Username string

	httpClient *http.Client
	baseURL    string
	rdb        *redis.Client
	logger     *log.Logger
	fading     atomic.Bool
	sleep      func(ctx context.Context, d time.Duration) error
}

func oauthConfig(creds Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes: []string{
			"user-read-playback-state",
			"user-modify-playback-state",
			"user-top-read",
			"playlist-read-private",
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}
}

func tokenKey(userID string) string {
	return fmt.Sprintf("spotify:token:%s", userID)
}

// persistingSource writes refreshed tokens back to Redis so the next
// session for the same user does not repeat the refresh round-trip.
type persistingSource struct {
	src    oauth2.TokenSource
	rdb    *redis.Client
	userID string
	last   string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if data, err := json.Marshal(tok); err == nil {
			p.rdb.Set(context.Background(), tokenKey(p.userID), data, 0)
		}
	}
	return tok, nil
}

// NewClient builds an authenticated session for the given identity. The
// user's OAuth token is read from Redis, where the auth layer stores it.
func NewClient(ctx context.Context, creds Credentials, rdb *redis.Client, userID, username string, logger *log.Logger) (*Client, error) {
	data, err := rdb.Get(ctx, tokenKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: no token for user %s", ErrNotAuthenticated, userID)
		}
		return nil, fmt.Errorf("fetching token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}

	cfg := oauthConfig(creds)
	src := &persistingSource{
		src:    cfg.TokenSource(ctx, &tok),
		rdb:    rdb,
		userID: userID,
		last:   tok.AccessToken,
	}
	// Force a refresh now so construction fails fast on a revoked grant.
	if _, err := src.Token(); err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	return &Client{
		UserID:     userID,
		Username:   username,
		httpClient: oauth2.NewClient(ctx, src),
		baseURL:    baseURL,
		rdb:        rdb,
		logger:     logger.With("user", username),
		sleep:      sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close releases the session's network resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// doRequest performs an authenticated request against the Web API.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result interface{}) error {
	apiURL := c.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Reason  string `json:"reason"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(endpoint, "/me/player") {
			return fmt.Errorf("%w: %s", ErrDeviceUnavailable, apiErr.Error.Message)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error.Message}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
