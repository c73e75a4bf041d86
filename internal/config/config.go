package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Spotify   SpotifyConfig
	Playback  PlaybackConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type PlaybackConfig struct {
	PollInterval  time.Duration // interval between device list polls
	PollTimeout   time.Duration // budget for device negotiation
	SettleDelay   time.Duration // wait before confirming playback for alias mapping
	DeviceRetries int           // retries for device-sensitive playback calls
}

type RateLimitConfig struct {
	PlayPerMin    int
	FadePerMin    int
	ControlPerMin int
	BlendPerMin   int
	RadioPerMin   int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("spotify.client_id", "")
	viper.SetDefault("spotify.client_secret", "")
	viper.SetDefault("spotify.redirect_uri", "http://localhost:3000/callback")
	viper.SetDefault("playback.poll_interval", "500ms")
	viper.SetDefault("playback.poll_timeout", "10s")
	viper.SetDefault("playback.settle_delay", "5s")
	viper.SetDefault("playback.device_retries", 0)
	viper.SetDefault("ratelimit.play_per_min", 30)
	viper.SetDefault("ratelimit.fade_per_min", 30)
	viper.SetDefault("ratelimit.control_per_min", 60)
	viper.SetDefault("ratelimit.blend_per_min", 10)
	viper.SetDefault("ratelimit.radio_per_min", 10)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		Spotify: SpotifyConfig{
			ClientID:     viper.GetString("spotify.client_id"),
			ClientSecret: viper.GetString("spotify.client_secret"),
			RedirectURI:  viper.GetString("spotify.redirect_uri"),
		},
		Playback: PlaybackConfig{
			PollInterval:  viper.GetDuration("playback.poll_interval"),
			PollTimeout:   viper.GetDuration("playback.poll_timeout"),
			SettleDelay:   viper.GetDuration("playback.settle_delay"),
			DeviceRetries: viper.GetInt("playback.device_retries"),
		},
		RateLimit: RateLimitConfig{
			PlayPerMin:    viper.GetInt("ratelimit.play_per_min"),
			FadePerMin:    viper.GetInt("ratelimit.fade_per_min"),
			ControlPerMin: viper.GetInt("ratelimit.control_per_min"),
			BlendPerMin:   viper.GetInt("ratelimit.blend_per_min"),
			RadioPerMin:   viper.GetInt("ratelimit.radio_per_min"),
		},
	}

	return cfg, nil
}
