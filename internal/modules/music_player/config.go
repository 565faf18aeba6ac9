package music_player

import "time"

// Config holds the music player module configuration.
type Config struct {
	// Lavalink is used for track resolution when an address is set;
	// otherwise references are resolved locally with yt-dlp.
	LavalinkAddress  string `env:"LAVALINK_ADDRESS"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"   envDefault:"false"`

	PlaylistLimit       int           `env:"PLAYLIST_LIMIT"        envDefault:"100"`
	LoadTimeout         time.Duration `env:"LOAD_TIMEOUT"          envDefault:"30s"`
	CatalogEntryTimeout time.Duration `env:"CATALOG_ENTRY_TIMEOUT" envDefault:"5s"`
	CatalogRateLimit    float64       `env:"CATALOG_RATE_LIMIT"    envDefault:"10"`
	CatalogRateBurst    int           `env:"CATALOG_RATE_BURST"    envDefault:"20"`
	CatalogHosts        []string      `env:"CATALOG_HOSTS"         envDefault:"deezer.com"`
	AllowedHosts        []string      `env:"ALLOWED_HOSTS"`

	StuckThreshold time.Duration `env:"STUCK_THRESHOLD" envDefault:"10s"`
	FrameBuffer    int           `env:"FRAME_BUFFER"    envDefault:"50"`
	DefaultVolume  int           `env:"DEFAULT_VOLUME"  envDefault:"100"`

	NotificationBuffer int `env:"NOTIFICATION_BUFFER" envDefault:"100"`

	YTDLPPath  string `env:"YTDLP_PATH"`
	FFmpegPath string `env:"FFMPEG_PATH"`
}

// UseLavalink reports whether references are resolved through Lavalink.
func (c *Config) UseLavalink() bool {
	return c.LavalinkAddress != ""
}
