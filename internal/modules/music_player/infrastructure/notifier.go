package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// DefaultNotificationBufferSize is the default number of pending notifications.
const DefaultNotificationBufferSize = 100

// Embed colors.
const (
	colorRed    = 0xE74C3C
	colorYellow = 0xF1C40F
)

// notification is one embed waiting to be delivered.
type notification struct {
	kind      string
	channelID snowflake.ID
	build     func(ctx context.Context) *discordgo.MessageEmbed
}

// Notifier delivers playback notifications to Discord text channels from a
// single worker goroutine. Publishing never blocks.
type Notifier struct {
	userInfo   ports.UserInfoProvider
	httpClient *http.Client
	send       func(channelID string, embed *discordgo.MessageEmbed) error

	queue  chan notification
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ ports.LogSinkProvider = (*Notifier)(nil)

// NewNotifier creates a new Notifier and starts its worker.
func NewNotifier(
	session *discordgo.Session,
	userInfo ports.UserInfoProvider,
	bufferSize int,
) *Notifier {
	return newNotifier(func(channelID string, embed *discordgo.MessageEmbed) error {
		_, err := session.ChannelMessageSendEmbed(channelID, embed)
		return err
	}, userInfo, bufferSize)
}

func newNotifier(
	send func(channelID string, embed *discordgo.MessageEmbed) error,
	userInfo ports.UserInfoProvider,
	bufferSize int,
) *Notifier {
	if bufferSize <= 0 {
		bufferSize = DefaultNotificationBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		userInfo: userInfo,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		send:   send,
		queue:  make(chan notification, bufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	n.wg.Add(1)
	go n.dispatch()

	return n
}

// SinkFor returns a LogSink reporting to channelID.
func (n *Notifier) SinkFor(guildID, channelID snowflake.ID) ports.LogSink {
	return &channelSink{notifier: n, guildID: guildID, channelID: channelID}
}

// Close stops the worker. Pending notifications are discarded.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	n.cancel()
	n.wg.Wait()
}

func (n *Notifier) dispatch() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case item := <-n.queue:
			embed := item.build(n.ctx)
			if err := n.send(item.channelID.String(), embed); err != nil {
				slog.Error("failed to send notification",
					"type", item.kind,
					"channel", item.channelID,
					"error", err,
				)
			}
		}
	}
}

// publish enqueues item, dropping it with a warning if the buffer is full.
func (n *Notifier) publish(item notification) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		slog.Warn("attempted to publish to closed notifier", "type", item.kind)
		return
	}

	select {
	case n.queue <- item:
		slog.Debug("published notification", "type", item.kind, "channel", item.channelID)
	default:
		slog.Warn("notification buffer full, dropping notification", "type", item.kind)
	}
}

// channelSink is the LogSink of one session.
type channelSink struct {
	notifier  *Notifier
	guildID   snowflake.ID
	channelID snowflake.ID
}

func (s *channelSink) NowPlaying(info domain.NowPlaying) {
	s.notifier.publish(notification{
		kind:      "now_playing",
		channelID: s.channelID,
		build: func(ctx context.Context) *discordgo.MessageEmbed {
			requester := s.notifier.requesterInfo(ctx, info.GuildID, info.Track.RequesterID)
			thumbnail := s.notifier.bestThumbnail(ctx, info.Track)
			return nowPlayingEmbed(info, requester, thumbnail)
		},
	})
}

func (s *channelSink) TrackStuck(info domain.StuckTrack) {
	s.notifier.publish(notification{
		kind:      "track_stuck",
		channelID: s.channelID,
		build: func(context.Context) *discordgo.MessageEmbed {
			return stuckTrackEmbed(info)
		},
	})
}

func (s *channelSink) PlaybackError(info domain.PlaybackError) {
	s.notifier.publish(notification{
		kind:      "playback_error",
		channelID: s.channelID,
		build: func(context.Context) *discordgo.MessageEmbed {
			return playbackErrorEmbed(info)
		},
	})
}

func (n *Notifier) requesterInfo(ctx context.Context, guildID, userID snowflake.ID) *ports.UserInfo {
	if n.userInfo == nil {
		return &ports.UserInfo{DisplayName: "Unknown"}
	}
	info, err := n.userInfo.GetUserInfo(ctx, guildID, userID)
	if err != nil {
		slog.Warn("failed to fetch requester info", "guild", guildID, "user", userID, "error", err)
		return &ports.UserInfo{DisplayName: "Unknown"}
	}
	return info
}

func nowPlayingEmbed(
	info domain.NowPlaying,
	requester *ports.UserInfo,
	thumbnailURL string,
) *discordgo.MessageEmbed {
	track := info.Track
	source := track.Source()

	artist := track.Artist
	if artist == "" {
		artist = "Unknown"
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing",
		},
		Title:     track.Title,
		URL:       track.URI,
		Color:     source.Color(),
		Timestamp: track.EnqueuedAt.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Artist",
				Value:  artist,
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  track.FormattedDuration(),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("Requested by %s", requester.DisplayName),
			IconURL: requester.AvatarURL,
		},
	}

	if info.QueueLength > 1 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Up Next",
			Value:  fmt.Sprintf("%d track(s)", info.QueueLength-1),
			Inline: true,
		})
	}
	if info.Loop {
		embed.Author.Name = "Now Playing (looping)"
	}
	if thumbnailURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{
			URL: thumbnailURL,
		}
	}

	return embed
}

func stuckTrackEmbed(info domain.StuckTrack) *discordgo.MessageEmbed {
	description := fmt.Sprintf(
		"**%s** produced no audio for %s and was skipped.",
		info.Track.Title,
		info.Threshold,
	)
	if info.Next != nil {
		description += fmt.Sprintf("\nUp next: **%s**", info.Next.Title)
	}

	return &discordgo.MessageEmbed{
		Description: description,
		Color:       colorYellow,
	}
}

func playbackErrorEmbed(info domain.PlaybackError) *discordgo.MessageEmbed {
	message := "unknown error"
	if info.Err != nil {
		message = info.Err.Error()
	}

	return &discordgo.MessageEmbed{
		Title:       "Playback Error",
		Description: fmt.Sprintf("Failed to play **%s**: %s", info.Track.Title, message),
		Color:       colorRed,
	}
}

// bestThumbnail attempts to find the best quality thumbnail for the track.
func (n *Notifier) bestThumbnail(ctx context.Context, track *domain.Track) string {
	switch track.Source() {
	case domain.TrackSourceYouTube:
		if videoID := youTubeVideoID(track.URI); videoID != "" {
			return n.youTubeThumbnail(ctx, videoID, track.ArtworkURL)
		}
		return track.ArtworkURL
	case domain.TrackSourceTwitch:
		return n.twitchThumbnail(ctx, track.ArtworkURL)
	default:
		return track.ArtworkURL
	}
}

// youTubeThumbnail tries to find the highest quality YouTube thumbnail available.
func (n *Notifier) youTubeThumbnail(ctx context.Context, videoID, fallbackURL string) string {
	qualities := []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, quality := range qualities {
		url := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if n.urlExists(ctx, url) {
			return url
		}
	}

	return fallbackURL
}

// twitchThumbnail tries to get a higher resolution Twitch thumbnail.
func (n *Notifier) twitchThumbnail(ctx context.Context, artworkURL string) string {
	if artworkURL == "" {
		return ""
	}

	highResURL := strings.Replace(artworkURL, "440x248", "1280x720", 1)
	if highResURL == artworkURL {
		return artworkURL
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if n.urlExists(ctx, highResURL) {
		return highResURL
	}

	return artworkURL
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// youTubeVideoID extracts the video ID from a watch or short link.
func youTubeVideoID(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}
	if domain.MatchesHost(host, []string{"youtube.com"}) {
		return u.Query().Get("v")
	}
	return ""
}
