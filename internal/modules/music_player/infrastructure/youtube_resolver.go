package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/raitonoberu/ytmusic"
	"github.com/samber/lo"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

const (
	defaultSearchResults = 10
	defaultPlaylistItems = 100

	ytdlpEntryFormat = "%(playlist_title)s\t%(webpage_url,url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(is_live)s\t%(extractor_key)s"
)

// YouTubeResolver resolves references with yt-dlp, and YouTube Music searches
// with the ytmusic client. It is used when no Lavalink node is configured.
type YouTubeResolver struct {
	ytdlpPath     string
	searchResults int
	playlistItems int
}

var _ ports.TrackResolver = (*YouTubeResolver)(nil)

// NewYouTubeResolver creates a new YouTubeResolver.
func NewYouTubeResolver(ytdlpPath string, playlistItems int) *YouTubeResolver {
	if playlistItems <= 0 {
		playlistItems = defaultPlaylistItems
	}
	return &YouTubeResolver{
		ytdlpPath:     ytdlpPath,
		searchResults: defaultSearchResults,
		playlistItems: playlistItems,
	}
}

// Submit resolves query in the background and reports the result to handler.
func (r *YouTubeResolver) Submit(
	ctx context.Context,
	query string,
	handler ports.LoadResultHandler,
) {
	go r.resolve(ctx, query, handler)
}

func (r *YouTubeResolver) resolve(ctx context.Context, query string, handler ports.LoadResultHandler) {
	if text, ok := strings.CutPrefix(query, string(domain.SourceYouTubeMusic)+":"); ok {
		tracks, err := searchYouTubeMusic(text, r.searchResults)
		if err != nil {
			handler.LoadFailed(err)
			return
		}
		deliverSearch(handler, tracks)
		return
	}

	for _, source := range []domain.SearchSource{domain.SourceYouTube, domain.SourceSoundCloud} {
		if text, ok := strings.CutPrefix(query, string(source)+":"); ok {
			target := fmt.Sprintf("%s%d:%s", source, r.searchResults, text)
			entries, err := r.listEntries(ctx, target, r.searchResults)
			if err != nil {
				handler.LoadFailed(err)
				return
			}
			deliverSearch(handler, lo.Map(entries, func(e ytdlpEntry, _ int) domain.TrackInfo {
				return e.trackInfo()
			}))
			return
		}
	}

	entries, err := r.listEntries(ctx, query, r.playlistItems)
	if err != nil {
		handler.LoadFailed(err)
		return
	}

	switch {
	case len(entries) == 0:
		handler.NoMatches()
	case len(entries) == 1 && entries[0].playlist == "":
		handler.TrackLoaded(entries[0].trackInfo())
	default:
		handler.PlaylistLoaded(entries[0].playlist, lo.Map(entries, func(e ytdlpEntry, _ int) domain.TrackInfo {
			return e.trackInfo()
		}))
	}
}

func (r *YouTubeResolver) listEntries(ctx context.Context, target string, limit int) ([]ytdlpEntry, error) {
	cmd := ytdlp.New().
		FlatPlaylist().
		Print(ytdlpEntryFormat).
		PlaylistItems(fmt.Sprintf("1-%d", limit)).
		NoWarnings().
		IgnoreConfig()
	if r.ytdlpPath != "" {
		cmd.SetExecutable(r.ytdlpPath)
	}

	res, err := cmd.Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}
	return parseYTDLPEntries(res.Stdout), nil
}

func deliverSearch(handler ports.LoadResultHandler, tracks []domain.TrackInfo) {
	if len(tracks) == 0 {
		handler.NoMatches()
		return
	}
	handler.SearchResultLoaded(tracks)
}

type ytdlpEntry struct {
	playlist  string
	url       string
	title     string
	uploader  string
	duration  time.Duration
	live      bool
	extractor string
}

func (e ytdlpEntry) trackInfo() domain.TrackInfo {
	return domain.TrackInfo{
		Identifier: e.url,
		Handle:     e.url,
		Title:      e.title,
		Artist:     e.uploader,
		Duration:   e.duration,
		URI:        e.url,
		SourceName: sourceNameFor(e.extractor),
		IsStream:   e.live,
	}
}

// parseYTDLPEntries parses tab-separated lines printed with ytdlpEntryFormat.
// yt-dlp prints "NA" for missing fields.
func parseYTDLPEntries(stdout string) []ytdlpEntry {
	var entries []ytdlpEntry
	for line := range strings.SplitSeq(strings.TrimSpace(stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 7 || na(fields[1]) == "" {
			continue
		}

		var duration time.Duration
		if seconds, err := strconv.ParseFloat(fields[4], 64); err == nil {
			duration = time.Duration(seconds * float64(time.Second))
		}

		entries = append(entries, ytdlpEntry{
			playlist:  na(fields[0]),
			url:       fields[1],
			title:     na(fields[2]),
			uploader:  na(fields[3]),
			duration:  duration,
			live:      fields[5] == "True",
			extractor: na(fields[6]),
		})
	}
	return entries
}

func na(field string) string {
	if field == "NA" {
		return ""
	}
	return field
}

func sourceNameFor(extractor string) string {
	extractor = strings.ToLower(extractor)
	switch {
	case strings.HasPrefix(extractor, "youtube"):
		return "youtube"
	case strings.HasPrefix(extractor, "soundcloud"):
		return "soundcloud"
	case strings.HasPrefix(extractor, "twitch"):
		return "twitch"
	case extractor == "":
		return "http"
	default:
		return extractor
	}
}

func searchYouTubeMusic(query string, limit int) ([]domain.TrackInfo, error) {
	result, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, fmt.Errorf("youtube music search failed: %w", err)
	}

	var tracks []domain.TrackInfo
	for _, item := range result.Tracks {
		if item.VideoID == "" {
			continue
		}
		artist := ""
		if len(item.Artists) > 0 {
			artist = item.Artists[0].Name
		}
		uri := "https://music.youtube.com/watch?v=" + item.VideoID
		tracks = append(tracks, domain.TrackInfo{
			Identifier: item.VideoID,
			Handle:     uri,
			Title:      item.Title,
			Artist:     artist,
			Duration:   time.Duration(item.Duration) * time.Second,
			URI:        uri,
			SourceName: "youtube_music",
		})
		if len(tracks) == limit {
			break
		}
	}
	return tracks, nil
}
