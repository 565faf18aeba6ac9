package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/samber/lo"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// catalogOnlySources are sources whose URIs carry metadata but no audio yt-dlp
// can extract. Their tracks are played from the best YouTube match instead.
var catalogOnlySources = []string{"spotify", "applemusic", "deezer"}

// StreamOpener opens an Ogg/Opus stream for a track.
type StreamOpener interface {
	Open(ctx context.Context, track *domain.Track, offset time.Duration, volume int) (io.ReadCloser, error)
}

// FFmpegOpener resolves the media URL of a track with yt-dlp and transcodes
// it to Ogg/Opus with ffmpeg.
type FFmpegOpener struct {
	ytdlpPath  string
	ffmpegPath string
}

var _ StreamOpener = (*FFmpegOpener)(nil)

// NewFFmpegOpener creates a new FFmpegOpener. Empty paths fall back to the
// executables found in PATH.
func NewFFmpegOpener(ytdlpPath, ffmpegPath string) *FFmpegOpener {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegOpener{
		ytdlpPath:  ytdlpPath,
		ffmpegPath: ffmpegPath,
	}
}

// Open starts ffmpeg for the track. Closing the returned reader kills the
// process.
func (o *FFmpegOpener) Open(
	ctx context.Context,
	track *domain.Track,
	offset time.Duration,
	volume int,
) (io.ReadCloser, error) {
	input, err := o.mediaURL(ctx, track)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, o.ffmpegPath, ffmpegArgs(input, offset, volume)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &processReader{ReadCloser: stdout, cmd: cmd}, nil
}

func (o *FFmpegOpener) mediaURL(ctx context.Context, track *domain.Track) (string, error) {
	if track.URI == "" {
		return "", errors.New("track has no URI")
	}
	if track.Source() == domain.TrackSourceOther && hasAudioExtension(track.URI) {
		return track.URI, nil
	}

	reference := playbackReference(track)

	cmd := ytdlp.New().
		Format("bestaudio[ext=webm]/bestaudio").
		Print("%(url)s").
		NoPlaylist().
		NoWarnings().
		IgnoreConfig()
	if o.ytdlpPath != "" {
		cmd.SetExecutable(o.ytdlpPath)
	}

	res, err := cmd.Run(ctx, "--skip-download", reference)
	if err != nil {
		return "", fmt.Errorf("failed to resolve media URL: %w", err)
	}

	url, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	if url == "" {
		return "", errors.New("yt-dlp returned no media URL")
	}
	return url, nil
}

// playbackReference returns what yt-dlp should extract audio from: the URI
// itself, or a single-result YouTube search for catalog-only tracks.
func playbackReference(track *domain.Track) string {
	if !lo.Contains(catalogOnlySources, track.SourceName) && !isSpotifyURI(track.URI) {
		return track.URI
	}

	query := track.Title
	if track.Artist != "" {
		query = track.Artist + " - " + track.Title
	}
	return "ytsearch1:" + query
}

func isSpotifyURI(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	return domain.MatchesHost(u.Hostname(), []string{"spotify.com"})
}

func ffmpegArgs(input string, offset time.Duration, volume int) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}

	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_at_eof", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "2",
			"-user_agent", "Mozilla/5.0",
		)
	}
	if offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64))
	}

	args = append(args,
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-analyzeduration", "0",
		"-probesize", "32",
		"-i", input,
		"-map", "0:a",
		"-af", "volume="+strconv.FormatFloat(float64(volume)/100, 'f', 2, 64),
		"-ar", "48000",
		"-ac", "2",
		"-acodec", "libopus",
		"-b:a", "128k",
		"-vbr", "on",
		"-frame_duration", "20",
		"-compression_level", "10",
		"-f", "opus",
		"pipe:1",
	)
	return args
}

func hasAudioExtension(uri string) bool {
	path, _, _ := strings.Cut(uri, "?")
	for _, ext := range []string{".mp3", ".ogg", ".opus", ".flac", ".wav", ".m4a", ".webm"} {
		if strings.HasSuffix(strings.ToLower(path), ext) {
			return true
		}
	}
	return false
}

// processReader reads a process's stdout and reaps the process on Close.
type processReader struct {
	io.ReadCloser
	cmd  *exec.Cmd
	once sync.Once
}

func (p *processReader) Close() error {
	p.once.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		_ = p.ReadCloser.Close()
		_ = p.cmd.Wait()
	})
	return nil
}
