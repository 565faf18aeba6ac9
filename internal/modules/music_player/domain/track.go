package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// TrackID uniquely identifies one Track instance.
// Replays of the same audio get a fresh TrackID.
type TrackID string

// NewTrackID returns a new random TrackID.
func NewTrackID() TrackID {
	return TrackID(uuid.NewString())
}

// Track represents a playable audio track.
// A Track must not be modified once it has been enqueued; the engine may hold
// a reference to the instance it is currently rendering.
type Track struct {
	ID          TrackID
	Handle      string // engine-specific playable handle (e.g. Lavalink encoded track)
	URI         string
	Title       string
	Artist      string
	Duration    time.Duration // 0 when unknown
	ArtworkURL  string
	SourceName  string // e.g., "youtube", "soundcloud"
	IsStream    bool
	RequesterID snowflake.ID
	EnqueuedAt  time.Time
}

// NewTrack creates a new Track requested by requesterID.
func NewTrack(info TrackInfo, requesterID snowflake.ID) *Track {
	return &Track{
		ID:          NewTrackID(),
		Handle:      info.Handle,
		URI:         info.URI,
		Title:       info.Title,
		Artist:      info.Artist,
		Duration:    info.Duration,
		ArtworkURL:  info.ArtworkURL,
		SourceName:  info.SourceName,
		IsStream:    info.IsStream,
		RequesterID: requesterID,
		EnqueuedAt:  time.Now().UTC(),
	}
}

// Replay returns a fresh instance of the track with the same metadata and
// handle. The engine renders a replayed instance from position zero.
func (t *Track) Replay() *Track {
	clone := *t
	clone.ID = NewTrackID()
	return &clone
}

// Source returns the parsed TrackSource for this track.
func (t *Track) Source() TrackSource {
	return ParseTrackSource(t.SourceName)
}

// IsSeekable reports whether the track has a known, finite duration.
func (t *Track) IsSeekable() bool {
	return !t.IsStream && t.Duration > 0
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
func (t *Track) FormattedDuration() string {
	if t.IsStream {
		return "LIVE"
	}
	return FormatDuration(t.Duration)
}

// FormatDuration formats d as mm:ss, or hh:mm:ss when it spans an hour or more.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// TrackInfo is resolver output describing a playable item before it is
// attached to a requester.
type TrackInfo struct {
	Identifier string
	Handle     string
	Title      string
	Artist     string
	Duration   time.Duration
	URI        string
	ArtworkURL string
	SourceName string
	IsStream   bool
}
