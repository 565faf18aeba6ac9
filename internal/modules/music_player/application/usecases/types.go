package usecases

import (
	"time"

	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend only on usecases without importing domain directly.

// Track is an alias for domain.Track.
type Track = domain.Track

// TrackID is an alias for domain.TrackID.
type TrackID = domain.TrackID

// PlaybackState is an alias for domain.PlaybackState.
type PlaybackState = domain.PlaybackState

// NowPlaying is an alias for domain.NowPlaying.
type NowPlaying = domain.NowPlaying

// StuckTrack is an alias for domain.StuckTrack.
type StuckTrack = domain.StuckTrack

// PlaybackError is an alias for domain.PlaybackError.
type PlaybackError = domain.PlaybackError

// FormatDuration formats d as mm:ss, or hh:mm:ss when it spans an hour or more.
func FormatDuration(d time.Duration) string {
	return domain.FormatDuration(d)
}
