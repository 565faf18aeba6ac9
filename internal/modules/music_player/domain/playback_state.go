package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// PlaybackState is the lifecycle state of a session's scheduler.
// Paused is tracked separately and is orthogonal to these states.
type PlaybackState int

const (
	PlaybackIdle    PlaybackState = iota // no bound track, engine stopped
	PlaybackPlaying                      // head of the queue is bound and rendering
	PlaybackEnding                       // end-of-track transition in progress
)

// String returns a human-readable representation of the state.
func (s PlaybackState) String() string {
	switch s {
	case PlaybackPlaying:
		return "playing"
	case PlaybackEnding:
		return "ending"
	default:
		return "idle"
	}
}

// NowPlaying is the payload of a "now playing" notification.
type NowPlaying struct {
	GuildID     snowflake.ID
	Track       *Track
	QueueLength int // now playing + upcoming
	Volume      int
	Loop        bool
}

// StuckTrack is the payload of a stuck-track recovery notification.
type StuckTrack struct {
	GuildID   snowflake.ID
	Track     *Track
	Threshold time.Duration
	Next      *Track // nil if the queue ran out
}

// PlaybackError is the payload of a playback exception notification.
type PlaybackError struct {
	GuildID snowflake.ID
	Track   *Track
	Err     error
}
