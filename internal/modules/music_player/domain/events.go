package domain

import "time"

// TrackEndReason represents why a track ended. Engines report an end only
// when the queue should advance; Bind and Stop end a track silently.
type TrackEndReason string

const (
	// TrackEndFinished means the track reached its end (or was forced there by a skip).
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the track could not be rendered.
	TrackEndLoadFailed TrackEndReason = "load_failed"
)

// MayReplay returns true if a looping session may replay a track that ended for this reason.
func (r TrackEndReason) MayReplay() bool {
	return r == TrackEndFinished
}

// EngineEventType identifies what an EngineEvent reports.
type EngineEventType int

const (
	EngineEventTrackEnded EngineEventType = iota
	EngineEventTrackStuck
	EngineEventTrackException
)

// String returns a human-readable representation of the event type.
func (t EngineEventType) String() string {
	switch t {
	case EngineEventTrackEnded:
		return "track_ended"
	case EngineEventTrackStuck:
		return "track_stuck"
	case EngineEventTrackException:
		return "track_exception"
	default:
		return "unknown"
	}
}

// EngineEvent is a lifecycle event reported by an audio engine for the track
// it had bound when the event happened.
type EngineEvent struct {
	Type      EngineEventType
	Track     *Track
	Reason    TrackEndReason // EngineEventTrackEnded only
	Threshold time.Duration  // EngineEventTrackStuck only
	Err       error          // EngineEventTrackException only
}
