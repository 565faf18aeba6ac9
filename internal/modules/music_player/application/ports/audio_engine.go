package ports

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// FrameFormat describes the encoding of frames handed to a voice transport.
type FrameFormat struct {
	Codec         string
	SampleRate    int
	Channels      int
	FrameDuration time.Duration
}

// OpusFrameFormat is the only frame format produced by this module.
var OpusFrameFormat = FrameFormat{
	Codec:         "opus",
	SampleRate:    48000,
	Channels:      2,
	FrameDuration: 20 * time.Millisecond,
}

// AudioEngine renders the track bound to it into encoded frames.
// An engine belongs to exactly one session.
type AudioEngine interface {
	// Bind replaces the current track and starts rendering t from position 0.
	// The replaced track does not produce a queue-advancing end event.
	Bind(t *domain.Track)

	// Stop unbinds the current track without emitting a queue-advancing event.
	Stop()

	// Seek moves the render position of the bound track. Seeking to or past
	// the track duration ends the track with TrackEndFinished.
	Seek(position time.Duration)

	SetPaused(paused bool)
	SetVolume(volume int)

	// Position returns the render position of the bound track.
	Position() time.Duration

	// ProvideFrame returns the next frame if one is ready. It never blocks.
	ProvideFrame() ([]byte, bool)

	// Close releases the engine. It is not usable afterwards.
	Close()
}

// EngineListener receives lifecycle events from an engine.
// OnEngineEvent must not block.
type EngineListener interface {
	OnEngineEvent(event domain.EngineEvent)
}

// AudioEngineFactory creates the engine for a new session.
type AudioEngineFactory func(guildID snowflake.ID, listener EngineListener) AudioEngine

// FrameSource is the frame-pull contract a voice transport consumes.
type FrameSource interface {
	// HasFrame buffers the next frame and reports whether one was available.
	HasFrame() bool
	// NextFrame returns the frame buffered by the last successful HasFrame.
	NextFrame() []byte
	FrameFormat() FrameFormat
}
