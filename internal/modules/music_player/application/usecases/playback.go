package usecases

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// PauseInput contains the input for the Pause use case.
type PauseInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ResumeInput contains the input for the Resume use case.
type ResumeInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	SkippedTrack *domain.Track
	NextTrack    *domain.Track // nil if queue is empty
}

// SkipToInput contains the input for the SkipTo use case.
type SkipToInput struct {
	GuildID               snowflake.ID
	Position              int          // 1-indexed position of the track to play next
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SeekInput contains the input for the Seek use case.
type SeekInput struct {
	GuildID               snowflake.ID
	Position              time.Duration
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SetVolumeInput contains the input for the SetVolume use case.
type SetVolumeInput struct {
	GuildID               snowflake.ID
	Volume                int
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ToggleLoopInput contains the input for the ToggleLoop use case.
type ToggleLoopInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ToggleLoopOutput contains the result of the ToggleLoop use case.
type ToggleLoopOutput struct {
	Enabled bool
}

// NowPlayingInput contains the input for the NowPlaying use case.
type NowPlayingInput struct {
	GuildID snowflake.ID
}

// NowPlayingOutput contains the result of the NowPlaying use case.
type NowPlayingOutput struct {
	Track       *domain.Track
	Position    time.Duration
	QueueLength int
	Volume      int
	Loop        bool
	Paused      bool
}

// PlaybackService handles playback operations.
type PlaybackService struct {
	registry *SessionRegistry
	sinks    ports.LogSinkProvider
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(registry *SessionRegistry, sinks ports.LogSinkProvider) *PlaybackService {
	return &PlaybackService{
		registry: registry,
		sinks:    sinks,
	}
}

// Pause pauses the current playback.
func (p *PlaybackService) Pause(input PauseInput) error {
	session, err := lookupSession(p.registry, p.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	return session.Pause()
}

// Resume resumes the paused playback.
func (p *PlaybackService) Resume(input ResumeInput) error {
	session, err := lookupSession(p.registry, p.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	return session.Resume()
}

// Skip ends the current track and advances to the next one.
// Skip always advances, regardless of loop mode.
func (p *PlaybackService) Skip(input SkipInput) (*SkipOutput, error) {
	session, err := lookupSession(p.registry, p.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	next := peekUpcoming(session, 1)

	skipped, err := session.Skip()
	if err != nil {
		return nil, err
	}
	if skipped == nil {
		return nil, ErrNotPlaying
	}

	return &SkipOutput{
		SkippedTrack: skipped,
		NextTrack:    next,
	}, nil
}

// SkipTo drops the tracks before Position and skips to it.
func (p *PlaybackService) SkipTo(input SkipToInput) (*SkipOutput, error) {
	if input.Position < 1 {
		return nil, ErrInvalidPosition
	}

	session, err := lookupSession(p.registry, p.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	tracks := session.Queue()
	if len(tracks) == 0 {
		return nil, ErrNotPlaying
	}
	if input.Position >= len(tracks) {
		return nil, ErrInvalidPosition
	}
	next := tracks[input.Position]

	skipped, err := session.SkipTo(input.Position)
	if err != nil {
		return nil, err
	}
	if skipped == nil {
		return nil, ErrNotPlaying
	}

	return &SkipOutput{
		SkippedTrack: skipped,
		NextTrack:    next,
	}, nil
}

// Seek moves the current track to the given position.
func (p *PlaybackService) Seek(input SeekInput) error {
	session, err := lookupSession(p.registry, p.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	return session.Seek(input.Position)
}

// SetVolume sets the guild's playback volume.
func (p *PlaybackService) SetVolume(input SetVolumeInput) error {
	session, err := lookupSession(p.registry, p.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	return session.SetVolume(input.Volume)
}

// ToggleLoop flips loop mode for the guild's player.
func (p *PlaybackService) ToggleLoop(input ToggleLoopInput) (*ToggleLoopOutput, error) {
	session, err := lookupSession(p.registry, p.sinks, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	enabled, err := session.ToggleLoop()
	if err != nil {
		return nil, err
	}
	return &ToggleLoopOutput{Enabled: enabled}, nil
}

// NowPlaying returns the status of the guild's player.
func (p *PlaybackService) NowPlaying(input NowPlayingInput) (*NowPlayingOutput, error) {
	session := p.registry.Get(input.GuildID)
	if session == nil {
		return nil, ErrNotConnected
	}

	tracks := session.Queue()
	if len(tracks) == 0 {
		return nil, ErrNotPlaying
	}

	return &NowPlayingOutput{
		Track:       tracks[0],
		Position:    session.Position(),
		QueueLength: len(tracks),
		Volume:      session.Volume(),
		Loop:        session.Loop(),
		Paused:      session.Paused(),
	}, nil
}

// peekUpcoming returns the track at position, or nil.
func peekUpcoming(session *Scheduler, position int) *domain.Track {
	tracks := session.Queue()
	if position < len(tracks) {
		return tracks[position]
	}
	return nil
}
