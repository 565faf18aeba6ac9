package usecases

import (
	"errors"
	"fmt"
)

// Domain errors for the music player module.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrSessionClosed is returned when a session has already been disconnected.
	ErrSessionClosed = errors.New("the player has been disconnected")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when trying to pause while already paused.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrQueueEmpty is returned when the queue is empty.
	ErrQueueEmpty = errors.New("the queue is empty")

	// ErrNothingToClear is returned when there are no tracks to clear (only current track exists).
	ErrNothingToClear = errors.New("nothing to clear")

	// ErrInvalidPosition is returned when an invalid queue position is specified.
	ErrInvalidPosition = errors.New("invalid queue position")

	// ErrIsCurrentTrack is returned when trying to remove the currently playing track.
	// The handler should delegate to Skip instead.
	ErrIsCurrentTrack = errors.New("cannot remove current track, use skip instead")

	// ErrNotSeekable is returned when seeking a live stream or a track of unknown length.
	ErrNotSeekable = errors.New("the current track cannot be seeked")

	// ErrInvalidSeekPosition is returned when a seek target lies outside the track.
	ErrInvalidSeekPosition = errors.New("seek position is outside the track")

	// ErrInvalidVolume is returned when a volume is outside 0-100.
	ErrInvalidVolume = errors.New("volume must be between 0 and 100")

	// ErrLoadFailed is returned when loading tracks fails.
	ErrLoadFailed = errors.New("failed to load track")

	// ErrReferenceBlocked is returned when a reference fails the destination check.
	// It wraps ErrLoadFailed.
	ErrReferenceBlocked = fmt.Errorf("reference is not allowed: %w", ErrLoadFailed)

	// ErrResolutionTimeout is returned when the resolver does not answer in time.
	ErrResolutionTimeout = errors.New("track resolution timed out")
)
