package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

const (
	// MinVolume is the lowest accepted volume.
	MinVolume = 0
	// MaxVolume is the highest accepted volume.
	MaxVolume = 100
)

// SchedulerConfig contains what a new Scheduler is bound to.
type SchedulerConfig struct {
	GuildID       snowflake.ID
	Binding       ports.VoiceBinding
	Sink          ports.LogSink
	DefaultVolume int
}

// Scheduler owns one guild's queue and audio engine and drives the playback
// state machine. Mutations and end-of-track transitions are serialized by mu;
// the frame-pull path only touches the engine and frameMu.
type Scheduler struct {
	guildID snowflake.ID
	engine  ports.AudioEngine
	binding ports.VoiceBinding
	onClose func(*Scheduler)

	mu            sync.Mutex
	queue         *domain.Queue
	state         domain.PlaybackState
	sink          ports.LogSink
	paused        bool
	loop          bool
	skipRequested bool
	volume        int
	closed        bool

	// engine events are handed off through a mailbox so the engine never
	// waits on mu.
	pendingMu sync.Mutex
	pending   []domain.EngineEvent
	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}

	frameMu sync.Mutex
	frame   []byte
}

// NewScheduler creates a Scheduler and starts its event loop.
// onClose is called once after Disconnect has torn the session down.
func NewScheduler(
	cfg SchedulerConfig,
	engineFactory ports.AudioEngineFactory,
	onClose func(*Scheduler),
) *Scheduler {
	volume := cfg.DefaultVolume
	if volume < MinVolume || volume > MaxVolume {
		volume = MaxVolume
	}

	s := &Scheduler{
		guildID: cfg.GuildID,
		binding: cfg.Binding,
		onClose: onClose,
		queue:   domain.NewQueue(),
		state:   domain.PlaybackIdle,
		sink:    cfg.Sink,
		volume:  volume,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s.engine = engineFactory(cfg.GuildID, s)
	s.engine.SetVolume(volume)

	go s.run()

	return s
}

// GuildID returns the guild this scheduler plays for.
func (s *Scheduler) GuildID() snowflake.ID {
	return s.guildID
}

// VoiceChannelID returns the voice channel the session feeds.
func (s *Scheduler) VoiceChannelID() snowflake.ID {
	if s.binding == nil {
		return 0
	}
	return s.binding.ChannelID()
}

// MoveTo moves the voice connection to channelID. The queue is kept.
func (s *Scheduler) MoveTo(ctx context.Context, channelID snowflake.ID) error {
	if s.binding == nil {
		return ErrNotConnected
	}
	return s.binding.Move(ctx, channelID)
}

// SetLogSink redirects future notifications to sink.
func (s *Scheduler) SetLogSink(sink ports.LogSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Enqueue appends t to the queue, starting playback if the queue was empty.
// It returns the queue position of t (0 = now playing).
func (s *Scheduler) Enqueue(t *domain.Track) (int, error) {
	return s.EnqueueMany([]*domain.Track{t})
}

// EnqueueMany appends tracks in order, starting playback of the first one if
// the queue was empty. It returns the queue position of the first track.
func (s *Scheduler) EnqueueMany(tracks []*domain.Track) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}

	position := s.queue.Len()
	if len(tracks) == 0 {
		return position, nil
	}

	if wasEmpty := s.queue.Append(tracks...); wasEmpty {
		s.bindHead()
	}

	return position, nil
}

// Skip forces the current track to its end. The end-of-track transition then
// removes it regardless of loop mode. Skip is a no-op on an empty queue.
func (s *Scheduler) Skip() (*domain.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.skipLocked(), nil
}

// SkipTo removes the upcoming tracks between now playing and position n, then
// skips, so the track at position n plays next. Positions past the end are
// clamped.
func (s *Scheduler) SkipTo(n int) (*domain.Track, error) {
	if n < 1 {
		return nil, ErrInvalidPosition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	removed := s.queue.RemoveUpcoming(n)
	if len(removed) > 0 {
		slog.Debug("removed tracks before skip target",
			"guild", s.guildID, "count", len(removed))
	}

	return s.skipLocked(), nil
}

func (s *Scheduler) skipLocked() *domain.Track {
	head := s.queue.Head()
	if head == nil {
		return nil
	}

	s.skipRequested = true
	s.engine.Seek(head.Duration)

	return head
}

// Seek moves the render position of the current track.
func (s *Scheduler) Seek(position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	head := s.queue.Head()
	if head == nil {
		return ErrNotPlaying
	}
	if !head.IsSeekable() {
		return ErrNotSeekable
	}
	if position < 0 || position >= head.Duration {
		return ErrInvalidSeekPosition
	}

	s.engine.Seek(position)

	return nil
}

// SetVolume sets the render volume.
func (s *Scheduler) SetVolume(volume int) error {
	if volume < MinVolume || volume > MaxVolume {
		return ErrInvalidVolume
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	s.volume = volume
	s.engine.SetVolume(volume)

	return nil
}

// Pause pauses rendering. The queue is untouched.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.queue.IsEmpty() {
		return ErrNotPlaying
	}
	if s.paused {
		return ErrAlreadyPaused
	}

	s.paused = true
	s.engine.SetPaused(true)

	return nil
}

// Resume resumes rendering.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.queue.IsEmpty() {
		return ErrNotPlaying
	}
	if !s.paused {
		return ErrNotPaused
	}

	s.paused = false
	s.engine.SetPaused(false)

	return nil
}

// ToggleLoop flips loop mode and returns the new value.
func (s *Scheduler) ToggleLoop() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSessionClosed
	}

	s.loop = !s.loop
	return s.loop, nil
}

// RemoveAt removes the upcoming track at position (1-indexed from now playing).
func (s *Scheduler) RemoveAt(position int) (*domain.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if position == 0 {
		return nil, ErrIsCurrentTrack
	}

	removed := s.queue.RemoveAt(position)
	if removed == nil {
		return nil, ErrInvalidPosition
	}

	return removed, nil
}

// ClearUpcoming removes every track except the one playing.
func (s *Scheduler) ClearUpcoming() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}

	return len(s.queue.RemoveUpcoming(s.queue.Len())), nil
}

// Disconnect clears the queue, stops the engine, detaches from the voice
// transport and removes the session from its registry. Calls after the first
// are no-ops.
func (s *Scheduler) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cleared := s.queue.Clear()
	s.state = domain.PlaybackIdle
	s.skipRequested = false
	s.engine.Stop()
	s.mu.Unlock()

	close(s.done)
	<-s.stopped
	s.engine.Close()

	var err error
	if s.binding != nil {
		err = s.binding.Close(ctx)
	}

	if s.onClose != nil {
		s.onClose(s)
	}

	slog.Info("disconnected session", "guild", s.guildID, "cleared", cleared)

	return err
}

// Closed reports whether Disconnect has been called.
func (s *Scheduler) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// NowPlaying returns the current track, or nil when idle.
func (s *Scheduler) NowPlaying() *domain.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Head()
}

// Queue returns a snapshot of the queue, now playing first.
func (s *Scheduler) Queue() []*domain.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.List()
}

// State returns the current playback state.
func (s *Scheduler) State() domain.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Paused reports whether rendering is paused.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Loop reports whether loop mode is enabled.
func (s *Scheduler) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// Volume returns the render volume.
func (s *Scheduler) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Position returns the render position of the current track.
func (s *Scheduler) Position() time.Duration {
	return s.engine.Position()
}

// HasFrame pulls the next frame from the engine into the frame slot.
func (s *Scheduler) HasFrame() bool {
	frame, ok := s.engine.ProvideFrame()
	if !ok {
		return false
	}

	s.frameMu.Lock()
	s.frame = frame
	s.frameMu.Unlock()

	return true
}

// NextFrame returns the frame buffered by the last successful HasFrame.
func (s *Scheduler) NextFrame() []byte {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.frame
}

// FrameFormat returns the encoding of frames returned by NextFrame.
func (s *Scheduler) FrameFormat() ports.FrameFormat {
	return ports.OpusFrameFormat
}

// OnEngineEvent queues an engine event for the event loop. It never blocks.
func (s *Scheduler) OnEngineEvent(event domain.EngineEvent) {
	s.pendingMu.Lock()
	s.pending = append(s.pending, event)
	s.pendingMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer close(s.stopped)

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			s.pendingMu.Lock()
			events := s.pending
			s.pending = nil
			s.pendingMu.Unlock()

			for _, event := range events {
				s.handleEvent(event)
			}
		}
	}
}

func (s *Scheduler) handleEvent(event domain.EngineEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	// Events for a track that is no longer at the head are stale.
	head := s.queue.Head()
	if head == nil || event.Track == nil || head.ID != event.Track.ID {
		slog.Debug("ignored stale engine event",
			"guild", s.guildID, "event", event.Type.String())
		return
	}

	switch event.Type {
	case domain.EngineEventTrackEnded:
		s.endTrack(head, event.Reason.MayReplay())

	case domain.EngineEventTrackStuck:
		slog.Warn("track stuck",
			"guild", s.guildID,
			"track", head.Title,
			"threshold", event.Threshold,
		)
		s.state = domain.PlaybackEnding
		s.skipRequested = false
		s.queue.RemoveHead()
		next := s.queue.Head()
		if s.sink != nil {
			s.sink.TrackStuck(domain.StuckTrack{
				GuildID:   s.guildID,
				Track:     head,
				Threshold: event.Threshold,
				Next:      next,
			})
		}
		s.bindHead()

	case domain.EngineEventTrackException:
		// The engine follows up with a load_failed end event, which advances.
		slog.Warn("track exception",
			"guild", s.guildID,
			"track", head.Title,
			"error", event.Err,
		)
		if s.sink != nil {
			s.sink.PlaybackError(domain.PlaybackError{
				GuildID: s.guildID,
				Track:   head,
				Err:     event.Err,
			})
		}
	}
}

// endTrack runs the end-of-track transition for head. Must hold mu.
func (s *Scheduler) endTrack(head *domain.Track, mayReplay bool) {
	s.state = domain.PlaybackEnding

	skipped := s.skipRequested
	s.skipRequested = false

	if s.loop && !skipped && mayReplay {
		s.queue.ReplaceHead(head.Replay())
		s.bindHead()
		return
	}

	s.queue.RemoveHead()
	s.bindHead()
}

// bindHead binds the queue head to the engine, or goes idle when the queue is
// empty. Must hold mu.
func (s *Scheduler) bindHead() {
	head := s.queue.Head()
	if head == nil {
		s.state = domain.PlaybackIdle
		s.engine.Stop()
		slog.Debug("queue exhausted", "guild", s.guildID)
		return
	}

	s.engine.Bind(head)
	s.state = domain.PlaybackPlaying

	slog.Info("started track",
		"guild", s.guildID,
		"track", head.Title,
		"queue_length", s.queue.Len(),
	)

	if s.sink != nil {
		s.sink.NowPlaying(domain.NowPlaying{
			GuildID:     s.guildID,
			Track:       head,
			QueueLength: s.queue.Len(),
			Volume:      s.volume,
			Loop:        s.loop,
		})
	}
}

// Ensure Scheduler implements the engine and transport contracts.
var (
	_ ports.EngineListener = (*Scheduler)(nil)
	_ ports.FrameSource    = (*Scheduler)(nil)
)
