package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

func TestScheduler_EnqueueStartsPlayback(t *testing.T) {
	s, engine, sink, _ := newTestScheduler(t)
	a := mockTrack("A")

	position, err := s.Enqueue(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if position != 0 {
		t.Errorf("expected position 0, got %d", position)
	}
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"A"}) {
		t.Errorf("expected queue [A], got %v", got)
	}
	if s.State() != domain.PlaybackPlaying {
		t.Errorf("expected state playing, got %s", s.State())
	}
	if engine.boundTrack() != a {
		t.Error("expected engine to be bound to A")
	}
	if sink.nowPlayingCount() != 1 {
		t.Fatalf("expected 1 now playing notification, got %d", sink.nowPlayingCount())
	}
	info := sink.lastNowPlaying()
	if info.Track != a || info.QueueLength != 1 || info.Volume != 100 || info.Loop {
		t.Errorf("unexpected notification: %+v", info)
	}
}

func TestScheduler_EnqueueWhilePlaying(t *testing.T) {
	s, engine, sink, _ := newTestScheduler(t)
	a := mockTrack("A")

	if _, err := s.Enqueue(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	position, err := s.Enqueue(mockTrack("B"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if position != 1 {
		t.Errorf("expected position 1, got %d", position)
	}
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"A", "B"}) {
		t.Errorf("expected queue [A B], got %v", got)
	}
	if engine.boundTrack() != a || engine.bindCount() != 1 {
		t.Error("expected engine to stay bound to A")
	}
	if sink.nowPlayingCount() != 1 {
		t.Errorf("expected 1 now playing notification, got %d", sink.nowPlayingCount())
	}
}

func TestScheduler_FIFOOrder(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)

	if _, err := s.Enqueue(mockTrack("A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.EnqueueMany([]*domain.Track{mockTrack("B"), mockTrack("C")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Enqueue(mockTrack("D")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"A", "B", "C", "D"}) {
		t.Errorf("expected queue [A B C D], got %v", got)
	}
}

func TestScheduler_NaturalEndAdvances(t *testing.T) {
	s, engine, sink, _ := newTestScheduler(t)
	b := mockTrack("B")
	if _, err := s.EnqueueMany([]*domain.Track{mockTrack("A"), b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine.finish()

	eventually(t, func() bool { return engine.boundTrack() == b }, "engine bound to B")
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"B"}) {
		t.Errorf("expected queue [B], got %v", got)
	}
	if sink.nowPlayingCount() != 2 {
		t.Errorf("expected 2 now playing notifications, got %d", sink.nowPlayingCount())
	}

	engine.finish()

	eventually(t, func() bool { return s.State() == domain.PlaybackIdle }, "scheduler idle")
	if len(s.Queue()) != 0 {
		t.Errorf("expected empty queue, got %v", trackTitles(s.Queue()))
	}
	if engine.boundTrack() != nil {
		t.Error("expected engine to be stopped")
	}
}

func TestScheduler_LoopReplaysTrack(t *testing.T) {
	s, engine, sink, _ := newTestScheduler(t)
	a := mockTrack("A")
	if _, err := s.Enqueue(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enabled, err := s.ToggleLoop(); err != nil || !enabled {
		t.Fatalf("expected loop to be enabled, got %v (err %v)", enabled, err)
	}

	engine.finish()

	eventually(t, func() bool { return engine.bindCount() == 2 }, "engine rebound")

	queue := s.Queue()
	if len(queue) != 1 {
		t.Fatalf("expected one track, got %v", trackTitles(queue))
	}
	replay := queue[0]
	if replay == a || replay.ID == a.ID {
		t.Error("expected a fresh instance at the head")
	}
	if replay.Title != a.Title || replay.Handle != a.Handle || replay.Duration != a.Duration {
		t.Errorf("expected same metadata, got %+v", replay)
	}
	if engine.boundTrack() != replay {
		t.Error("expected engine to be bound to the replayed instance")
	}
	if engine.Position() != 0 {
		t.Errorf("expected position reset to 0, got %v", engine.Position())
	}
	eventually(t, func() bool { return sink.nowPlayingCount() == 2 }, "now playing re-emitted")
	if got := sink.lastNowPlaying(); got.Track.Title != "A" || !got.Loop {
		t.Errorf("unexpected notification: %+v", got)
	}
}

func TestScheduler_Skip(t *testing.T) {
	s, engine, _, _ := newTestScheduler(t)
	a := mockTrack("A")
	b := mockTrack("B")
	if _, err := s.EnqueueMany([]*domain.Track{a, b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	skipped, err := s.Skip()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped != a {
		t.Errorf("expected A to be skipped, got %v", skipped)
	}

	eventually(t, func() bool { return engine.boundTrack() == b }, "engine bound to B")
	if len(engine.seeks) != 1 || engine.seeks[0] != a.Duration {
		t.Errorf("expected a seek to A's duration, got %v", engine.seeks)
	}
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"B"}) {
		t.Errorf("expected queue [B], got %v", got)
	}

	s.mu.Lock()
	pending := s.skipRequested
	s.mu.Unlock()
	if pending {
		t.Error("expected skip flag to be consumed")
	}
}

func TestScheduler_SkipBypassesLoop(t *testing.T) {
	s, engine, _, _ := newTestScheduler(t)
	b := mockTrack("B")
	if _, err := s.EnqueueMany([]*domain.Track{mockTrack("A"), b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.ToggleLoop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Skip(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eventually(t, func() bool { return engine.boundTrack() == b }, "engine bound to B")
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"B"}) {
		t.Errorf("expected queue [B], got %v", got)
	}
	if !s.Loop() {
		t.Error("expected loop to stay enabled")
	}
}

func TestScheduler_SkipEmptyQueue(t *testing.T) {
	s, engine, _, _ := newTestScheduler(t)

	skipped, err := s.Skip()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped != nil {
		t.Errorf("expected nothing skipped, got %v", skipped)
	}
	if len(engine.seeks) != 0 {
		t.Error("expected no seek on empty queue")
	}
}

func TestScheduler_SkipTo(t *testing.T) {
	tests := []struct {
		name      string
		position  int
		wantQueue []string
		wantErr   error
	}{
		{
			name:      "skip to third upcoming",
			position:  3,
			wantQueue: []string{"D"},
		},
		{
			name:      "skip to next behaves like skip",
			position:  1,
			wantQueue: []string{"B", "C", "D"},
		},
		{
			name:      "position past end is clamped",
			position:  10,
			wantQueue: []string{},
		},
		{
			name:     "zero is rejected",
			position: 0,
			wantErr:  ErrInvalidPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, _ := newTestScheduler(t)
			tracks := []*domain.Track{mockTrack("A"), mockTrack("B"), mockTrack("C"), mockTrack("D")}
			if _, err := s.EnqueueMany(tracks); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, err := s.SkipTo(tt.position)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			eventually(t, func() bool {
				return equalTitles(trackTitles(s.Queue()), tt.wantQueue)
			}, "queue after skipTo")
		})
	}
}

func TestScheduler_StuckTrackAdvances(t *testing.T) {
	s, engine, sink, _ := newTestScheduler(t)
	a := mockTrack("A")
	b := mockTrack("B")
	if _, err := s.EnqueueMany([]*domain.Track{a, b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.ToggleLoop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine.emit(domain.EngineEvent{Type: domain.EngineEventTrackStuck, Threshold: 10 * time.Second})

	eventually(t, func() bool { return engine.boundTrack() == b }, "engine bound to B")
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"B"}) {
		t.Errorf("expected queue [B], got %v", got)
	}
	if sink.stuckCount() != 1 {
		t.Fatalf("expected 1 stuck notification, got %d", sink.stuckCount())
	}
	sink.mu.Lock()
	stuck := sink.stuck[0]
	sink.mu.Unlock()
	if stuck.Track != a || stuck.Next != b || stuck.Threshold != 10*time.Second {
		t.Errorf("unexpected stuck notification: %+v", stuck)
	}
}

func TestScheduler_ExceptionThenLoadFailedAdvances(t *testing.T) {
	s, engine, sink, _ := newTestScheduler(t)
	b := mockTrack("B")
	if _, err := s.EnqueueMany([]*domain.Track{mockTrack("A"), b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.ToggleLoop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine.emit(domain.EngineEvent{Type: domain.EngineEventTrackException, Err: errors.New("decode failed")})

	eventually(t, func() bool { return sink.errorCount() == 1 }, "playback error notification")
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"A", "B"}) {
		t.Errorf("expected queue untouched by the exception itself, got %v", got)
	}

	engine.emit(domain.EngineEvent{Type: domain.EngineEventTrackEnded, Reason: domain.TrackEndLoadFailed})

	eventually(t, func() bool { return engine.boundTrack() == b }, "engine bound to B")
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"B"}) {
		t.Errorf("expected failed track removed despite loop, got %v", got)
	}
}

func TestScheduler_IgnoresStaleEvents(t *testing.T) {
	s, engine, sink, _ := newTestScheduler(t)
	a := mockTrack("A")
	if _, err := s.EnqueueMany([]*domain.Track{a, mockTrack("B")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine.emit(domain.EngineEvent{
		Type:   domain.EngineEventTrackEnded,
		Track:  mockTrack("X"),
		Reason: domain.TrackEndFinished,
	})
	// A marker event proves the previous one was processed.
	engine.emit(domain.EngineEvent{Type: domain.EngineEventTrackException, Err: errors.New("marker")})

	eventually(t, func() bool { return sink.errorCount() == 1 }, "marker processed")
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"A", "B"}) {
		t.Errorf("expected queue unchanged, got %v", got)
	}
	if engine.boundTrack() != a {
		t.Error("expected engine to stay bound to A")
	}
}

func TestScheduler_Seek(t *testing.T) {
	tests := []struct {
		name     string
		track    *domain.Track
		position time.Duration
		wantErr  error
	}{
		{
			name:     "valid position",
			track:    mockTrack("A"),
			position: 30 * time.Second,
		},
		{
			name:     "position at duration",
			track:    mockTrack("A"),
			position: 200 * time.Second,
			wantErr:  ErrInvalidSeekPosition,
		},
		{
			name:     "negative position",
			track:    mockTrack("A"),
			position: -time.Second,
			wantErr:  ErrInvalidSeekPosition,
		},
		{
			name:     "live stream",
			track:    &domain.Track{ID: domain.NewTrackID(), Title: "Live", IsStream: true},
			position: time.Second,
			wantErr:  ErrNotSeekable,
		},
		{
			name:     "nothing playing",
			position: time.Second,
			wantErr:  ErrNotPlaying,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, engine, _, _ := newTestScheduler(t)
			if tt.track != nil {
				if _, err := s.Enqueue(tt.track); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			err := s.Seek(tt.position)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && engine.Position() != tt.position {
				t.Errorf("expected engine position %v, got %v", tt.position, engine.Position())
			}
		})
	}
}

func TestScheduler_SetVolume(t *testing.T) {
	tests := []struct {
		name    string
		volume  int
		wantErr error
	}{
		{name: "minimum", volume: 0},
		{name: "middle", volume: 55},
		{name: "maximum", volume: 100},
		{name: "too high", volume: 101, wantErr: ErrInvalidVolume},
		{name: "negative", volume: -1, wantErr: ErrInvalidVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, engine, _, _ := newTestScheduler(t)

			err := s.SetVolume(tt.volume)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			want := tt.volume
			if tt.wantErr != nil {
				want = 100
			}
			if s.Volume() != want {
				t.Errorf("expected volume %d, got %d", want, s.Volume())
			}
			engine.mu.Lock()
			engineVolume := engine.volume
			engine.mu.Unlock()
			if engineVolume != want {
				t.Errorf("expected engine volume %d, got %d", want, engineVolume)
			}
		})
	}
}

func TestScheduler_PauseResume(t *testing.T) {
	s, engine, _, _ := newTestScheduler(t)

	if err := s.Pause(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying on idle pause, got %v", err)
	}

	if _, err := s.Enqueue(mockTrack("A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("expected ErrNotPaused, got %v", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Paused() || !engine.paused {
		t.Error("expected scheduler and engine to be paused")
	}
	if err := s.Pause(); !errors.Is(err, ErrAlreadyPaused) {
		t.Errorf("expected ErrAlreadyPaused, got %v", err)
	}
	if s.State() != domain.PlaybackPlaying {
		t.Errorf("expected pause to leave state playing, got %s", s.State())
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Paused() {
		t.Error("expected scheduler to be resumed")
	}
}

func TestScheduler_FramePull(t *testing.T) {
	s, engine, _, _ := newTestScheduler(t)

	if s.HasFrame() {
		t.Error("expected no frame while idle")
	}

	if _, err := s.Enqueue(mockTrack("A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	engine.mu.Lock()
	engine.frames = [][]byte{{0x01}, {0x02}}
	engine.mu.Unlock()

	if !s.HasFrame() {
		t.Fatal("expected a frame")
	}
	if got := s.NextFrame(); len(got) != 1 || got[0] != 0x01 {
		t.Errorf("expected frame 0x01, got %v", got)
	}

	if err := s.Pause(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.HasFrame() {
		t.Error("expected no frame while paused")
	}
	if got := s.NextFrame(); len(got) != 1 || got[0] != 0x01 {
		t.Errorf("expected last buffered frame to be kept, got %v", got)
	}

	if format := s.FrameFormat(); format.Codec != "opus" || format.FrameDuration != 20*time.Millisecond {
		t.Errorf("unexpected frame format: %+v", format)
	}
}

func TestScheduler_Disconnect(t *testing.T) {
	s, engine, _, binding := newTestScheduler(t)
	if _, err := s.EnqueueMany([]*domain.Track{mockTrack("A"), mockTrack("B")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Disconnect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(s.Queue()) != 0 {
		t.Error("expected queue to be cleared")
	}
	if engine.boundTrack() != nil || !engine.closed {
		t.Error("expected engine to be stopped and closed")
	}
	if !binding.isClosed() {
		t.Error("expected binding to be closed")
	}
	if _, err := s.Enqueue(mockTrack("C")); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := s.ToggleLoop(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed from ToggleLoop, got %v", err)
	}
	if err := s.Disconnect(context.Background()); err != nil {
		t.Errorf("expected second disconnect to be a no-op, got %v", err)
	}
}

func TestScheduler_QueueOperations(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	if _, err := s.EnqueueMany([]*domain.Track{mockTrack("A"), mockTrack("B"), mockTrack("C")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.RemoveAt(0); !errors.Is(err, ErrIsCurrentTrack) {
		t.Errorf("expected ErrIsCurrentTrack, got %v", err)
	}
	if _, err := s.RemoveAt(5); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}

	removed, err := s.RemoveAt(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed.Title != "B" {
		t.Errorf("expected B removed, got %s", removed.Title)
	}

	cleared, err := s.ClearUpcoming()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared != 1 {
		t.Errorf("expected 1 cleared, got %d", cleared)
	}
	if got := trackTitles(s.Queue()); !equalTitles(got, []string{"A"}) {
		t.Errorf("expected queue [A], got %v", got)
	}
}
