package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

func mockTrack(title string) *domain.Track {
	return &domain.Track{
		ID:          domain.NewTrackID(),
		Handle:      "encoded-" + title,
		Title:       title,
		Artist:      "Artist",
		Duration:    200 * time.Second,
		RequesterID: snowflake.ID(123),
	}
}

func mockTrackInfo(title string) domain.TrackInfo {
	return domain.TrackInfo{
		Identifier: title,
		Handle:     "encoded-" + title,
		Title:      title,
		Artist:     "Artist",
		Duration:   3 * time.Minute,
		SourceName: "youtube",
	}
}

func trackTitles(tracks []*domain.Track) []string {
	result := make([]string, len(tracks))
	for i, t := range tracks {
		result[i] = t.Title
	}
	return result
}

func equalTitles(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// eventually polls cond until it holds or one second passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting: %s", msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// mockEngine records calls and lets tests emit engine events.
type mockEngine struct {
	mu       sync.Mutex
	listener ports.EngineListener
	bound    *domain.Track
	binds    []*domain.Track
	ended    bool
	seeks    []time.Duration
	paused   bool
	volume   int
	stops    int
	closed   bool
	frames   [][]byte
	position time.Duration
}

func (m *mockEngine) Bind(t *domain.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bound = t
	m.binds = append(m.binds, t)
	m.ended = false
	m.position = 0
}

func (m *mockEngine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bound = nil
	m.stops++
}

// Seek ends the bound track once when position reaches its duration.
func (m *mockEngine) Seek(position time.Duration) {
	m.mu.Lock()
	m.seeks = append(m.seeks, position)
	bound := m.bound
	end := bound != nil && !m.ended && position >= bound.Duration
	if end {
		m.ended = true
	} else {
		m.position = position
	}
	m.mu.Unlock()

	if end {
		m.listener.OnEngineEvent(domain.EngineEvent{
			Type:   domain.EngineEventTrackEnded,
			Track:  bound,
			Reason: domain.TrackEndFinished,
		})
	}
}

func (m *mockEngine) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
}

func (m *mockEngine) SetVolume(volume int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
}

func (m *mockEngine) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *mockEngine) ProvideFrame() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused || m.bound == nil || len(m.frames) == 0 {
		return nil, false
	}
	frame := m.frames[0]
	m.frames = m.frames[1:]
	return frame, true
}

func (m *mockEngine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockEngine) boundTrack() *domain.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bound
}

func (m *mockEngine) bindCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.binds)
}

// emit sends an event for the currently bound track.
func (m *mockEngine) emit(event domain.EngineEvent) {
	m.mu.Lock()
	if event.Track == nil {
		event.Track = m.bound
	}
	m.mu.Unlock()
	m.listener.OnEngineEvent(event)
}

// finish ends the bound track naturally.
func (m *mockEngine) finish() {
	m.emit(domain.EngineEvent{Type: domain.EngineEventTrackEnded, Reason: domain.TrackEndFinished})
}

// engineRecorder creates mockEngines and remembers them.
type engineRecorder struct {
	mu      sync.Mutex
	engines []*mockEngine
}

func (r *engineRecorder) factory(_ snowflake.ID, listener ports.EngineListener) ports.AudioEngine {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &mockEngine{listener: listener}
	r.engines = append(r.engines, e)
	return e
}

func (r *engineRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

type mockBinding struct {
	mu        sync.Mutex
	channelID snowflake.ID
	source    ports.FrameSource
	starts    int
	closed    bool
	closeErr  error
	moveErr   error
}

func (m *mockBinding) ChannelID() snowflake.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channelID
}

func (m *mockBinding) Move(_ context.Context, channelID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.moveErr != nil {
		return m.moveErr
	}
	m.channelID = channelID
	return nil
}

func (m *mockBinding) Start(source ports.FrameSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = source
	m.starts++
}

func (m *mockBinding) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.closeErr
}

func (m *mockBinding) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockSink struct {
	mu         sync.Mutex
	nowPlaying []domain.NowPlaying
	stuck      []domain.StuckTrack
	errors     []domain.PlaybackError
}

func (m *mockSink) NowPlaying(info domain.NowPlaying) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowPlaying = append(m.nowPlaying, info)
}

func (m *mockSink) TrackStuck(info domain.StuckTrack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stuck = append(m.stuck, info)
}

func (m *mockSink) PlaybackError(info domain.PlaybackError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, info)
}

func (m *mockSink) nowPlayingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nowPlaying)
}

func (m *mockSink) lastNowPlaying() domain.NowPlaying {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.nowPlaying) == 0 {
		return domain.NowPlaying{}
	}
	return m.nowPlaying[len(m.nowPlaying)-1]
}

func (m *mockSink) stuckCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stuck)
}

func (m *mockSink) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

type mockSinkProvider struct {
	mu       sync.Mutex
	sinks    map[snowflake.ID]*mockSink
	requests []snowflake.ID
}

func newMockSinkProvider() *mockSinkProvider {
	return &mockSinkProvider{sinks: make(map[snowflake.ID]*mockSink)}
}

func (m *mockSinkProvider) SinkFor(_, channelID snowflake.ID) ports.LogSink {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, channelID)
	sink, ok := m.sinks[channelID]
	if !ok {
		sink = &mockSink{}
		m.sinks[channelID] = sink
	}
	return sink
}

type mockTransport struct {
	mu       sync.Mutex
	joinErr  error
	bindings []*mockBinding
}

func (m *mockTransport) Join(
	_ context.Context,
	_, channelID snowflake.ID,
) (ports.VoiceBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	b := &mockBinding{channelID: channelID}
	m.bindings = append(m.bindings, b)
	return b, nil
}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(
	_, userID snowflake.ID,
) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.channels[userID], nil
}

// mockTrackResolver answers each query through respond. A nil respond (or one
// that does nothing) simulates a resolver that never calls back.
type mockTrackResolver struct {
	mu      sync.Mutex
	queries []string
	respond func(query string, handler ports.LoadResultHandler)
}

func (m *mockTrackResolver) Submit(
	_ context.Context,
	query string,
	handler ports.LoadResultHandler,
) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	respond := m.respond
	m.mu.Unlock()

	if respond != nil {
		go respond(query, handler)
	}
}

func (m *mockTrackResolver) submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

type mockCatalog struct {
	listing *domain.CatalogListing
	err     error
}

func (m *mockCatalog) Lookup(_ context.Context, _ string) (*domain.CatalogListing, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.listing, nil
}

var errBlocked = errors.New("host not allowed")

type mockFilter struct {
	blocked bool
}

func (m *mockFilter) Check(_ *domain.SearchQuery) error {
	if m.blocked {
		return errBlocked
	}
	return nil
}

// newTestScheduler creates a Scheduler backed by a mockEngine.
func newTestScheduler(t *testing.T) (*Scheduler, *mockEngine, *mockSink, *mockBinding) {
	t.Helper()

	recorder := &engineRecorder{}
	sink := &mockSink{}
	binding := &mockBinding{channelID: snowflake.ID(10)}

	s := NewScheduler(SchedulerConfig{
		GuildID:       snowflake.ID(1),
		Binding:       binding,
		Sink:          sink,
		DefaultVolume: 100,
	}, recorder.factory, nil)

	t.Cleanup(func() {
		_ = s.Disconnect(context.Background())
	})

	return s, recorder.engines[0], sink, binding
}
