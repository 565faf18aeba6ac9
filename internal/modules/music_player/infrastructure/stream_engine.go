package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

const (
	DefaultFrameBuffer    = 50
	DefaultStuckThreshold = 10 * time.Second
)

// StreamEngineConfig holds the tuning parameters of a StreamEngine.
type StreamEngineConfig struct {
	FrameBuffer    int
	StuckThreshold time.Duration
}

// StreamEngine renders the bound track into 20 ms Opus frames. A pump
// goroutine fills a bounded frame buffer; ProvideFrame only drains it.
type StreamEngine struct {
	guildID  snowflake.ID
	opener   StreamOpener
	listener ports.EngineListener
	cfg      StreamEngineConfig
	now      func() time.Time

	mu           sync.Mutex
	track        *domain.Track
	frames       chan []byte
	cancel       context.CancelFunc
	ended        bool
	paused       bool
	volume       int
	offset       time.Duration
	delivered    int64
	lastProgress time.Time
	stuckSent    bool
	closed       bool
}

var _ ports.AudioEngine = (*StreamEngine)(nil)

// NewStreamEngine creates a new StreamEngine.
func NewStreamEngine(
	guildID snowflake.ID,
	opener StreamOpener,
	listener ports.EngineListener,
	cfg StreamEngineConfig,
) *StreamEngine {
	if cfg.FrameBuffer <= 0 {
		cfg.FrameBuffer = DefaultFrameBuffer
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = DefaultStuckThreshold
	}
	return &StreamEngine{
		guildID:  guildID,
		opener:   opener,
		listener: listener,
		cfg:      cfg,
		now:      time.Now,
		volume:   100,
	}
}

// NewStreamEngineFactory returns an AudioEngineFactory producing StreamEngines.
func NewStreamEngineFactory(opener StreamOpener, cfg StreamEngineConfig) ports.AudioEngineFactory {
	return func(guildID snowflake.ID, listener ports.EngineListener) ports.AudioEngine {
		return NewStreamEngine(guildID, opener, listener, cfg)
	}
}

func (e *StreamEngine) Bind(t *domain.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.stopPumpLocked()
	e.track = t
	e.ended = false
	e.startPumpLocked(0)
}

func (e *StreamEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopPumpLocked()
	e.track = nil
	e.ended = false
}

func (e *StreamEngine) Seek(position time.Duration) {
	e.mu.Lock()
	if e.closed || e.track == nil || e.ended {
		e.mu.Unlock()
		return
	}

	track := e.track
	if position >= track.Duration {
		e.stopPumpLocked()
		e.ended = true
		e.mu.Unlock()

		e.emit(domain.EngineEvent{
			Type:   domain.EngineEventTrackEnded,
			Track:  track,
			Reason: domain.TrackEndFinished,
		})
		return
	}

	if position < 0 {
		position = 0
	}
	e.stopPumpLocked()
	e.startPumpLocked(position)
	e.mu.Unlock()
}

func (e *StreamEngine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused && !paused {
		e.lastProgress = e.now()
	}
	e.paused = paused
}

// SetVolume restarts rendering at the current position with the new gain.
func (e *StreamEngine) SetVolume(volume int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.volume == volume {
		return
	}
	e.volume = volume
	if e.closed || e.track == nil || e.ended {
		return
	}

	position := e.positionLocked()
	e.stopPumpLocked()
	e.startPumpLocked(position)
}

func (e *StreamEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.track == nil {
		return 0
	}
	return e.positionLocked()
}

func (e *StreamEngine) ProvideFrame() ([]byte, bool) {
	e.mu.Lock()
	if e.closed || e.track == nil || e.ended || e.paused {
		e.mu.Unlock()
		return nil, false
	}
	frames := e.frames
	e.mu.Unlock()

	select {
	case frame, ok := <-frames:
		if ok {
			e.mu.Lock()
			if e.frames == frames {
				e.delivered++
				e.lastProgress = e.now()
				e.stuckSent = false
			}
			e.mu.Unlock()
			return frame, true
		}
		e.finish(frames)
		return nil, false
	default:
		e.checkStuck(frames)
		return nil, false
	}
}

func (e *StreamEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopPumpLocked()
	e.track = nil
	e.closed = true
}

func (e *StreamEngine) positionLocked() time.Duration {
	return e.offset + time.Duration(e.delivered)*ports.OpusFrameFormat.FrameDuration
}

func (e *StreamEngine) startPumpLocked(offset time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan []byte, e.cfg.FrameBuffer)

	e.cancel = cancel
	e.frames = frames
	e.offset = offset
	e.delivered = 0
	e.lastProgress = e.now()
	e.stuckSent = false

	go e.pump(ctx, e.track, offset, e.volume, frames)
}

func (e *StreamEngine) stopPumpLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.frames = nil
}

// pump reads packets from the opened stream into frames and closes frames
// once the stream ends cleanly.
func (e *StreamEngine) pump(
	ctx context.Context,
	track *domain.Track,
	offset time.Duration,
	volume int,
	frames chan []byte,
) {
	stream, err := e.opener.Open(ctx, track, offset, volume)
	if err != nil {
		e.fail(ctx, frames, track, err)
		return
	}
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer func() {
		if stop() {
			_ = stream.Close()
		}
	}()

	reader := newOggReader(stream)
	for {
		packet, err := reader.ReadPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				close(frames)
				return
			}
			e.fail(ctx, frames, track, fmt.Errorf("failed to read stream: %w", err))
			return
		}

		select {
		case frames <- packet:
		case <-ctx.Done():
			return
		}
	}
}

// finish ends the track once the pump has drained.
func (e *StreamEngine) finish(frames chan []byte) {
	e.mu.Lock()
	if e.frames != frames || e.ended {
		e.mu.Unlock()
		return
	}
	track := e.track
	e.ended = true
	e.stopPumpLocked()
	e.mu.Unlock()

	e.emit(domain.EngineEvent{
		Type:   domain.EngineEventTrackEnded,
		Track:  track,
		Reason: domain.TrackEndFinished,
	})
}

func (e *StreamEngine) fail(ctx context.Context, frames chan []byte, track *domain.Track, err error) {
	if ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	if e.frames != frames || e.ended {
		e.mu.Unlock()
		return
	}
	e.ended = true
	e.stopPumpLocked()
	e.mu.Unlock()

	slog.Warn("failed to render track", "guild", e.guildID, "track", track.Title, "error", err)

	e.emit(domain.EngineEvent{
		Type:  domain.EngineEventTrackException,
		Track: track,
		Err:   err,
	})
	e.emit(domain.EngineEvent{
		Type:   domain.EngineEventTrackEnded,
		Track:  track,
		Reason: domain.TrackEndLoadFailed,
	})
}

func (e *StreamEngine) checkStuck(frames chan []byte) {
	e.mu.Lock()
	if e.frames != frames || e.ended || e.paused || e.stuckSent {
		e.mu.Unlock()
		return
	}
	if e.now().Sub(e.lastProgress) < e.cfg.StuckThreshold {
		e.mu.Unlock()
		return
	}
	e.stuckSent = true
	track := e.track
	threshold := e.cfg.StuckThreshold
	e.mu.Unlock()

	slog.Warn("track stuck", "guild", e.guildID, "track", track.Title, "threshold", threshold)

	e.emit(domain.EngineEvent{
		Type:      domain.EngineEventTrackStuck,
		Track:     track,
		Threshold: threshold,
	})
}

func (e *StreamEngine) emit(event domain.EngineEvent) {
	if e.listener != nil {
		e.listener.OnEngineEvent(event)
	}
}
