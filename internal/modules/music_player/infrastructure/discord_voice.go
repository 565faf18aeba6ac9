package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
)

// silenceFrames is sent before going quiet so clients do not interpolate
// the last frame.
const silenceFrames = 5

// idleTicksBeforeSilence is how many empty pulls end a speaking burst.
const idleTicksBeforeSilence = 5

var opusSilence = []byte{0xF8, 0xFF, 0xFE}

// voiceConn is the part of *discordgo.VoiceConnection a binding drives.
type voiceConn interface {
	Speaking(speaking bool) error
	ChangeChannel(channelID string, mute, deaf bool) error
	Disconnect() error
}

// DiscordVoiceTransport joins voice channels through a discordgo session.
type DiscordVoiceTransport struct {
	session *discordgo.Session
}

var _ ports.VoiceTransport = (*DiscordVoiceTransport)(nil)

// NewDiscordVoiceTransport creates a new DiscordVoiceTransport.
func NewDiscordVoiceTransport(session *discordgo.Session) *DiscordVoiceTransport {
	return &DiscordVoiceTransport{session: session}
}

func (t *DiscordVoiceTransport) Join(
	ctx context.Context,
	guildID, channelID snowflake.ID,
) (ports.VoiceBinding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := t.session.ChannelVoiceJoin(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	slog.Info("joined voice channel", "guild", guildID, "channel", channelID)

	return newVoiceBinding(guildID, channelID, vc, vc.OpusSend), nil
}

// voiceBinding paces frames from a FrameSource into a voice connection.
type voiceBinding struct {
	guildID snowflake.ID
	conn    voiceConn
	opus    chan<- []byte

	mu        sync.Mutex
	channelID snowflake.ID
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
}

var _ ports.VoiceBinding = (*voiceBinding)(nil)

func newVoiceBinding(
	guildID, channelID snowflake.ID,
	conn voiceConn,
	opus chan<- []byte,
) *voiceBinding {
	return &voiceBinding{
		guildID:   guildID,
		channelID: channelID,
		conn:      conn,
		opus:      opus,
	}
}

func (b *voiceBinding) ChannelID() snowflake.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channelID
}

func (b *voiceBinding) Move(ctx context.Context, channelID snowflake.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channelID == channelID {
		return nil
	}
	if err := b.conn.ChangeChannel(channelID.String(), false, true); err != nil {
		return fmt.Errorf("failed to move voice channel: %w", err)
	}
	b.channelID = channelID

	slog.Info("moved voice channel", "guild", b.guildID, "channel", channelID)
	return nil
}

// Start launches the pacing loop. Only the first call has an effect.
func (b *voiceBinding) Start(source ports.FrameSource) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.pace(ctx, source)
}

func (b *voiceBinding) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := b.conn.Disconnect(); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}

	slog.Info("left voice channel", "guild", b.guildID)
	return nil
}

// pace pulls one frame per frame interval and forwards it to the connection.
func (b *voiceBinding) pace(ctx context.Context, source ports.FrameSource) {
	defer close(b.done)

	ticker := time.NewTicker(source.FrameFormat().FrameDuration)
	defer ticker.Stop()

	speaking := false
	idle := 0

	for {
		select {
		case <-ctx.Done():
			if speaking {
				_ = b.conn.Speaking(false)
			}
			return
		case <-ticker.C:
		}

		if source.HasFrame() {
			idle = 0
			if !speaking {
				if err := b.conn.Speaking(true); err != nil {
					slog.Debug("failed to set speaking", "guild", b.guildID, "error", err)
				}
				speaking = true
			}
			if !b.write(ctx, source.NextFrame()) {
				return
			}
			continue
		}

		if !speaking {
			continue
		}
		idle++
		if idle < idleTicksBeforeSilence {
			continue
		}
		for range silenceFrames {
			if !b.write(ctx, opusSilence) {
				return
			}
		}
		_ = b.conn.Speaking(false)
		speaking = false
		idle = 0
	}
}

func (b *voiceBinding) write(ctx context.Context, frame []byte) bool {
	select {
	case b.opus <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}
