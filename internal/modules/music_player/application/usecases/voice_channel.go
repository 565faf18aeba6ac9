package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
	Session        *Scheduler
}

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
}

// BotVoiceStateChangeInput contains the input for handling bot voice state changes.
type BotVoiceStateChangeInput struct {
	GuildID      snowflake.ID
	NewChannelID *snowflake.ID // nil means disconnected
}

// VoiceChannelService handles voice channel operations.
type VoiceChannelService struct {
	registry   *SessionRegistry
	transport  ports.VoiceTransport
	voiceState ports.VoiceStateProvider
	sinks      ports.LogSinkProvider

	// joins serializes Join per guild so only one voice connection is opened
	// for a new session.
	joins guildLocks
}

// NewVoiceChannelService creates a new VoiceChannelService.
func NewVoiceChannelService(
	registry *SessionRegistry,
	transport ports.VoiceTransport,
	voiceState ports.VoiceStateProvider,
	sinks ports.LogSinkProvider,
) *VoiceChannelService {
	return &VoiceChannelService{
		registry:   registry,
		transport:  transport,
		voiceState: voiceState,
		sinks:      sinks,
	}
}

// Join joins the bot to a voice channel and returns the guild's session,
// creating it on first use.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	// Determine which channel to join
	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, err := v.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if userChannel == 0 {
			return nil, ErrUserNotInVoice
		}
		voiceChannelID = userChannel
	}

	sink := v.sinks.SinkFor(input.GuildID, input.NotificationChannelID)

	unlock := v.joins.lock(input.GuildID)
	defer unlock()

	if existing := v.registry.Get(input.GuildID); existing != nil {
		existing.SetLogSink(sink)

		// Moving channels keeps the queue.
		if existing.VoiceChannelID() != voiceChannelID {
			if err := existing.MoveTo(ctx, voiceChannelID); err != nil {
				return nil, err
			}
		}

		return &JoinOutput{VoiceChannelID: voiceChannelID, Session: existing}, nil
	}

	binding, err := v.transport.Join(ctx, input.GuildID, voiceChannelID)
	if err != nil {
		return nil, err
	}

	session, created := v.registry.GetOrCreate(input.GuildID, binding, sink)
	if created {
		slog.Info("created session", "guild", input.GuildID, "channel", voiceChannelID)
	}

	return &JoinOutput{VoiceChannelID: session.VoiceChannelID(), Session: session}, nil
}

// HandleBotVoiceStateChange handles external voice state changes (bot moved or disconnected).
// This should be called when the bot's voice state changes due to external factors
// (e.g., being moved by a user or disconnected by Discord).
func (v *VoiceChannelService) HandleBotVoiceStateChange(
	ctx context.Context,
	input BotVoiceStateChangeInput,
) {
	session := v.registry.Get(input.GuildID)
	if session == nil {
		// No session exists, nothing to do
		return
	}

	if input.NewChannelID == nil {
		if err := session.Disconnect(ctx); err != nil {
			slog.Warn("failed to tear down session after disconnect",
				"guild", input.GuildID, "error", err)
		}
		return
	}

	if err := session.MoveTo(ctx, *input.NewChannelID); err != nil {
		slog.Warn("failed to follow voice channel move",
			"guild", input.GuildID, "channel", *input.NewChannelID, "error", err)
	}
}

// Leave leaves the voice channel and tears down the session.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) error {
	session := v.registry.Get(input.GuildID)
	if session == nil {
		return ErrNotConnected
	}

	return session.Disconnect(ctx)
}

// guildLocks hands out one mutex per guild. Entries are dropped once no
// caller holds or waits for them.
type guildLocks struct {
	mu    sync.Mutex
	locks map[snowflake.ID]*guildLock
}

type guildLock struct {
	mu   sync.Mutex
	refs int
}

func (g *guildLocks) lock(guildID snowflake.ID) (unlock func()) {
	g.mu.Lock()
	if g.locks == nil {
		g.locks = make(map[snowflake.ID]*guildLock)
	}
	l, ok := g.locks[guildID]
	if !ok {
		l = &guildLock{}
		g.locks[guildID] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, guildID)
		}
		g.mu.Unlock()
	}
}
