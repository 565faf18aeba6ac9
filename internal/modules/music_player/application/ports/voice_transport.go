package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceTransport connects a guild to a voice channel.
type VoiceTransport interface {
	Join(ctx context.Context, guildID, channelID snowflake.ID) (VoiceBinding, error)
}

// VoiceBinding is one guild's connection to a voice channel.
type VoiceBinding interface {
	ChannelID() snowflake.ID

	// Move switches the connection to another voice channel in the same guild.
	Move(ctx context.Context, channelID snowflake.ID) error

	// Start begins pulling frames from source on the transport's own cadence.
	Start(source FrameSource)

	// Close stops pulling frames and leaves the voice channel.
	Close(ctx context.Context) error
}
