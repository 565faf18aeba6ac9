package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// LogSink receives fire-and-forget playback notifications for one session.
// Implementations must not block the caller.
type LogSink interface {
	NowPlaying(info domain.NowPlaying)
	TrackStuck(info domain.StuckTrack)
	PlaybackError(info domain.PlaybackError)
}

// LogSinkProvider returns the sink that reports to a text channel.
type LogSinkProvider interface {
	SinkFor(guildID, channelID snowflake.ID) LogSink
}
