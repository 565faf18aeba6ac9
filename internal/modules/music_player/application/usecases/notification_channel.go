package usecases

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
)

// NotificationChannelService handles updating the notification channel for a guild's player.
type NotificationChannelService struct {
	registry *SessionRegistry
	sinks    ports.LogSinkProvider
}

// NewNotificationChannelService creates a new NotificationChannelService.
func NewNotificationChannelService(
	registry *SessionRegistry,
	sinks ports.LogSinkProvider,
) *NotificationChannelService {
	return &NotificationChannelService{registry: registry, sinks: sinks}
}

// SetNotificationChannelInput contains the input for the Set use case.
type SetNotificationChannelInput struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// Set redirects the guild player's notifications to the given channel.
func (n *NotificationChannelService) Set(input SetNotificationChannelInput) error {
	_, err := lookupSession(n.registry, n.sinks, input.GuildID, input.ChannelID)
	return err
}
