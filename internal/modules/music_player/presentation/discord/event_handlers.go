package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/usecases"
)

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	voiceChannel *usecases.VoiceChannelService
	autocomplete *AutocompleteHandler
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(
	voiceChannel *usecases.VoiceChannelService,
	autocomplete *AutocompleteHandler,
) *EventHandlers {
	return &EventHandlers{
		voiceChannel: voiceChannel,
		autocomplete: autocomplete,
	}
}

// HandleVoiceStateUpdate handles VoiceStateUpdate events for the bot.
func (h *EventHandlers) HandleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	// Only handle updates for the bot itself
	if s.State == nil || s.State.User == nil || event.UserID != s.State.User.ID {
		return
	}

	input, ok := botVoiceStateChange(event)
	if !ok {
		return
	}

	h.voiceChannel.HandleBotVoiceStateChange(context.Background(), input)
}

// HandleInteractionCreate routes autocomplete interactions.
func (h *EventHandlers) HandleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		return
	}

	switch autocompleteTarget(i.ApplicationCommandData()) {
	case "play":
		h.autocomplete.HandlePlay(s, i)
	case "position":
		h.autocomplete.HandleQueuePosition(s, i)
	}
}

// autocompleteTarget returns which autocomplete source serves data.
func autocompleteTarget(data discordgo.ApplicationCommandInteractionData) string {
	switch data.Name {
	case "play":
		return "play"
	case "skipto":
		return "position"
	case "queue":
		if len(data.Options) > 0 && data.Options[0].Name == "remove" {
			return "position"
		}
	}
	return ""
}

func botVoiceStateChange(event *discordgo.VoiceStateUpdate) (usecases.BotVoiceStateChangeInput, bool) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return usecases.BotVoiceStateChangeInput{}, false
	}

	// Parse the channel ID - nil means disconnected
	var newChannelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return usecases.BotVoiceStateChangeInput{}, false
		}
		newChannelID = &id
	}

	return usecases.BotVoiceStateChangeInput{
		GuildID:      guildID,
		NewChannelID: newChannelID,
	}, true
}
