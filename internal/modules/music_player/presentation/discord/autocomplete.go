package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/usecases"
)

const (
	// maxChoices is the Discord limit for autocomplete choices.
	maxChoices = 25
	// minSearchLength is the shortest query that triggers a search.
	minSearchLength = 2
	// searchTimeout keeps autocomplete within the interaction deadline.
	searchTimeout = 2500 * time.Millisecond
)

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	autocomplete *usecases.AutocompleteService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(autocomplete *usecases.AutocompleteService) *AutocompleteHandler {
	return &AutocompleteHandler{autocomplete: autocomplete}
}

// HandlePlay handles autocomplete for the play command.
func (h *AutocompleteHandler) HandlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondChoices(s, i, h.playChoices(i))
}

func (h *AutocompleteHandler) playChoices(
	i *discordgo.InteractionCreate,
) []*discordgo.ApplicationCommandOptionChoice {
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
			break
		}
	}

	// Don't search for very short queries
	if len([]rune(query)) < minSearchLength {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	output, err := h.autocomplete.SearchTracks(ctx, usecases.SearchTracksInput{
		Query: query,
		Limit: maxChoices,
	})
	if err != nil {
		slog.Debug("failed to search tracks for autocomplete", "query", query, "error", err)
		return nil
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(output.Tracks))
	for _, track := range output.Tracks {
		// Values are limited to 100 characters; fall back to the title search.
		value := track.URI
		if value == "" || len(value) > 100 {
			value = truncate(track.Title, 100)
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("🎵 %s - %s", track.Title, track.Artist), 100),
			Value: value,
		})
	}

	return choices
}

// HandleQueuePosition handles autocomplete for options naming a queue
// position (skipto, queue remove).
func (h *AutocompleteHandler) HandleQueuePosition(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", i.GuildID)
		return
	}

	respondChoices(s, i, h.queuePositionChoices(guildID))
}

func (h *AutocompleteHandler) queuePositionChoices(
	guildID snowflake.ID,
) []*discordgo.ApplicationCommandOptionChoice {
	output := h.autocomplete.GetQueueTracks(usecases.GetQueueTracksInput{GuildID: guildID})
	if len(output.Tracks) <= 1 {
		return nil
	}

	// Position 0 is the current track and is not offered.
	upcoming := output.Tracks[1:]
	if len(upcoming) > maxChoices {
		upcoming = upcoming[:maxChoices]
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(upcoming))
	for idx, track := range upcoming {
		position := idx + 1
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  strconv.Itoa(position) + ". " + truncate(track.Title, 90),
			Value: position,
		})
	}

	return choices
}

func respondChoices(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	choices []*discordgo.ApplicationCommandOptionChoice,
) {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		slog.Debug("failed to respond to autocomplete", "error", err)
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
