package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/sgrmusic/internal/bot"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/usecases"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	voiceChannel        *usecases.VoiceChannelService
	playback            *usecases.PlaybackService
	queue               *usecases.QueueService
	trackLoader         *usecases.TrackLoaderService
	notificationChannel *usecases.NotificationChannelService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	voiceChannel *usecases.VoiceChannelService,
	playback *usecases.PlaybackService,
	queue *usecases.QueueService,
	trackLoader *usecases.TrackLoaderService,
	notificationChannel *usecases.NotificationChannelService,
) *CommandHandlers {
	return &CommandHandlers{
		voiceChannel:        voiceChannel,
		playback:            playback,
		queue:               queue,
		trackLoader:         trackLoader,
		notificationChannel: notificationChannel,
	}
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	userID, err := parseUser(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	var voiceChannelID snowflake.ID
	if opt, ok := findOption(i.ApplicationCommandData().Options, "channel"); ok {
		voiceChannelID, err = snowflake.Parse(opt.ChannelValue(s).ID)
		if err != nil {
			return respondError(r, "Invalid voice channel")
		}
	}

	output, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: notificationChannelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID))
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, _, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	if err := h.voiceChannel.Leave(ctx, usecases.LeaveInput{GuildID: guildID}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Disconnected.")
}

// HandlePlay handles the /play command.
// Resolution can take longer than the interaction deadline, so the response is deferred.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	userID, err := parseUser(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	var query string
	if opt, ok := findOption(i.ApplicationCommandData().Options, "query"); ok {
		query = strings.TrimSpace(opt.StringValue())
	}
	if query == "" {
		return respondError(r, "Please provide a URL or search term.")
	}

	if err := r.Defer(); err != nil {
		return err
	}

	// 1. Join voice channel (or update notification channel if already connected)
	joinOutput, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	// 2. Resolve the query (single track, search result or playlist)
	loadOutput, err := h.trackLoader.LoadTrack(ctx, usecases.LoadTrackInput{
		Query:       query,
		RequesterID: userID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	// 3. Add to the session joined above, even if it was torn down meanwhile
	addOutput, err := h.queue.Add(usecases.QueueAddInput{
		GuildID: guildID,
		Tracks:  loadOutput.Tracks,
		Session: joinOutput.Session,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, describeQueued(loadOutput, addOutput))
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	err = h.playback.Pause(usecases.PauseInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	err = h.playback.Resume(usecases.ResumeInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Resumed playback.")
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	output, err := h.playback.Skip(usecases.SkipInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	// "Now Playing" for the next track is sent by the notifier.
	return respondSuccess(r, fmt.Sprintf("Skipped %s.", trackLink(output.SkippedTrack)))
}

// HandleSkipTo handles the /skipto command.
func (h *CommandHandlers) HandleSkipTo(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	var position int
	if opt, ok := findOption(i.ApplicationCommandData().Options, "position"); ok {
		position = int(opt.IntValue())
	}

	output, err := h.playback.SkipTo(usecases.SkipToInput{
		GuildID:               guildID,
		Position:              position,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Skipped to %s.", trackLink(output.NextTrack)))
}

// HandleSeek handles the /seek command.
func (h *CommandHandlers) HandleSeek(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	var raw string
	if opt, ok := findOption(i.ApplicationCommandData().Options, "position"); ok {
		raw = opt.StringValue()
	}

	position, err := parsePosition(raw)
	if err != nil {
		return respondError(r, "Invalid position. Use seconds, mm:ss or hh:mm:ss.")
	}

	// Check the bound here so the user gets the track length in the error.
	status, err := h.playback.NowPlaying(usecases.NowPlayingInput{GuildID: guildID})
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	if !status.Track.IsSeekable() {
		return respondError(r, errorMessage(usecases.ErrNotSeekable))
	}
	if position >= status.Track.Duration {
		return respondError(r, fmt.Sprintf(
			"Position must be before %s.",
			status.Track.FormattedDuration(),
		))
	}

	err = h.playback.Seek(usecases.SeekInput{
		GuildID:               guildID,
		Position:              position,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Seeked to %s.", usecases.FormatDuration(position)))
}

// HandleVolume handles the /volume command.
func (h *CommandHandlers) HandleVolume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	opt, ok := findOption(i.ApplicationCommandData().Options, "level")
	if !ok {
		return respondError(r, errorMessage(usecases.ErrInvalidVolume))
	}
	volume := int(opt.IntValue())
	if volume < usecases.MinVolume || volume > usecases.MaxVolume {
		return respondError(r, errorMessage(usecases.ErrInvalidVolume))
	}

	err = h.playback.SetVolume(usecases.SetVolumeInput{
		GuildID:               guildID,
		Volume:                volume,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Volume set to %d%%.", volume))
}

// HandleLoop handles the /loop command.
func (h *CommandHandlers) HandleLoop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	output, err := h.playback.ToggleLoop(usecases.ToggleLoopInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	if output.Enabled {
		return respondSuccess(r, "Now looping the current track.")
	}
	return respondSuccess(r, "Loop disabled.")
}

// HandleNowPlaying handles the /nowplaying command.
func (h *CommandHandlers) HandleNowPlaying(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	// Update notification channel (best-effort)
	_ = h.notificationChannel.Set(usecases.SetNotificationChannelInput{
		GuildID:   guildID,
		ChannelID: notificationChannelID,
	})

	output, err := h.playback.NowPlaying(usecases.NowPlayingInput{GuildID: guildID})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{nowPlayingEmbed(output)},
		},
	})
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "list":
		return h.handleQueueList(s, i, r, subCmd.Options)
	case "remove":
		return h.handleQueueRemove(s, i, r, subCmd.Options)
	case "clear":
		return h.handleQueueClear(s, i, r)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *CommandHandlers) handleQueueList(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	page := 1
	if opt, ok := findOption(options, "page"); ok {
		page = int(opt.IntValue())
	}

	output, err := h.queue.List(usecases.QueueListInput{
		GuildID:               guildID,
		Page:                  page,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{queueEmbed(output)},
		},
	})
}

func (h *CommandHandlers) handleQueueRemove(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	// Display positions match queue positions: 0 is the current track.
	var position int
	if opt, ok := findOption(options, "position"); ok {
		position = int(opt.IntValue())
	}

	output, err := h.queue.Remove(usecases.QueueRemoveInput{
		GuildID:               guildID,
		Position:              position,
		NotificationChannelID: notificationChannelID,
	})
	if errors.Is(err, usecases.ErrIsCurrentTrack) {
		skipOutput, skipErr := h.playback.Skip(usecases.SkipInput{GuildID: guildID})
		if skipErr != nil {
			return respondError(r, errorMessage(skipErr))
		}
		return respondSuccess(r, fmt.Sprintf("Removed %s.", trackLink(skipOutput.SkippedTrack)))
	}
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Removed %s.", trackLink(output.RemovedTrack)))
}

func (h *CommandHandlers) handleQueueClear(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, notificationChannelID, err := parseGuildAndChannel(i)
	if err != nil {
		return respondError(r, sentence(err.Error()))
	}

	output, err := h.queue.Clear(usecases.QueueClearInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	noun := "tracks"
	if output.ClearedCount == 1 {
		noun = "track"
	}
	return respondSuccess(r, fmt.Sprintf("Cleared %d %s from the queue.", output.ClearedCount, noun))
}

// Request parsing helpers.

func parseGuildAndChannel(i *discordgo.InteractionCreate) (snowflake.ID, snowflake.ID, error) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return 0, 0, errors.New("invalid guild")
	}

	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return 0, 0, errors.New("invalid notification channel")
	}

	return guildID, channelID, nil
}

func parseUser(i *discordgo.InteractionCreate) (snowflake.ID, error) {
	if i.Member == nil || i.Member.User == nil {
		return 0, errors.New("invalid user")
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return 0, errors.New("invalid user")
	}

	return userID, nil
}

func findOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	return lo.Find(options, func(opt *discordgo.ApplicationCommandInteractionDataOption) bool {
		return opt.Name == name
	})
}

// parsePosition parses "90", "1:30" or "1:02:03" into a duration.
func parsePosition(raw string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many components in %q", raw)
	}

	var total int
	for idx, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid component %q", part)
		}
		// Minutes and seconds after the first component are base 60.
		if idx > 0 && n >= 60 {
			return 0, fmt.Errorf("component %q out of range", part)
		}
		total = total*60 + n
	}

	return time.Duration(total) * time.Second, nil
}

// userErrors lists the errors whose message is shown to the user, most
// specific first.
var userErrors = []error{
	usecases.ErrNotConnected,
	usecases.ErrUserNotInVoice,
	usecases.ErrSessionClosed,
	usecases.ErrNotPlaying,
	usecases.ErrAlreadyPaused,
	usecases.ErrNotPaused,
	usecases.ErrNoResults,
	usecases.ErrQueueEmpty,
	usecases.ErrNothingToClear,
	usecases.ErrInvalidPosition,
	usecases.ErrIsCurrentTrack,
	usecases.ErrNotSeekable,
	usecases.ErrInvalidSeekPosition,
	usecases.ErrInvalidVolume,
	usecases.ErrReferenceBlocked,
	usecases.ErrResolutionTimeout,
	usecases.ErrLoadFailed,
}

// errorMessage translates err into a user-facing sentence.
func errorMessage(err error) string {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return sentence(target.Error())
		}
	}

	slog.Warn("unexpected error in music command", "error", err)
	return "Something went wrong. Please try again later."
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

// Response helpers.

func respondSuccess(r bot.Responder, description string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: description,
					Color:       colorSuccess,
				},
			},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
		},
	})
}

// Embed builders.

func describeQueued(load *usecases.LoadTrackOutput, add *usecases.QueueAddOutput) string {
	var description string
	switch {
	case load.IsPlaylist:
		description = fmt.Sprintf(
			"Added **%d tracks** from playlist **%s** to the queue.",
			add.Count,
			load.PlaylistName,
		)
	case add.Position == 0:
		description = fmt.Sprintf("Now playing %s.", trackLink(load.Tracks[0]))
	default:
		description = fmt.Sprintf(
			"Added %s to the queue at position %d.",
			trackLink(load.Tracks[0]),
			add.Position,
		)
	}

	if load.Dropped > 0 {
		description += fmt.Sprintf("\n%d entries could not be resolved and were skipped.", load.Dropped)
	}
	return description
}

func nowPlayingEmbed(output *usecases.NowPlayingOutput) *discordgo.MessageEmbed {
	track := output.Track

	title := "Now Playing"
	if output.Paused {
		title = "Now Playing (paused)"
	}

	progress := track.FormattedDuration()
	if !track.IsStream {
		progress = usecases.FormatDuration(output.Position) + " / " + progress
	}

	loop := "Off"
	if output.Loop {
		loop = "Track"
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: trackLink(track),
		Color:       track.Source().Color(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Position", Value: progress, Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", output.Volume), Inline: true},
			{Name: "Loop", Value: loop, Inline: true},
			{Name: "Queue", Value: strconv.Itoa(output.QueueLength - 1) + " up next", Inline: true},
		},
	}
	if track.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.ArtworkURL}
	}

	return embed
}

func queueEmbed(output *usecases.QueueListOutput) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Queue",
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d", output.CurrentPage, output.TotalPages),
		},
	}

	if output.CurrentTrack == nil {
		embed.Description = "Queue is empty."
		return embed
	}

	var sb strings.Builder
	sb.WriteString("### Now Playing\n")
	writeTrackLine(&sb, 0, output.CurrentTrack)

	if len(output.Tracks) > 0 {
		sb.WriteString("### Up Next\n")
		for idx, track := range output.Tracks {
			writeTrackLine(&sb, output.PageStart+idx, track)
		}
	}

	embed.Description = sb.String()
	if output.TotalTracks > 0 {
		embed.Footer.Text += fmt.Sprintf(" • %d upcoming", output.TotalTracks)
	}

	return embed
}

func trackLink(track *usecases.Track) string {
	if track == nil {
		return "the track"
	}
	if track.URI != "" {
		return fmt.Sprintf("[%s](%s)", track.Title, track.URI)
	}
	return fmt.Sprintf("**%s**", track.Title)
}

// writeTrackLine writes a single track line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeTrackLine(sb *strings.Builder, displayIndex int, track *usecases.Track) {
	fmt.Fprintf(
		sb,
		"%d\\. %s - %s `%s`\n",
		displayIndex,
		trackLink(track),
		track.Artist,
		track.FormattedDuration(),
	)
}
