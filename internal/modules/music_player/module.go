package music_player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/sglre6355/sgrmusic/internal/bot"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/presentation/discord"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.ReadyModule        = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	eventHandlers   *discord.EventHandlers

	registry *usecases.SessionRegistry
	notifier *infrastructure.Notifier
	lavalink *infrastructure.LavalinkResolver
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":       m.commandHandlers.HandleJoin,
		"leave":      m.commandHandlers.HandleLeave,
		"play":       m.commandHandlers.HandlePlay,
		"pause":      m.commandHandlers.HandlePause,
		"resume":     m.commandHandlers.HandleResume,
		"skip":       m.commandHandlers.HandleSkip,
		"skipto":     m.commandHandlers.HandleSkipTo,
		"seek":       m.commandHandlers.HandleSeek,
		"volume":     m.commandHandlers.HandleVolume,
		"loop":       m.commandHandlers.HandleLoop,
		"nowplaying": m.commandHandlers.HandleNowPlaying,
		"queue":      m.commandHandlers.HandleQueue,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		m.eventHandlers.HandleVoiceStateUpdate,
		m.eventHandlers.HandleInteractionCreate,
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return errors.New("music_player module requires a Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}
	cfg := m.config

	// Resolution
	var resolver ports.TrackResolver
	if cfg.UseLavalink() {
		m.lavalink = infrastructure.NewLavalinkResolver(infrastructure.LavalinkConfig{
			Address:  cfg.LavalinkAddress,
			Password: cfg.LavalinkPassword,
			Secure:   cfg.LavalinkSecure,
		})
		resolver = m.lavalink
	} else {
		resolver = infrastructure.NewYouTubeResolver(cfg.YTDLPPath, cfg.PlaylistLimit)
	}

	trackLoader := usecases.NewTrackLoaderService(
		resolver,
		// Leave room for entries that fail to resolve.
		infrastructure.NewYTDLPCatalog(cfg.YTDLPPath, 2*cfg.PlaylistLimit),
		infrastructure.NewDestinationFilter(cfg.AllowedHosts),
		usecases.TrackLoaderConfig{
			PlaylistLimit: cfg.PlaylistLimit,
			LoadTimeout:   cfg.LoadTimeout,
			EntryTimeout:  cfg.CatalogEntryTimeout,
			CatalogHosts:  cfg.CatalogHosts,
			RateLimit:     cfg.CatalogRateLimit,
			RateBurst:     cfg.CatalogRateBurst,
		},
	)

	// Playback
	engineFactory := infrastructure.NewStreamEngineFactory(
		infrastructure.NewFFmpegOpener(cfg.YTDLPPath, cfg.FFmpegPath),
		infrastructure.StreamEngineConfig{
			FrameBuffer:    cfg.FrameBuffer,
			StuckThreshold: cfg.StuckThreshold,
		},
	)
	m.registry = usecases.NewSessionRegistry(engineFactory, cfg.DefaultVolume)

	// Discord adapters
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	userInfo := infrastructure.NewDiscordUserInfoProvider(deps.Session)
	transport := infrastructure.NewDiscordVoiceTransport(deps.Session)
	m.notifier = infrastructure.NewNotifier(deps.Session, userInfo, cfg.NotificationBuffer)

	// Services
	voiceChannel := usecases.NewVoiceChannelService(m.registry, transport, voiceState, m.notifier)
	playback := usecases.NewPlaybackService(m.registry, m.notifier)
	queue := usecases.NewQueueService(m.registry, m.notifier)
	notificationChannel := usecases.NewNotificationChannelService(m.registry, m.notifier)
	autocomplete := usecases.NewAutocompleteService(m.registry, trackLoader)

	// Presentation
	m.commandHandlers = discord.NewCommandHandlers(
		voiceChannel,
		playback,
		queue,
		trackLoader,
		notificationChannel,
	)
	m.eventHandlers = discord.NewEventHandlers(
		voiceChannel,
		discord.NewAutocompleteHandler(autocomplete),
	)

	slog.Info("initialized music_player module",
		"resolver", resolverName(cfg),
		"default_volume", cfg.DefaultVolume,
		"playlist_limit", cfg.PlaylistLimit,
	)

	return nil
}

// OnReady connects to Lavalink once the bot user is known.
func (m *MusicPlayerModule) OnReady(s *discordgo.Session) error {
	if m.lavalink == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := m.lavalink.Connect(ctx, s); err != nil {
		return fmt.Errorf("failed to connect to Lavalink: %w", err)
	}
	return nil
}

// Shutdown disconnects every session and stops background workers.
func (m *MusicPlayerModule) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	if m.registry != nil {
		err = m.registry.CloseAll(ctx)
	}

	if m.notifier != nil {
		m.notifier.Close()
	}

	if m.lavalink != nil {
		m.lavalink.Close()
	}

	return err
}

func resolverName(cfg *Config) string {
	if cfg.UseLavalink() {
		return "lavalink"
	}
	return "yt-dlp"
}
