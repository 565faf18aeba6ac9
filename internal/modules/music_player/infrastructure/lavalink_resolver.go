package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// ErrNoLavalinkNode is reported when no Lavalink node is available.
var ErrNoLavalinkNode = errors.New("no available Lavalink node")

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// LavalinkResolver resolves references through a Lavalink node. Audio is not
// played through Lavalink; only its track loading API is used.
type LavalinkResolver struct {
	config LavalinkConfig

	mu   sync.RWMutex
	link disgolink.Client
}

var _ ports.TrackResolver = (*LavalinkResolver)(nil)

// NewLavalinkResolver creates a new LavalinkResolver. References submitted
// before Connect fail with ErrNoLavalinkNode.
func NewLavalinkResolver(config LavalinkConfig) *LavalinkResolver {
	return &LavalinkResolver{config: config}
}

// Connect connects to the node. The session must be open so that the bot
// user is known.
func (r *LavalinkResolver) Connect(ctx context.Context, session *discordgo.Session) error {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return fmt.Errorf("failed to parse bot ID: %w", err)
	}

	link := disgolink.New(botID)

	node, err := link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  r.config.Address,
		Password: r.config.Password,
		Secure:   r.config.Secure,
	})
	if err != nil {
		return fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	r.mu.Lock()
	r.link = link
	r.mu.Unlock()

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", r.config.Address)

	return nil
}

// Submit loads query on the best node and reports the result to handler.
func (r *LavalinkResolver) Submit(
	ctx context.Context,
	query string,
	handler ports.LoadResultHandler,
) {
	r.mu.RLock()
	link := r.link
	r.mu.RUnlock()

	if link == nil {
		handler.LoadFailed(ErrNoLavalinkNode)
		return
	}
	node := link.BestNode()
	if node == nil {
		handler.LoadFailed(ErrNoLavalinkNode)
		return
	}

	go node.LoadTracksHandler(ctx, query, newLavalinkResultHandler(handler))
}

// Close disconnects from all Lavalink nodes.
func (r *LavalinkResolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.link != nil {
		r.link.Close()
		r.link = nil
	}
}

func newLavalinkResultHandler(handler ports.LoadResultHandler) disgolink.AudioLoadResultHandler {
	return disgolink.NewResultHandler(
		func(track lavalink.Track) {
			handler.TrackLoaded(convertTrack(track))
		},
		func(playlist lavalink.Playlist) {
			handler.PlaylistLoaded(playlist.Info.Name, convertTracks(playlist.Tracks))
		},
		func(tracks []lavalink.Track) {
			handler.SearchResultLoaded(convertTracks(tracks))
		},
		handler.NoMatches,
		func(err error) {
			handler.LoadFailed(err)
		},
	)
}

func convertTracks(tracks []lavalink.Track) []domain.TrackInfo {
	return lo.Map(tracks, func(track lavalink.Track, _ int) domain.TrackInfo {
		return convertTrack(track)
	})
}

// convertTrack converts a Lavalink track to TrackInfo.
func convertTrack(track lavalink.Track) domain.TrackInfo {
	info := track.Info

	return domain.TrackInfo{
		Identifier: info.Identifier,
		Handle:     track.Encoded,
		Title:      info.Title,
		Artist:     info.Author,
		Duration:   time.Duration(info.Length) * time.Millisecond,
		URI:        lo.FromPtr(info.URI),
		ArtworkURL: lo.FromPtr(info.ArtworkURL),
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}
