package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
	"golang.org/x/time/rate"
)

const (
	// DefaultPlaylistLimit caps the tracks enqueued from one reference.
	DefaultPlaylistLimit = 100
	// DefaultEntryTimeout bounds the wait for one catalog entry.
	DefaultEntryTimeout = 5 * time.Second
	// DefaultLoadTimeout bounds the wait for a direct or search reference.
	DefaultLoadTimeout = 30 * time.Second
)

// TrackLoaderConfig configures a TrackLoaderService.
type TrackLoaderConfig struct {
	PlaylistLimit int
	LoadTimeout   time.Duration
	EntryTimeout  time.Duration
	CatalogHosts  []string
	// RateLimit is the number of catalog entry resolutions per second.
	// Zero or less disables pacing.
	RateLimit float64
	RateBurst int
}

// LoadTrackInput contains the input for the LoadTrack use case.
type LoadTrackInput struct {
	Query       string
	RequesterID snowflake.ID
}

// LoadTrackOutput contains the result of the LoadTrack use case.
type LoadTrackOutput struct {
	Tracks       []*domain.Track
	IsPlaylist   bool
	PlaylistName string
	Dropped      int // catalog entries that failed to resolve
}

// TrackLoaderService handles track loading operations.
type TrackLoaderService struct {
	trackResolver ports.TrackResolver
	catalog       ports.CatalogLookup
	filter        ports.ReferenceFilter
	limiter       *rate.Limiter
	cfg           TrackLoaderConfig
}

// NewTrackLoaderService creates a new TrackLoaderService.
// catalog and filter may be nil.
func NewTrackLoaderService(
	trackResolver ports.TrackResolver,
	catalog ports.CatalogLookup,
	filter ports.ReferenceFilter,
	cfg TrackLoaderConfig,
) *TrackLoaderService {
	if cfg.PlaylistLimit <= 0 {
		cfg.PlaylistLimit = DefaultPlaylistLimit
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.EntryTimeout <= 0 {
		cfg.EntryTimeout = DefaultEntryTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &TrackLoaderService{
		trackResolver: trackResolver,
		catalog:       catalog,
		filter:        filter,
		limiter:       limiter,
		cfg:           cfg,
	}
}

// LoadTrack resolves the query into one or more tracks requested by the input's
// requester. It blocks the caller until resolution completes or times out and
// must not be called from the frame-pull path.
func (s *TrackLoaderService) LoadTrack(
	ctx context.Context,
	input LoadTrackInput,
) (*LoadTrackOutput, error) {
	query := domain.NewSearchQuery(input.Query)
	if !query.IsValid() {
		return nil, fmt.Errorf("%w: empty query", ErrLoadFailed)
	}

	if s.filter != nil {
		if err := s.filter.Check(query); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReferenceBlocked, err)
		}
	}

	query.MarkCatalog(s.cfg.CatalogHosts)
	if query.Kind == domain.QueryKindCatalog && s.catalog != nil {
		return s.loadCatalog(ctx, query, input.RequesterID)
	}

	res, err := s.resolve(ctx, query.ResolverQuery(), s.cfg.LoadTimeout)
	if err != nil {
		return nil, err
	}

	switch res.kind {
	case resolvedTrack, resolvedSearch:
		return &LoadTrackOutput{
			Tracks: []*domain.Track{domain.NewTrack(res.tracks[0], input.RequesterID)},
		}, nil

	case resolvedPlaylist:
		infos := res.tracks
		if len(infos) > s.cfg.PlaylistLimit {
			infos = infos[:s.cfg.PlaylistLimit]
		}
		return &LoadTrackOutput{
			Tracks:       newTracks(infos, input.RequesterID),
			IsPlaylist:   true,
			PlaylistName: res.name,
		}, nil

	case resolvedFailed:
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, res.err)

	default:
		return nil, ErrNoResults
	}
}

// loadCatalog looks up the catalog listing and resolves each entry as a
// search, one at a time. Entries that fail or time out are dropped; order of
// the remaining entries is preserved.
func (s *TrackLoaderService) loadCatalog(
	ctx context.Context,
	query *domain.SearchQuery,
	requesterID snowflake.ID,
) (*LoadTrackOutput, error) {
	listing, err := s.catalog.Lookup(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	if len(listing.Entries) == 0 {
		return nil, ErrNoResults
	}

	tracks := make([]*domain.Track, 0, min(len(listing.Entries), s.cfg.PlaylistLimit))
	dropped := 0

	for i, entry := range listing.Entries {
		if len(tracks) >= s.cfg.PlaylistLimit {
			break
		}

		if err := s.limiter.Wait(ctx); err != nil {
			slog.Warn("stopped catalog expansion", "reference", query.Query, "error", err)
			break
		}

		text := entry.SearchText()
		if text == "" {
			dropped++
			continue
		}

		res, err := s.resolve(ctx, string(domain.SourceYouTube)+":"+text, s.cfg.EntryTimeout)
		if err != nil {
			slog.Warn("dropped catalog entry",
				"reference", query.Query,
				"index", i,
				"entry", text,
				"error", err,
			)
			dropped++
			continue
		}
		if len(res.tracks) == 0 || res.kind == resolvedFailed {
			slog.Debug("catalog entry had no match", "entry", text)
			dropped++
			continue
		}

		tracks = append(tracks, domain.NewTrack(res.tracks[0], requesterID))
	}

	if len(tracks) == 0 {
		return nil, ErrNoResults
	}

	slog.Info("expanded catalog reference",
		"reference", query.Query,
		"entries", len(listing.Entries),
		"tracks", len(tracks),
		"dropped", dropped,
	)

	return &LoadTrackOutput{
		Tracks:       tracks,
		IsPlaylist:   true,
		PlaylistName: listing.Name,
		Dropped:      dropped,
	}, nil
}

// SearchTracksInput contains the input for the SearchTracks use case.
type SearchTracksInput struct {
	Query string
	Limit int
}

// SearchTracksOutput contains the result of the SearchTracks use case.
type SearchTracksOutput struct {
	Tracks []domain.TrackInfo
}

// SearchTracks searches for tracks matching the query.
func (s *TrackLoaderService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	query := domain.NewSearchQuery(input.Query)
	if !query.IsValid() {
		return &SearchTracksOutput{Tracks: nil}, nil
	}
	if s.filter != nil && s.filter.Check(query) != nil {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	res, err := s.resolve(ctx, query.ResolverQuery(), s.cfg.LoadTimeout)
	if err != nil {
		return nil, err
	}
	if res.kind == resolvedFailed || res.kind == resolvedEmpty {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	limit := input.Limit
	if limit <= 0 || limit > len(res.tracks) {
		limit = len(res.tracks)
	}

	return &SearchTracksOutput{
		Tracks: res.tracks[:limit],
	}, nil
}

// resolve submits query and waits for the handler to be called, bounded by timeout.
func (s *TrackLoaderService) resolve(
	ctx context.Context,
	query string,
	timeout time.Duration,
) (resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	handler := &resultHandler{result: make(chan resolution, 1)}
	s.trackResolver.Submit(ctx, query, handler)

	select {
	case res := <-handler.result:
		return res, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return resolution{}, fmt.Errorf("%w: %s", ErrResolutionTimeout, query)
		}
		return resolution{}, ctx.Err()
	}
}

func newTracks(infos []domain.TrackInfo, requesterID snowflake.ID) []*domain.Track {
	return lo.Map(infos, func(info domain.TrackInfo, _ int) *domain.Track {
		return domain.NewTrack(info, requesterID)
	})
}

type resolutionKind int

const (
	resolvedEmpty resolutionKind = iota
	resolvedTrack
	resolvedSearch
	resolvedPlaylist
	resolvedFailed
)

type resolution struct {
	kind   resolutionKind
	name   string
	tracks []domain.TrackInfo
	err    error
}

// resultHandler turns resolver callbacks into a single value on result.
// Only the first callback is recorded.
type resultHandler struct {
	result chan resolution
}

func (h *resultHandler) deliver(res resolution) {
	select {
	case h.result <- res:
	default:
	}
}

func (h *resultHandler) TrackLoaded(track domain.TrackInfo) {
	h.deliver(resolution{kind: resolvedTrack, tracks: []domain.TrackInfo{track}})
}

func (h *resultHandler) PlaylistLoaded(name string, tracks []domain.TrackInfo) {
	if len(tracks) == 0 {
		h.NoMatches()
		return
	}
	h.deliver(resolution{kind: resolvedPlaylist, name: name, tracks: tracks})
}

func (h *resultHandler) SearchResultLoaded(tracks []domain.TrackInfo) {
	if len(tracks) == 0 {
		h.NoMatches()
		return
	}
	h.deliver(resolution{kind: resolvedSearch, tracks: tracks})
}

func (h *resultHandler) NoMatches() {
	h.deliver(resolution{kind: resolvedEmpty})
}

func (h *resultHandler) LoadFailed(err error) {
	h.deliver(resolution{kind: resolvedFailed, err: err})
}

var _ ports.LoadResultHandler = (*resultHandler)(nil)
