package ports

import (
	"context"

	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// LoadResultHandler receives the outcome of one resolver submission.
// Exactly one method is called per submission, from any goroutine.
type LoadResultHandler interface {
	TrackLoaded(track domain.TrackInfo)
	PlaylistLoaded(name string, tracks []domain.TrackInfo)
	SearchResultLoaded(tracks []domain.TrackInfo)
	NoMatches()
	LoadFailed(err error)
}

// TrackResolver defines the asynchronous interface for loading/searching tracks.
type TrackResolver interface {
	// Submit starts resolving query and returns immediately. The handler is
	// invoked once the backend answers; it may never be invoked if the backend
	// hangs, so callers must bound their wait.
	Submit(ctx context.Context, query string, handler LoadResultHandler)
}

// CatalogLookup lists the entries behind an external catalog reference.
type CatalogLookup interface {
	Lookup(ctx context.Context, reference string) (*domain.CatalogListing, error)
}

// ReferenceFilter decides whether a reference may be handed to a resolver.
type ReferenceFilter interface {
	// Check returns a non-nil error describing why query is not allowed.
	Check(query *domain.SearchQuery) error
}
