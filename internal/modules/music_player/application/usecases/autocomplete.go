package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// GetQueueTracksInput contains the input for the GetQueueTracks use case.
type GetQueueTracksInput struct {
	GuildID snowflake.ID
}

// GetQueueTracksOutput contains the output for the GetQueueTracks use case.
type GetQueueTracksOutput struct {
	Tracks []*domain.Track
}

// AutocompleteService handles autocomplete-related operations.
type AutocompleteService struct {
	registry    *SessionRegistry
	trackLoader *TrackLoaderService
}

// NewAutocompleteService creates a new AutocompleteService.
func NewAutocompleteService(
	registry *SessionRegistry,
	trackLoader *TrackLoaderService,
) *AutocompleteService {
	return &AutocompleteService{
		registry:    registry,
		trackLoader: trackLoader,
	}
}

// GetQueueTracks returns the current queue tracks for autocomplete suggestions.
func (s *AutocompleteService) GetQueueTracks(input GetQueueTracksInput) *GetQueueTracksOutput {
	session := s.registry.Get(input.GuildID)
	if session == nil {
		return &GetQueueTracksOutput{Tracks: nil}
	}

	return &GetQueueTracksOutput{
		Tracks: session.Queue(),
	}
}

// SearchTracks searches for tracks matching the query.
// URLs are not searched.
func (s *AutocompleteService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	if s.trackLoader == nil || domain.NewSearchQuery(input.Query).IsURL() {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	return s.trackLoader.SearchTracks(ctx, input)
}
