package infrastructure

import (
	"errors"
	"fmt"

	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

// ErrHostNotAllowed is returned for URL references outside the allow-list.
var ErrHostNotAllowed = errors.New("host is not allowed")

// DefaultAllowedHosts are accepted when no allow-list is configured.
var DefaultAllowedHosts = []string{
	"youtube.com",
	"youtu.be",
	"soundcloud.com",
	"twitch.tv",
	"bandcamp.com",
	"deezer.com",
	"open.spotify.com",
}

// DestinationFilter checks URL references against a host allow-list.
// Plain-text searches are always allowed.
type DestinationFilter struct {
	hosts []string
}

var _ ports.ReferenceFilter = (*DestinationFilter)(nil)

// NewDestinationFilter creates a new DestinationFilter.
func NewDestinationFilter(hosts []string) *DestinationFilter {
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}
	return &DestinationFilter{hosts: hosts}
}

func (f *DestinationFilter) Check(query *domain.SearchQuery) error {
	if !query.IsURL() {
		return nil
	}
	if query.Host == "" {
		return fmt.Errorf("%w: malformed URL", ErrHostNotAllowed)
	}
	if !domain.MatchesHost(query.Host, f.hosts) {
		return fmt.Errorf("%w: %s", ErrHostNotAllowed, query.Host)
	}
	return nil
}
