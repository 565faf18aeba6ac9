package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrmusic/internal/modules/music_player/domain"
)

const catalogEntryFormat = "%(playlist_title)s\t%(track,title)s\t%(artist,creator,uploader)s"

// YTDLPCatalog lists external catalog references (albums, playlists) by
// title and artist using yt-dlp's flat playlist extraction.
type YTDLPCatalog struct {
	ytdlpPath string
	maxItems  int
}

var _ ports.CatalogLookup = (*YTDLPCatalog)(nil)

// NewYTDLPCatalog creates a new YTDLPCatalog listing at most maxItems entries.
func NewYTDLPCatalog(ytdlpPath string, maxItems int) *YTDLPCatalog {
	if maxItems <= 0 {
		maxItems = defaultPlaylistItems
	}
	return &YTDLPCatalog{ytdlpPath: ytdlpPath, maxItems: maxItems}
}

func (c *YTDLPCatalog) Lookup(ctx context.Context, reference string) (*domain.CatalogListing, error) {
	cmd := ytdlp.New().
		FlatPlaylist().
		Print(catalogEntryFormat).
		PlaylistItems(fmt.Sprintf("1-%d", c.maxItems)).
		NoWarnings().
		IgnoreConfig()
	if c.ytdlpPath != "" {
		cmd.SetExecutable(c.ytdlpPath)
	}

	res, err := cmd.Run(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return parseCatalogListing(res.Stdout), nil
}

func parseCatalogListing(stdout string) *domain.CatalogListing {
	listing := &domain.CatalogListing{}
	for line := range strings.SplitSeq(strings.TrimSpace(stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			continue
		}
		if listing.Name == "" {
			listing.Name = na(fields[0])
		}
		listing.Entries = append(listing.Entries, domain.CatalogEntry{
			Title:  na(fields[1]),
			Artist: na(fields[2]),
		})
	}
	return listing
}
